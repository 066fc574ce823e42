package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")
var ErrSelfDelete = errors.New("cannot delete your own account")
var ErrSelfRole = errors.New("cannot change your own role")

// Service covers the admin-side user management operations.
type Service struct {
	DB *gorm.DB
}

// Overview is a user row with note/reply counts for the admin panel.
type Overview struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	NoteCount   int64     `json:"noteCount"`
	ReplyCount  int64     `json:"replyCount"`
}

func (s *Service) List(ctx context.Context) ([]Overview, error) {
	// Counts come from raw table names: the note package depends on this one,
	// so querying note models here would be a cycle.
	var out []Overview
	err := s.DB.WithContext(ctx).Raw(`
		select u.id, u.email, u.display_name, u.role, u.created_at, u.updated_at,
		       (select count(*) from notes n where n.user_id = u.id) as note_count,
		       (select count(*) from replies r where r.user_id = u.id) as reply_count
		from users u
		order by u.created_at desc
	`).Scan(&out).Error
	return out, err
}

// Delete removes a user and their live notes and replies. Archived snapshots
// keep their denormalized names and are left untouched.
func (s *Service) Delete(ctx context.Context, actorID, targetID string) error {
	if targetID == actorID {
		return ErrSelfDelete
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Exec(`delete from replies where user_id = ?`, targetID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`delete from replies where note_id in (select id from notes where user_id = ?)`, targetID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`delete from notes where user_id = ?`, targetID).Error; err != nil {
			return err
		}
		return tx.Delete(&u).Error
	})
}

func (s *Service) UpdateRole(ctx context.Context, actorID, targetID string, role Role) (*User, error) {
	if targetID == actorID {
		return nil, ErrSelfRole
	}
	var u User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		u.Role = role
		return tx.Save(&u).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

package note

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"gorm.io/gorm"
)

var ErrArchiveNotFound = errors.New("deleted note not found")
var ErrOwnerMissing = errors.New("original author no longer exists")

// RestoreNote replays a DeletedNote back into the live tables. The note keeps
// its original id so external references stay stable. Reply snapshots whose
// authors were deleted in the interim are dropped; a missing note owner
// blocks the restore entirely. Best-effort reconstruction, not byte-exact.
func (s *Service) RestoreNote(ctx context.Context, deletedNoteID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dn DeletedNote
		if err := tx.First(&dn, "id = ?", deletedNoteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArchiveNotFound
			}
			return err
		}

		var ownerCount int64
		if err := tx.Model(&user.User{}).Where("id = ?", dn.NoteUserID).Count(&ownerCount).Error; err != nil {
			return err
		}
		if ownerCount == 0 {
			return ErrOwnerMissing
		}

		snaps, err := unmarshalSnapshots(dn.Replies)
		if err != nil {
			return err
		}

		authorIDs := make([]string, 0, len(snaps))
		for _, snap := range snaps {
			authorIDs = append(authorIDs, snap.UserID)
		}
		liveAuthors, err := displayNames(tx, authorIDs)
		if err != nil {
			return err
		}
		surviving := make([]ReplySnapshot, 0, len(snaps))
		for _, snap := range snaps {
			if _, ok := liveAuthors[snap.UserID]; ok {
				surviving = append(surviving, snap)
			}
		}

		color := dn.Color
		if !ValidColor(color) {
			slog.Warn("restore: coercing unknown color",
				"deletedNote", dn.ID, "color", string(color))
			color = ColorYellow
		}

		lastActivity := dn.NoteCreatedAt
		for _, snap := range surviving {
			if snap.CreatedAt.After(lastActivity) {
				lastActivity = snap.CreatedAt
			}
		}

		n := Note{
			ID:             dn.OriginalNoteID,
			Title:          dn.Title,
			Content:        dn.Content,
			Color:          color,
			Status:         StatusPublished,
			Layer:          LayerSurface,
			UserID:         dn.NoteUserID,
			LastActivityAt: lastActivity,
			CreatedAt:      dn.NoteCreatedAt,
		}
		if err := tx.Create(&n).Error; err != nil {
			return err
		}

		if len(surviving) > 0 {
			replies := make([]Reply, 0, len(surviving))
			for _, snap := range surviving {
				replies = append(replies, Reply{
					ID:        snap.ID,
					Content:   snap.Content,
					NoteID:    n.ID,
					UserID:    snap.UserID,
					CreatedAt: snap.CreatedAt,
					UpdatedAt: snap.CreatedAt,
				})
			}
			if err := tx.Create(&replies).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&dn).Error
	})
}

// PermanentlyDeleteNote discards the archive row. Irreversible; live tables
// are never touched.
func (s *Service) PermanentlyDeleteNote(ctx context.Context, deletedNoteID string) error {
	res := s.DB.WithContext(ctx).Delete(&DeletedNote{}, "id = ?", deletedNoteID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrArchiveNotFound
	}
	return nil
}

// DeletedNoteView flattens the archive row for the admin panel, with the
// snapshot replies decoded.
type DeletedNoteView struct {
	ID             string          `json:"id"`
	OriginalNoteID string          `json:"originalNoteId"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Color          Color           `json:"color"`
	NoteUserID     string          `json:"noteUserId"`
	NoteUserName   string          `json:"noteUserName"`
	Replies        []ReplySnapshot `json:"replies"`
	DeletedByID    string          `json:"deletedById"`
	DeletedByName  string          `json:"deletedByName"`
	SelfDeleted    bool            `json:"selfDeleted"`
	NoteCreatedAt  time.Time       `json:"noteCreatedAt"`
	DeletedAt      time.Time       `json:"deletedAt"`
}

func (s *Service) ListDeletedNotes(ctx context.Context) ([]DeletedNoteView, error) {
	var rows []DeletedNote
	if err := s.DB.WithContext(ctx).Order("deleted_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DeletedNoteView, 0, len(rows))
	for _, dn := range rows {
		snaps, err := unmarshalSnapshots(dn.Replies)
		if err != nil {
			return nil, err
		}
		out = append(out, DeletedNoteView{
			ID:             dn.ID,
			OriginalNoteID: dn.OriginalNoteID,
			Title:          dn.Title,
			Content:        dn.Content,
			Color:          dn.Color,
			NoteUserID:     dn.NoteUserID,
			NoteUserName:   dn.NoteUserName,
			Replies:        snaps,
			DeletedByID:    dn.DeletedByID,
			DeletedByName:  dn.DeletedByName,
			SelfDeleted:    dn.SelfDeleted,
			NoteCreatedAt:  dn.NoteCreatedAt,
			DeletedAt:      dn.DeletedAt,
		})
	}
	return out, nil
}

type DeletedReplyView struct {
	ID              string    `json:"id"`
	OriginalReplyID string    `json:"originalReplyId"`
	Content         string    `json:"content"`
	NoteID          string    `json:"noteId"`
	NoteTitle       string    `json:"noteTitle"`
	ReplyUserID     string    `json:"replyUserId"`
	ReplyUserName   string    `json:"replyUserName"`
	DeletedByID     string    `json:"deletedById"`
	DeletedByName   string    `json:"deletedByName"`
	SelfDeleted     bool      `json:"selfDeleted"`
	ReplyCreatedAt  time.Time `json:"replyCreatedAt"`
	DeletedAt       time.Time `json:"deletedAt"`
}

func (s *Service) ListDeletedReplies(ctx context.Context) ([]DeletedReplyView, error) {
	var rows []DeletedReply
	if err := s.DB.WithContext(ctx).Order("deleted_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DeletedReplyView, 0, len(rows))
	for _, dr := range rows {
		out = append(out, DeletedReplyView{
			ID:              dr.ID,
			OriginalReplyID: dr.OriginalReplyID,
			Content:         dr.Content,
			NoteID:          dr.NoteID,
			NoteTitle:       dr.NoteTitle,
			ReplyUserID:     dr.ReplyUserID,
			ReplyUserName:   dr.ReplyUserName,
			DeletedByID:     dr.DeletedByID,
			DeletedByName:   dr.DeletedByName,
			SelfDeleted:     dr.SelfDeleted,
			ReplyCreatedAt:  dr.ReplyCreatedAt,
			DeletedAt:       dr.DeletedAt,
		})
	}
	return out, nil
}

func marshalSnapshots(snaps []ReplySnapshot) (json.RawMessage, error) {
	if snaps == nil {
		snaps = []ReplySnapshot{}
	}
	b, err := json.Marshal(snaps)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func unmarshalSnapshots(raw json.RawMessage) ([]ReplySnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var snaps []ReplySnapshot
	if err := json.Unmarshal(raw, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

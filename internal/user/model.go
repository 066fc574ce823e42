package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAdmin
}

// User owns notes and replies. PinHash, when set, gates the HIDDEN layer.
// Avatar holds a data-URL payload or is null.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	DisplayName  string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Avatar       *string   `gorm:"type:text"`
	Role         Role      `gorm:"type:text;not null;default:'USER'"`
	PinHash      *string   `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

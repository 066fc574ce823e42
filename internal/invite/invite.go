package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidCode = errors.New("invalid invite code")
var ErrCodeUsed = errors.New("invite code already used")
var ErrCodeExpired = errors.New("invite code expired")

// codeAlphabet avoids 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 8

const Validity = 15 * time.Minute

// InviteCode is a single-use, time-boxed registration gate.
type InviteCode struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"uniqueIndex;not null"`
	CreatorID string    `gorm:"type:uuid;index;not null"`
	Used      bool      `gorm:"not null;default:false"`
	UsedBy    *string   `gorm:"type:uuid"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (c *InviteCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func NewCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

type Service struct {
	DB *gorm.DB
}

func (s *Service) Generate(ctx context.Context, creatorID string) (*InviteCode, error) {
	c := InviteCode{
		Code:      NewCode(),
		CreatorID: creatorID,
		ExpiresAt: time.Now().Add(Validity),
	}
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Listing is an invite code joined with its creator's display name.
type Listing struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	CreatorName string    `json:"creatorName"`
	Used        bool      `json:"used"`
	UsedBy      *string   `json:"usedBy"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Service) List(ctx context.Context) ([]Listing, error) {
	var out []Listing
	err := s.DB.WithContext(ctx).Raw(`
		select c.id, c.code, coalesce(u.display_name, '') as creator_name,
		       c.used, c.used_by, c.expires_at, c.created_at
		from invite_codes c
		left join users u on u.id = c.creator_id
		order by c.created_at desc
		limit 50
	`).Scan(&out).Error
	return out, err
}

// Consume marks a code used within the caller's transaction so the user row
// and the code flip commit together.
func Consume(tx *gorm.DB, code, usedBy string) error {
	var c InviteCode
	if err := tx.Where("code = ?", code).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if c.Used {
		return ErrCodeUsed
	}
	if time.Now().After(c.ExpiresAt) {
		return ErrCodeExpired
	}
	c.Used = true
	c.UsedBy = &usedBy
	return tx.Save(&c).Error
}

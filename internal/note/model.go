package note

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Color string

const (
	ColorYellow Color = "yellow"
	ColorPink   Color = "pink"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
)

func ValidColor(c Color) bool {
	switch c {
	case ColorYellow, ColorPink, ColorBlue, ColorGreen, ColorPurple, ColorOrange:
		return true
	}
	return false
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

type Layer string

const (
	LayerSurface Layer = "SURFACE"
	LayerHidden  Layer = "HIDDEN"
)

func ValidLayer(l Layer) bool {
	return l == LayerSurface || l == LayerHidden
}

const MaxTitleLen = 100

// Note is a topic and the root of a reply thread. A DRAFT is visible only to
// its owner; LastActivityAt orders the feed and is bumped on every new reply.
type Note struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	Title          string    `gorm:"size:100;not null;default:''"`
	Content        string    `gorm:"type:text;not null"`
	Color          Color     `gorm:"type:text;not null;default:'yellow'"`
	Status         Status    `gorm:"type:text;index;not null;default:'PUBLISHED'"`
	Layer          Layer     `gorm:"type:text;index;not null;default:'SURFACE'"`
	UserID         string    `gorm:"type:uuid;index;not null"`
	LastActivityAt time.Time `gorm:"index;not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Reply threads under a note. ReplyToID is a loose pointer: it may name a
// reply that no longer exists, in which case readers render a tombstone.
type Reply struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Content   string    `gorm:"type:text;not null"`
	NoteID    string    `gorm:"type:uuid;index;not null"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	ReplyToID *string   `gorm:"type:uuid"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ReplySnapshot is one reply as frozen inside a DeletedNote archive row.
// UserName is the author's display name at delete time.
type ReplySnapshot struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeletedNote is an immutable archive of a note and its replies, taken at
// delete time. It holds no foreign keys to live tables: the denormalized
// names keep it readable after the users involved are gone.
type DeletedNote struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	OriginalNoteID string          `gorm:"type:uuid;index;not null"`
	Title          string          `gorm:"not null;default:''"`
	Content        string          `gorm:"type:text;not null"`
	Color          Color           `gorm:"type:text;not null"`
	NoteUserID     string          `gorm:"type:uuid;not null"`
	NoteUserName   string          `gorm:"not null"`
	Replies        json.RawMessage `gorm:"type:jsonb;not null;default:'[]'"`
	DeletedByID    string          `gorm:"type:uuid;not null"`
	DeletedByName  string          `gorm:"not null"`
	SelfDeleted    bool            `gorm:"not null"`
	NoteCreatedAt  time.Time       `gorm:"not null"`
	DeletedAt      time.Time       `gorm:"index;not null"`
}

func (d *DeletedNote) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// DeletedReply is the single-reply analogue of DeletedNote.
type DeletedReply struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	OriginalReplyID string    `gorm:"type:uuid;index;not null"`
	Content         string    `gorm:"type:text;not null"`
	NoteID          string    `gorm:"type:uuid;not null"`
	NoteTitle       string    `gorm:"not null;default:''"`
	ReplyUserID     string    `gorm:"type:uuid;not null"`
	ReplyUserName   string    `gorm:"not null"`
	DeletedByID     string    `gorm:"type:uuid;not null"`
	DeletedByName   string    `gorm:"not null"`
	SelfDeleted     bool      `gorm:"not null"`
	ReplyCreatedAt  time.Time `gorm:"not null"`
	DeletedAt       time.Time `gorm:"index;not null"`
}

func (d *DeletedReply) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// NoteEditHistory captures the pre-edit title/content of a PUBLISHED note.
// Append-only; the core never reads it back.
type NoteEditHistory struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	NoteID     string    `gorm:"type:uuid;index;not null"`
	Title      string    `gorm:"not null;default:''"`
	Content    string    `gorm:"type:text;not null"`
	EditorID   string    `gorm:"type:uuid;not null"`
	EditorName string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (h *NoteEditHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// ReplyEditHistory captures the pre-edit content of a reply. Append-only.
type ReplyEditHistory struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ReplyID    string    `gorm:"type:uuid;index;not null"`
	NoteID     string    `gorm:"type:uuid;not null"`
	Content    string    `gorm:"type:text;not null"`
	EditorID   string    `gorm:"type:uuid;not null"`
	EditorName string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (h *ReplyEditHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

package db

import (
	"fmt"

	"github.com/guitar-and-frostedglass/diaryd/internal/invite"
	"github.com/guitar-and-frostedglass/diaryd/internal/note"
	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&user.User{},
		&note.Note{},
		&note.Reply{},
		&note.DeletedNote{},
		&note.DeletedReply{},
		&note.NoteEditHistory{},
		&note.ReplyEditHistory{},
		&invite.InviteCode{},
	); err != nil {
		return err
	}

	// Feed ordering per layer, draft visibility filter included
	if err := gdb.Exec(`create index if not exists idx_notes_layer_activity on notes(layer, last_activity_at desc);`).Error; err != nil {
		return err
	}

	// Thread reads in creation order
	if err := gdb.Exec(`create index if not exists idx_replies_note_created on replies(note_id, created_at);`).Error; err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_deleted_notes_deleted_at on deleted_notes(deleted_at desc);`,
		`create index if not exists idx_deleted_replies_deleted_at on deleted_replies(deleted_at desc);`,
		`create index if not exists idx_note_edit_history_note on note_edit_histories(note_id, created_at);`,
		`create index if not exists idx_reply_edit_history_reply on reply_edit_histories(reply_id, created_at);`,
		`create index if not exists idx_invite_codes_expires on invite_codes(used, expires_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}

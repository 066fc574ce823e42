package note

import (
	"context"
	"testing"
	"time"

	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func deletedNoteFor(t *testing.T, db *gorm.DB, originalNoteID string) *DeletedNote {
	t.Helper()
	var dn DeletedNote
	require.NoError(t, db.First(&dn, "original_note_id = ?", originalNoteID).Error)
	return &dn
}

func TestRestoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)
	bob := seedUser(t, db, "bob", user.RoleUser)
	carol := seedUser(t, db, "carol", user.RoleUser)
	admin := seedUser(t, db, "root", user.RoleAdmin)

	n, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Title: "topic", Content: "body", Color: ColorGreen})
	require.NoError(t, err)
	r1, err := svc.CreateReply(ctx, asActor(bob), n.ID, CreateReplyInput{Content: "one"})
	require.NoError(t, err)
	r2, err := svc.CreateReply(ctx, asActor(carol), n.ID, CreateReplyInput{Content: "two"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, asActor(admin), n.ID))
	dn := deletedNoteFor(t, db, n.ID)

	require.NoError(t, svc.RestoreNote(ctx, dn.ID))

	var restored Note
	require.NoError(t, db.First(&restored, "id = ?", n.ID).Error)
	assert.Equal(t, "topic", restored.Title)
	assert.Equal(t, "body", restored.Content)
	assert.Equal(t, ColorGreen, restored.Color)
	assert.Equal(t, alice.ID, restored.UserID)
	assert.Equal(t, StatusPublished, restored.Status)
	require.WithinDuration(t, n.CreatedAt, restored.CreatedAt, time.Second)

	var replies []Reply
	require.NoError(t, db.Where("note_id = ?", n.ID).Order("created_at asc").Find(&replies).Error)
	require.Len(t, replies, 2)
	assert.Equal(t, r1.ID, replies[0].ID)
	assert.Equal(t, "one", replies[0].Content)
	assert.Equal(t, bob.ID, replies[0].UserID)
	assert.Equal(t, r2.ID, replies[1].ID)
	require.WithinDuration(t, r2.CreatedAt, replies[1].CreatedAt, time.Second)

	// feed position follows the last surviving reply
	require.WithinDuration(t, r2.CreatedAt, restored.LastActivityAt, time.Second)

	// archive row is consumed
	assert.ErrorIs(t, db.First(&DeletedNote{}, "id = ?", dn.ID).Error, gorm.ErrRecordNotFound)
}

func TestRestoreFiltersOrphanedReplies(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)
	bob := seedUser(t, db, "bob", user.RoleUser)
	carol := seedUser(t, db, "carol", user.RoleUser)
	admin := seedUser(t, db, "root", user.RoleAdmin)

	n, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Content: "topic"})
	require.NoError(t, err)
	r1, err := svc.CreateReply(ctx, asActor(bob), n.ID, CreateReplyInput{Content: "keeps"})
	require.NoError(t, err)
	r2, err := svc.CreateReply(ctx, asActor(carol), n.ID, CreateReplyInput{Content: "orphaned"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, asActor(admin), n.ID))
	dn := deletedNoteFor(t, db, n.ID)

	// carol leaves between delete and restore
	require.NoError(t, db.Delete(&user.User{}, "id = ?", carol.ID).Error)

	require.NoError(t, svc.RestoreNote(ctx, dn.ID))

	var replies []Reply
	require.NoError(t, db.Where("note_id = ?", n.ID).Find(&replies).Error)
	require.Len(t, replies, 1)
	assert.Equal(t, r1.ID, replies[0].ID)
	_ = r2

	// no surviving reply newer than r1, so activity falls back to r1
	var restored Note
	require.NoError(t, db.First(&restored, "id = ?", n.ID).Error)
	require.WithinDuration(t, r1.CreatedAt, restored.LastActivityAt, time.Second)
}

func TestRestoreNoSurvivingRepliesFallsBackToCreation(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)
	bob := seedUser(t, db, "bob", user.RoleUser)
	admin := seedUser(t, db, "root", user.RoleAdmin)

	n, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Content: "topic"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = svc.CreateReply(ctx, asActor(bob), n.ID, CreateReplyInput{Content: "gone"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, asActor(admin), n.ID))
	dn := deletedNoteFor(t, db, n.ID)
	require.NoError(t, db.Delete(&user.User{}, "id = ?", bob.ID).Error)

	require.NoError(t, svc.RestoreNote(ctx, dn.ID))

	var restored Note
	require.NoError(t, db.First(&restored, "id = ?", n.ID).Error)
	require.WithinDuration(t, n.CreatedAt, restored.LastActivityAt, time.Second)
}

func TestRestoreBlockedByMissingOwner(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)
	admin := seedUser(t, db, "root", user.RoleAdmin)

	n, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Content: "topic"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteNote(ctx, asActor(admin), n.ID))
	dn := deletedNoteFor(t, db, n.ID)

	require.NoError(t, db.Delete(&user.User{}, "id = ?", alice.ID).Error)

	assert.ErrorIs(t, svc.RestoreNote(ctx, dn.ID), ErrOwnerMissing)

	// nothing created, nothing consumed
	assert.ErrorIs(t, db.First(&Note{}, "id = ?", n.ID).Error, gorm.ErrRecordNotFound)
	require.NoError(t, db.First(&DeletedNote{}, "id = ?", dn.ID).Error)
}

func TestRestoreUnknownColorCoerced(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)

	raw, err := marshalSnapshots(nil)
	require.NoError(t, err)
	dn := DeletedNote{
		OriginalNoteID: "11111111-1111-1111-1111-111111111111",
		Title:          "old",
		Content:        "body",
		Color:          Color("taupe"),
		NoteUserID:     alice.ID,
		NoteUserName:   "alice",
		Replies:        raw,
		DeletedByID:    alice.ID,
		DeletedByName:  "alice",
		SelfDeleted:    true,
		NoteCreatedAt:  time.Now().Add(-time.Hour),
		DeletedAt:      time.Now(),
	}
	require.NoError(t, db.Create(&dn).Error)

	require.NoError(t, svc.RestoreNote(ctx, dn.ID))

	var restored Note
	require.NoError(t, db.First(&restored, "id = ?", dn.OriginalNoteID).Error)
	assert.Equal(t, ColorYellow, restored.Color)
}

func TestRestoreNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	assert.ErrorIs(t, svc.RestoreNote(context.Background(), "missing"), ErrArchiveNotFound)
}

func TestPermanentDelete(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)
	admin := seedUser(t, db, "root", user.RoleAdmin)

	n, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Content: "topic"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteNote(ctx, asActor(admin), n.ID))
	dn := deletedNoteFor(t, db, n.ID)

	require.NoError(t, svc.PermanentlyDeleteNote(ctx, dn.ID))
	assert.ErrorIs(t, db.First(&DeletedNote{}, "id = ?", dn.ID).Error, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, svc.PermanentlyDeleteNote(ctx, dn.ID), ErrArchiveNotFound)
}

func TestDeleteNoteAtomicity(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)

	n, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Content: "survives"})
	require.NoError(t, err)
	_, err = svc.CreateReply(ctx, asActor(alice), n.ID, CreateReplyInput{Content: "kept too"})
	require.NoError(t, err)

	// with the archive table gone the snapshot insert fails, and the whole
	// delete must roll back
	require.NoError(t, db.Migrator().DropTable(&DeletedNote{}))

	err = svc.DeleteNote(ctx, asActor(alice), n.ID)
	require.Error(t, err)

	require.NoError(t, db.First(&Note{}, "id = ?", n.ID).Error)
	var count int64
	require.NoError(t, db.Model(&Reply{}).Where("note_id = ?", n.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListDeletedNotesNewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	alice := seedUser(t, db, "alice", user.RoleUser)

	n1, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Content: "first deleted"})
	require.NoError(t, err)
	n2, err := svc.CreateNote(ctx, asActor(alice), CreateNoteInput{Content: "second deleted"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, asActor(alice), n1.ID))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, svc.DeleteNote(ctx, asActor(alice), n2.ID))

	rows, err := svc.ListDeletedNotes(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, n2.ID, rows[0].OriginalNoteID)
	assert.Equal(t, n1.ID, rows[1].OriginalNoteID)
}

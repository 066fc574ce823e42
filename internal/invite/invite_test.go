package invite

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&InviteCode{}))
	return gdb
}

func TestNewCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewCode()
		assert.Len(t, code, codeLength)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		// no ambiguous characters, ever
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90) // collisions should be rare
}

func TestGenerateAndConsume(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	c, err := svc.Generate(ctx, "creator-1")
	require.NoError(t, err)
	assert.False(t, c.Used)
	assert.WithinDuration(t, time.Now().Add(Validity), c.ExpiresAt, time.Second)

	require.NoError(t, Consume(db, c.Code, "new-user"))

	var stored InviteCode
	require.NoError(t, db.First(&stored, "id = ?", c.ID).Error)
	assert.True(t, stored.Used)
	require.NotNil(t, stored.UsedBy)
	assert.Equal(t, "new-user", *stored.UsedBy)
}

func TestConsumeRejectsReuse(t *testing.T) {
	db := newTestDB(t)
	svc := &Service{DB: db}

	c, err := svc.Generate(context.Background(), "creator-1")
	require.NoError(t, err)

	require.NoError(t, Consume(db, c.Code, "first"))
	assert.ErrorIs(t, Consume(db, c.Code, "second"), ErrCodeUsed)
}

func TestConsumeRejectsExpired(t *testing.T) {
	db := newTestDB(t)

	c := InviteCode{
		Code:      NewCode(),
		CreatorID: "creator-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&c).Error)

	assert.ErrorIs(t, Consume(db, c.Code, "late"), ErrCodeExpired)
}

func TestConsumeRejectsUnknown(t *testing.T) {
	db := newTestDB(t)
	assert.ErrorIs(t, Consume(db, "NOPE", "nobody"), ErrInvalidCode)
}

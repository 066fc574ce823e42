package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guitar-and-frostedglass/diaryd/internal/invite"
	"github.com/guitar-and-frostedglass/diaryd/internal/note"
	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	writeData(rec, http.StatusCreated, map[string]string{"id": "n1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{note.ErrNotFound, http.StatusNotFound},
		{note.ErrReplyNotFound, http.StatusNotFound},
		{note.ErrArchiveNotFound, http.StatusNotFound},
		{user.ErrNotFound, http.StatusNotFound},
		{note.ErrForbidden, http.StatusForbidden},
		{note.ErrNotDraft, http.StatusBadRequest},
		{note.ErrNoteNotPublished, http.StatusBadRequest},
		{note.ErrOwnerMissing, http.StatusBadRequest},
		{user.ErrSelfDelete, http.StatusBadRequest},
		{invite.ErrCodeExpired, http.StatusBadRequest},
		{errors.New("database on fire"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tc.err)
			assert.Equal(t, tc.want, rec.Code)

			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Success)
			if tc.want == http.StatusInternalServerError {
				// internals never leak
				assert.Equal(t, "server error", env.Error)
			} else {
				assert.Equal(t, tc.err.Error(), env.Error)
			}
		})
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guitar-and-frostedglass/diaryd/internal/invite"
	"github.com/guitar-and-frostedglass/diaryd/internal/note"
	"github.com/guitar-and-frostedglass/diaryd/internal/user"
)

// Every endpoint answers with this envelope; error strings are user-facing.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}

// writeServiceError maps domain sentinels to statuses. Anything unexpected
// collapses to a generic 500; the detail goes to the server log only.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound),
		errors.Is(err, note.ErrReplyNotFound),
		errors.Is(err, note.ErrReplyNotInNote),
		errors.Is(err, note.ErrArchiveNotFound),
		errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, note.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, note.ErrNotDraft),
		errors.Is(err, note.ErrNoteNotPublished),
		errors.Is(err, note.ErrOwnerMissing),
		errors.Is(err, user.ErrSelfDelete),
		errors.Is(err, user.ErrSelfRole),
		errors.Is(err, invite.ErrInvalidCode),
		errors.Is(err, invite.ErrCodeUsed),
		errors.Is(err, invite.ErrCodeExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/guitar-and-frostedglass/diaryd/internal/auth"
	"github.com/guitar-and-frostedglass/diaryd/internal/invite"
	"github.com/guitar-and-frostedglass/diaryd/internal/mail"
	"github.com/guitar-and-frostedglass/diaryd/internal/note"
	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	Users   *user.Service
	Invites *invite.Service
	Notes   *note.Service
	Mailer  *mail.Mailer
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.Users.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

type roleReq struct {
	Role string `json:"role"`
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	role := user.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if !user.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	u, err := h.Users.UpdateRole(r.Context(), id.UserID, chi.URLParam(r, "id"), role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserDTO(u))
}

func (h *AdminHandler) ListInviteCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Invites.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, codes)
}

type inviteReq struct {
	Email string `json:"email"`
}

// GenerateInviteCode mints a code and, when an email address is given,
// attempts delivery synchronously. A failed send still returns the code;
// `emailSent` tells the admin whether to relay it by hand.
func (h *AdminHandler) GenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	var req inviteReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	code, err := h.Invites.Generate(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	emailSent := false
	if req.Email != "" && h.Mailer.Configured() {
		if err := h.Mailer.SendInvite(r.Context(), req.Email, code.Code, code.ExpiresAt); err != nil {
			slog.Error("invite email failed", "to", req.Email, "err", err)
		} else {
			emailSent = true
		}
	}

	writeData(w, http.StatusCreated, map[string]any{
		"code":      code.Code,
		"expiresAt": code.ExpiresAt.Format(time.RFC3339),
		"emailSent": emailSent,
	})
}

func (h *AdminHandler) ListDeletedNotes(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Notes.ListDeletedNotes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, rows)
}

func (h *AdminHandler) RestoreNote(w http.ResponseWriter, r *http.Request) {
	if err := h.Notes.RestoreNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *AdminHandler) PermanentlyDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.Notes.PermanentlyDeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (h *AdminHandler) ListDeletedReplies(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Notes.ListDeletedReplies(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, rows)
}

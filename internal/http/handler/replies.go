package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/guitar-and-frostedglass/diaryd/internal/note"

	"github.com/go-chi/chi/v5"
)

type createReplyReq struct {
	Content   string  `json:"content"`
	ReplyToID *string `json:"replyToId"`
}

func (h *NoteHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var req createReplyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	v, err := h.Svc.CreateReply(r.Context(), actorFrom(r), chi.URLParam(r, "id"), note.CreateReplyInput{
		Content:   req.Content,
		ReplyToID: req.ReplyToID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, v)
}

type updateReplyReq struct {
	Content string `json:"content"`
}

func (h *NoteHandler) UpdateReply(w http.ResponseWriter, r *http.Request) {
	var req updateReplyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	v, err := h.Svc.UpdateReply(r.Context(), actorFrom(r),
		chi.URLParam(r, "id"), chi.URLParam(r, "replyId"), req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (h *NoteHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	err := h.Svc.DeleteReply(r.Context(), actorFrom(r),
		chi.URLParam(r, "id"), chi.URLParam(r, "replyId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

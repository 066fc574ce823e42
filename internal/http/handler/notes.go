package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/guitar-and-frostedglass/diaryd/internal/auth"
	"github.com/guitar-and-frostedglass/diaryd/internal/note"

	"github.com/go-chi/chi/v5"
)

type NoteHandler struct {
	Svc *note.Service
}

func actorFrom(r *http.Request) note.Actor {
	id, _ := auth.IdentityFromContext(r.Context())
	return note.Actor{ID: id.UserID, Admin: id.IsAdmin()}
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	layer := note.Layer(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("layer"))))
	if layer == "" {
		layer = note.LayerSurface
	}
	if !note.ValidLayer(layer) {
		writeError(w, http.StatusBadRequest, "invalid layer")
		return
	}

	notes, err := h.Svc.ListNotes(r.Context(), actorFrom(r), layer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Svc.GetNote(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

type createNoteReq struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Color   *string `json:"color"`
	IsDraft bool    `json:"isDraft"`
	Layer   *string `json:"layer"`
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if len(req.Title) > note.MaxTitleLen {
		writeError(w, http.StatusBadRequest, "title too long")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	in := note.CreateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		Draft:   req.IsDraft,
	}
	if req.Color != nil {
		c := note.Color(strings.ToLower(*req.Color))
		if !note.ValidColor(c) {
			writeError(w, http.StatusBadRequest, "invalid color")
			return
		}
		in.Color = c
	}
	if req.Layer != nil {
		l := note.Layer(strings.ToUpper(*req.Layer))
		if !note.ValidLayer(l) {
			writeError(w, http.StatusBadRequest, "invalid layer")
			return
		}
		in.Layer = l
	}

	v, err := h.Svc.CreateNote(r.Context(), actorFrom(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, v)
}

type updateNoteReq struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Color   *string `json:"color"`
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateNoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	in := note.UpdateNoteInput{Title: req.Title, Content: req.Content}
	if req.Title != nil && len(strings.TrimSpace(*req.Title)) > note.MaxTitleLen {
		writeError(w, http.StatusBadRequest, "title too long")
		return
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content cannot be empty")
		return
	}
	if req.Color != nil {
		c := note.Color(strings.ToLower(*req.Color))
		if !note.ValidColor(c) {
			writeError(w, http.StatusBadRequest, "invalid color")
			return
		}
		in.Color = &c
	}

	v, err := h.Svc.UpdateNote(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (h *NoteHandler) Publish(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.PublishNote(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteNote(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

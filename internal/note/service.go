package note

import (
	"context"
	"errors"
	"time"

	"github.com/guitar-and-frostedglass/diaryd/internal/user"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("note not found")
var ErrReplyNotFound = errors.New("reply not found")
var ErrReplyNotInNote = errors.New("reply does not belong to this note")
var ErrForbidden = errors.New("no permission for this action")
var ErrNotDraft = errors.New("note is not a draft")
var ErrNoteNotPublished = errors.New("cannot reply to an unpublished note")

// Actor is the authenticated caller as far as authorization cares: an id and
// whether the admin override applies. Ownership checks are explicit
// predicates per operation, never role hierarchies.
type Actor struct {
	ID    string
	Admin bool
}

type Service struct {
	DB *gorm.DB
}

// UserRef is the owner/author projection attached to read results.
type UserRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type NoteView struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Color          Color     `json:"color"`
	Status         Status    `json:"status"`
	Layer          Layer     `json:"layer"`
	UserID         string    `json:"userId"`
	User           UserRef   `json:"user"`
	ReplyCount     int64     `json:"replyCount"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ReplyView carries the author projection and the quote tombstone flag:
// ReplyToDeleted is true when ReplyToID points at a reply that no longer
// exists in the thread.
type ReplyView struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	NoteID         string    `json:"noteId"`
	UserID         string    `json:"userId"`
	User           UserRef   `json:"user"`
	ReplyToID      *string   `json:"replyToId"`
	ReplyToDeleted bool      `json:"replyToDeleted"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type NoteDetail struct {
	NoteView
	Replies []ReplyView `json:"replies"`
}

type CreateNoteInput struct {
	Title   string
	Content string
	Color   Color
	Draft   bool
	Layer   Layer
}

type UpdateNoteInput struct {
	Title   *string
	Content *string
	Color   *Color
}

type CreateReplyInput struct {
	Content   string
	ReplyToID *string
}

func (s *Service) CreateNote(ctx context.Context, owner Actor, in CreateNoteInput) (*NoteView, error) {
	status := StatusPublished
	if in.Draft {
		status = StatusDraft
	}
	color := in.Color
	if color == "" {
		color = ColorYellow
	}
	layer := in.Layer
	if layer == "" {
		layer = LayerSurface
	}

	n := Note{
		Title:          in.Title,
		Content:        in.Content,
		Color:          color,
		Status:         status,
		Layer:          layer,
		UserID:         owner.ID,
		LastActivityAt: time.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	return s.noteView(s.DB.WithContext(ctx), &n)
}

// ListNotes returns the feed for one layer: everyone's PUBLISHED notes plus
// the viewer's own drafts, most recent activity first.
func (s *Service) ListNotes(ctx context.Context, viewer Actor, layer Layer) ([]NoteView, error) {
	db := s.DB.WithContext(ctx)

	var notes []Note
	err := db.
		Where("layer = ?", layer).
		Where("status = ? OR user_id = ?", StatusPublished, viewer.ID).
		Order("last_activity_at desc").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(notes))
	userIDs := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
		userIDs = append(userIDs, n.UserID)
	}
	counts, err := replyCounts(db, ids)
	if err != nil {
		return nil, err
	}
	names, err := displayNames(db, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]NoteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteView{
			ID:             n.ID,
			Title:          n.Title,
			Content:        n.Content,
			Color:          n.Color,
			Status:         n.Status,
			Layer:          n.Layer,
			UserID:         n.UserID,
			User:           UserRef{ID: n.UserID, DisplayName: names[n.UserID]},
			ReplyCount:     counts[n.ID],
			LastActivityAt: n.LastActivityAt,
			CreatedAt:      n.CreatedAt,
			UpdatedAt:      n.UpdatedAt,
		})
	}
	return out, nil
}

// GetNote returns one note with its ordered replies. Drafts resolve only for
// their owner; everyone else gets not-found, same as a missing id.
func (s *Service) GetNote(ctx context.Context, viewer Actor, noteID string) (*NoteDetail, error) {
	db := s.DB.WithContext(ctx)

	var n Note
	if err := db.First(&n, "id = ?", noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if n.Status == StatusDraft && n.UserID != viewer.ID {
		return nil, ErrNotFound
	}

	var replies []Reply
	if err := db.Where("note_id = ?", noteID).Order("created_at asc").Find(&replies).Error; err != nil {
		return nil, err
	}

	userIDs := []string{n.UserID}
	live := make(map[string]bool, len(replies))
	for _, r := range replies {
		userIDs = append(userIDs, r.UserID)
		live[r.ID] = true
	}
	names, err := displayNames(db, userIDs)
	if err != nil {
		return nil, err
	}

	detail := NoteDetail{
		NoteView: NoteView{
			ID:             n.ID,
			Title:          n.Title,
			Content:        n.Content,
			Color:          n.Color,
			Status:         n.Status,
			Layer:          n.Layer,
			UserID:         n.UserID,
			User:           UserRef{ID: n.UserID, DisplayName: names[n.UserID]},
			ReplyCount:     int64(len(replies)),
			LastActivityAt: n.LastActivityAt,
			CreatedAt:      n.CreatedAt,
			UpdatedAt:      n.UpdatedAt,
		},
		Replies: make([]ReplyView, 0, len(replies)),
	}
	for _, r := range replies {
		detail.Replies = append(detail.Replies, ReplyView{
			ID:             r.ID,
			Content:        r.Content,
			NoteID:         r.NoteID,
			UserID:         r.UserID,
			User:           UserRef{ID: r.UserID, DisplayName: names[r.UserID]},
			ReplyToID:      r.ReplyToID,
			ReplyToDeleted: r.ReplyToID != nil && !live[*r.ReplyToID],
			CreatedAt:      r.CreatedAt,
			UpdatedAt:      r.UpdatedAt,
		})
	}
	return &detail, nil
}

// UpdateNote is owner-only; there is no admin override for edits. Edits to a
// PUBLISHED note's title or content archive the pre-edit pair first, in the
// same transaction. Draft edits leave no history.
func (s *Service) UpdateNote(ctx context.Context, actor Actor, noteID string, in UpdateNoteInput) (*NoteView, error) {
	var view *NoteView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n Note
		if err := tx.First(&n, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if n.UserID != actor.ID {
			return ErrForbidden
		}

		titleChanges := in.Title != nil && *in.Title != n.Title
		contentChanges := in.Content != nil && *in.Content != n.Content
		if n.Status == StatusPublished && (titleChanges || contentChanges) {
			names, err := displayNames(tx, []string{actor.ID})
			if err != nil {
				return err
			}
			h := NoteEditHistory{
				NoteID:     n.ID,
				Title:      n.Title,
				Content:    n.Content,
				EditorID:   actor.ID,
				EditorName: names[actor.ID],
			}
			if err := tx.Create(&h).Error; err != nil {
				return err
			}
		}

		if in.Title != nil {
			n.Title = *in.Title
		}
		if in.Content != nil {
			n.Content = *in.Content
		}
		if in.Color != nil {
			n.Color = *in.Color
		}
		if err := tx.Save(&n).Error; err != nil {
			return err
		}

		v, err := s.noteView(tx, &n)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// PublishNote is the one-way DRAFT -> PUBLISHED transition.
func (s *Service) PublishNote(ctx context.Context, actor Actor, noteID string) (*NoteView, error) {
	var view *NoteView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n Note
		if err := tx.First(&n, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if n.UserID != actor.ID {
			return ErrForbidden
		}
		if n.Status != StatusDraft {
			return ErrNotDraft
		}
		n.Status = StatusPublished
		n.LastActivityAt = time.Now()
		if err := tx.Save(&n).Error; err != nil {
			return err
		}
		v, err := s.noteView(tx, &n)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteNote archives the note and its replies into a DeletedNote snapshot
// and removes the live rows, all or nothing. Reply authors are resolved to
// their current display names so the snapshot stays readable after those
// users are gone.
func (s *Service) DeleteNote(ctx context.Context, actor Actor, noteID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n Note
		if err := tx.First(&n, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if n.UserID != actor.ID && !actor.Admin {
			return ErrForbidden
		}

		var replies []Reply
		if err := tx.Where("note_id = ?", noteID).Order("created_at asc").Find(&replies).Error; err != nil {
			return err
		}

		userIDs := []string{n.UserID, actor.ID}
		for _, r := range replies {
			userIDs = append(userIDs, r.UserID)
		}
		names, err := displayNames(tx, userIDs)
		if err != nil {
			return err
		}

		snaps := make([]ReplySnapshot, 0, len(replies))
		for _, r := range replies {
			snaps = append(snaps, ReplySnapshot{
				ID:        r.ID,
				Content:   r.Content,
				UserID:    r.UserID,
				UserName:  names[r.UserID],
				CreatedAt: r.CreatedAt,
			})
		}
		raw, err := marshalSnapshots(snaps)
		if err != nil {
			return err
		}

		dn := DeletedNote{
			OriginalNoteID: n.ID,
			Title:          n.Title,
			Content:        n.Content,
			Color:          n.Color,
			NoteUserID:     n.UserID,
			NoteUserName:   names[n.UserID],
			Replies:        raw,
			DeletedByID:    actor.ID,
			DeletedByName:  names[actor.ID],
			SelfDeleted:    actor.ID == n.UserID,
			NoteCreatedAt:  n.CreatedAt,
			DeletedAt:      time.Now(),
		}
		if err := tx.Create(&dn).Error; err != nil {
			return err
		}

		if err := tx.Where("note_id = ?", noteID).Delete(&Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&n).Error
	})
}

// CreateReply inserts the reply and bumps the parent's LastActivityAt in the
// same transaction; the bump is what resurfaces active threads in the feed.
// ReplyToID is stored as given, without requiring the target to exist.
func (s *Service) CreateReply(ctx context.Context, author Actor, noteID string, in CreateReplyInput) (*ReplyView, error) {
	var view *ReplyView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n Note
		if err := tx.First(&n, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if n.Status == StatusDraft {
			if n.UserID != author.ID {
				return ErrNotFound
			}
			return ErrNoteNotPublished
		}

		r := Reply{
			Content:   in.Content,
			NoteID:    n.ID,
			UserID:    author.ID,
			ReplyToID: in.ReplyToID,
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}

		if err := tx.Model(&Note{}).Where("id = ?", n.ID).
			Update("last_activity_at", time.Now()).Error; err != nil {
			return err
		}

		names, err := displayNames(tx, []string{author.ID})
		if err != nil {
			return err
		}
		view = &ReplyView{
			ID:        r.ID,
			Content:   r.Content,
			NoteID:    r.NoteID,
			UserID:    r.UserID,
			User:      UserRef{ID: r.UserID, DisplayName: names[r.UserID]},
			ReplyToID: r.ReplyToID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateReply is author-only, no admin override. The pre-edit content goes to
// ReplyEditHistory in the same transaction as the overwrite.
func (s *Service) UpdateReply(ctx context.Context, author Actor, noteID, replyID, content string) (*ReplyView, error) {
	var view *ReplyView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := findReplyInNote(tx, noteID, replyID)
		if err != nil {
			return err
		}
		if r.UserID != author.ID {
			return ErrForbidden
		}

		names, err := displayNames(tx, []string{author.ID})
		if err != nil {
			return err
		}
		h := ReplyEditHistory{
			ReplyID:    r.ID,
			NoteID:     r.NoteID,
			Content:    r.Content,
			EditorID:   author.ID,
			EditorName: names[author.ID],
		}
		if err := tx.Create(&h).Error; err != nil {
			return err
		}

		r.Content = content
		if err := tx.Save(r).Error; err != nil {
			return err
		}

		view = &ReplyView{
			ID:        r.ID,
			Content:   r.Content,
			NoteID:    r.NoteID,
			UserID:    r.UserID,
			User:      UserRef{ID: r.UserID, DisplayName: names[r.UserID]},
			ReplyToID: r.ReplyToID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteReply snapshots the reply into DeletedReply, then removes it.
// Allowed for the author or an admin.
func (s *Service) DeleteReply(ctx context.Context, actor Actor, noteID, replyID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := findReplyInNote(tx, noteID, replyID)
		if err != nil {
			return err
		}
		if r.UserID != actor.ID && !actor.Admin {
			return ErrForbidden
		}

		var n Note
		if err := tx.First(&n, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		names, err := displayNames(tx, []string{r.UserID, actor.ID})
		if err != nil {
			return err
		}
		dr := DeletedReply{
			OriginalReplyID: r.ID,
			Content:         r.Content,
			NoteID:          r.NoteID,
			NoteTitle:       n.Title,
			ReplyUserID:     r.UserID,
			ReplyUserName:   names[r.UserID],
			DeletedByID:     actor.ID,
			DeletedByName:   names[actor.ID],
			SelfDeleted:     actor.ID == r.UserID,
			ReplyCreatedAt:  r.CreatedAt,
			DeletedAt:       time.Now(),
		}
		if err := tx.Create(&dr).Error; err != nil {
			return err
		}
		return tx.Delete(r).Error
	})
}

func findReplyInNote(tx *gorm.DB, noteID, replyID string) (*Reply, error) {
	var r Reply
	if err := tx.First(&r, "id = ?", replyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReplyNotFound
		}
		return nil, err
	}
	if r.NoteID != noteID {
		return nil, ErrReplyNotInNote
	}
	return &r, nil
}

func (s *Service) noteView(tx *gorm.DB, n *Note) (*NoteView, error) {
	counts, err := replyCounts(tx, []string{n.ID})
	if err != nil {
		return nil, err
	}
	names, err := displayNames(tx, []string{n.UserID})
	if err != nil {
		return nil, err
	}
	return &NoteView{
		ID:             n.ID,
		Title:          n.Title,
		Content:        n.Content,
		Color:          n.Color,
		Status:         n.Status,
		Layer:          n.Layer,
		UserID:         n.UserID,
		User:           UserRef{ID: n.UserID, DisplayName: names[n.UserID]},
		ReplyCount:     counts[n.ID],
		LastActivityAt: n.LastActivityAt,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}, nil
}

func replyCounts(tx *gorm.DB, noteIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(noteIDs))
	if len(noteIDs) == 0 {
		return out, nil
	}
	type row struct {
		NoteID string
		Count  int64
	}
	var rows []row
	err := tx.Model(&Reply{}).
		Select("note_id, count(*) as count").
		Where("note_id IN ?", noteIDs).
		Group("note_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.NoteID] = r.Count
	}
	return out, nil
}

func displayNames(tx *gorm.DB, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	seen := make(map[string]struct{}, len(userIDs))
	uniq := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	var users []user.User
	if err := tx.Select("id", "display_name").Where("id IN ?", uniq).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.DisplayName
	}
	return out, nil
}

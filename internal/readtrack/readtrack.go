// Package readtrack implements the client-side read-tracking policy: a
// per-user map of noteID -> last seen reply count, persisted locally and
// treated as a discardable cache. Losing it only makes everything look
// unread again; it is never a system of record.
package readtrack

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Store persists one counts map per user id. Namespacing by user id keeps
// read state from leaking between accounts on a shared device.
type Store interface {
	Load(userID string) (map[string]int, error)
	Save(userID string, counts map[string]int) error
}

// FileStore keeps one JSON file per user under Dir.
type FileStore struct {
	Dir string
}

func (f *FileStore) path(userID string) string {
	return filepath.Join(f.Dir, "read_counts_"+userID+".json")
}

func (f *FileStore) Load(userID string) (map[string]int, error) {
	b, err := os.ReadFile(f.path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	counts := map[string]int{}
	if err := json.Unmarshal(b, &counts); err != nil {
		// a corrupt cache is equivalent to no cache
		return map[string]int{}, nil
	}
	return counts, nil
}

func (f *FileStore) Save(userID string, counts map[string]int) error {
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path(userID), b, 0o600)
}

// MemStore is an in-process Store for tests and ephemeral sessions.
type MemStore struct {
	m map[string]map[string]int
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]map[string]int{}}
}

func (s *MemStore) Load(userID string) (map[string]int, error) {
	counts := map[string]int{}
	for k, v := range s.m[userID] {
		counts[k] = v
	}
	return counts, nil
}

func (s *MemStore) Save(userID string, counts map[string]int) error {
	cp := make(map[string]int, len(counts))
	for k, v := range counts {
		cp[k] = v
	}
	s.m[userID] = cp
	return nil
}

// Tracker is one user's read state. Absence of a key means the note was
// never opened; presence records the reply count visible when it last was.
type Tracker struct {
	userID string
	store  Store
	counts map[string]int
}

func Open(userID string, store Store) (*Tracker, error) {
	counts, err := store.Load(userID)
	if err != nil {
		return nil, err
	}
	return &Tracker{userID: userID, store: store, counts: counts}, nil
}

func (t *Tracker) save() error {
	return t.store.Save(t.userID, t.counts)
}

// SeedAll fills in entries for notes seen for the first time, using their
// current reply counts. Run on every list fetch so pre-existing notes read
// as "already seen up to now" instead of flooding the UI on first load.
// Existing entries are left alone.
func (t *Tracker) SeedAll(current map[string]int) error {
	changed := false
	for noteID, count := range current {
		if _, ok := t.counts[noteID]; !ok {
			t.counts[noteID] = count
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return t.save()
}

// MarkRead records the current reply count as seen. Called when a thread is
// opened.
func (t *Tracker) MarkRead(noteID string, replyCount int) error {
	t.counts[noteID] = replyCount
	return t.save()
}

// NoteCreated seeds the creator's own note at zero: you have implicitly seen
// a note with no replies.
func (t *Tracker) NoteCreated(noteID string) error {
	t.counts[noteID] = 0
	return t.save()
}

func (t *Tracker) NoteDeleted(noteID string) error {
	if _, ok := t.counts[noteID]; !ok {
		return nil
	}
	delete(t.counts, noteID)
	return t.save()
}

// Unread reports whether the note has replies beyond what was last seen.
// A note with no replies is never unread; a note never seeded is unread
// (transient: seeding on fetch closes that window).
func (t *Tracker) Unread(noteID string, replyCount int) bool {
	if replyCount == 0 {
		return false
	}
	seen, ok := t.counts[noteID]
	if !ok {
		return true
	}
	return replyCount > seen
}

// Recent classifies a genuinely new, untouched topic: published, never
// opened, and no replies yet. Distinct from Unread, which requires replies
// beyond what was seen.
func (t *Tracker) Recent(noteID string, replyCount int, published bool) bool {
	if !published || replyCount != 0 {
		return false
	}
	_, seeded := t.counts[noteID]
	return !seeded
}

// Seen returns the stored count for a note, with presence.
func (t *Tracker) Seen(noteID string) (int, bool) {
	n, ok := t.counts[noteID]
	return n, ok
}

package readtrack

import (
	"sort"
	"time"
)

// NoteSummary is the slice of a note the feed cares about.
type NoteSummary struct {
	ID             string
	Title          string
	ReplyCount     int
	LastActivityAt time.Time
	Published      bool
}

// Feed mirrors the server's note list in a client session. Reply counts and
// activity times are adjusted locally on reply create/delete instead of
// re-fetching, and the list is re-sorted the same way the server orders it
// (last activity, newest first).
type Feed struct {
	tracker *Tracker
	notes   []NoteSummary
	index   map[string]int
}

func NewFeed(t *Tracker) *Feed {
	return &Feed{tracker: t, index: map[string]int{}}
}

// Replace swaps in a freshly fetched list, sorts it, and seeds the tracker
// with the counts of any note seen for the first time.
func (f *Feed) Replace(notes []NoteSummary) error {
	f.notes = make([]NoteSummary, len(notes))
	copy(f.notes, notes)
	f.resort()

	current := make(map[string]int, len(notes))
	for _, n := range notes {
		current[n.ID] = n.ReplyCount
	}
	return f.tracker.SeedAll(current)
}

// Add prepends a note the session itself just created and seeds its read
// state at zero.
func (f *Feed) Add(n NoteSummary) error {
	f.notes = append([]NoteSummary{n}, f.notes...)
	f.resort()
	return f.tracker.NoteCreated(n.ID)
}

func (f *Feed) Remove(noteID string) error {
	for i, n := range f.notes {
		if n.ID == noteID {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			break
		}
	}
	f.resort()
	return f.tracker.NoteDeleted(noteID)
}

// ApplyReply bumps the note's local reply count and activity time after this
// session posted a reply, then re-sorts. The new count is recorded as seen:
// your own reply is not unread to you.
func (f *Feed) ApplyReply(noteID string, at time.Time) error {
	i, ok := f.index[noteID]
	if !ok {
		return nil
	}
	f.notes[i].ReplyCount++
	f.notes[i].LastActivityAt = at
	count := f.notes[i].ReplyCount
	f.resort()
	return f.tracker.MarkRead(noteID, count)
}

// RemoveReply decrements the local count after this session deleted a reply.
// Activity time is left as is; deletions do not resurface threads.
func (f *Feed) RemoveReply(noteID string) error {
	i, ok := f.index[noteID]
	if !ok {
		return nil
	}
	if f.notes[i].ReplyCount > 0 {
		f.notes[i].ReplyCount--
	}
	count := f.notes[i].ReplyCount
	return f.tracker.MarkRead(noteID, count)
}

// MarkRead records the note's current local count as seen.
func (f *Feed) MarkRead(noteID string) error {
	i, ok := f.index[noteID]
	if !ok {
		return nil
	}
	return f.tracker.MarkRead(noteID, f.notes[i].ReplyCount)
}

func (f *Feed) Unread(noteID string) bool {
	i, ok := f.index[noteID]
	if !ok {
		return false
	}
	return f.tracker.Unread(noteID, f.notes[i].ReplyCount)
}

func (f *Feed) Recent(noteID string) bool {
	i, ok := f.index[noteID]
	if !ok {
		return false
	}
	n := f.notes[i]
	return f.tracker.Recent(noteID, n.ReplyCount, n.Published)
}

// Notes returns the current ordering.
func (f *Feed) Notes() []NoteSummary {
	out := make([]NoteSummary, len(f.notes))
	copy(out, f.notes)
	return out
}

func (f *Feed) resort() {
	sort.SliceStable(f.notes, func(i, j int) bool {
		return f.notes[i].LastActivityAt.After(f.notes[j].LastActivityAt)
	})
	f.index = make(map[string]int, len(f.notes))
	for i, n := range f.notes {
		f.index[n.ID] = i
	}
}

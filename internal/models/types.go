package models

import "time"

const (
	// MaxNotes is the number of notes a user may hold inside one window.
	MaxNotes = 10
	// Window is the length of a quota period.
	Window = 24 * time.Hour
)

// Note is a single stored message. ID is a 1-based display index that is
// reassigned whenever an earlier note is deleted.
type Note struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"date"`
}

// UserRecord is everything persisted for one user.
type UserRecord struct {
	Notes   []Note    `json:"notes"`
	ResetAt time.Time `json:"reset_date"`
}

// NewUserRecord returns an empty record whose window starts at now.
func NewUserRecord(now time.Time) UserRecord {
	return UserRecord{
		Notes:   []Note{},
		ResetAt: now.Add(Window),
	}
}

// Clone returns a deep copy so callers can mutate notes freely.
func (r UserRecord) Clone() UserRecord {
	notes := make([]Note, len(r.Notes))
	copy(notes, r.Notes)
	return UserRecord{Notes: notes, ResetAt: r.ResetAt}
}

// Remaining reports how many notes can still be added in the current window.
func (r UserRecord) Remaining() int {
	if n := MaxNotes - len(r.Notes); n > 0 {
		return n
	}
	return 0
}

// Package ledger implements the operations over one user's notes. Every
// function returns a new record and leaves its input untouched.
//
// Note ids are display indexes, not stable keys: after a deletion the
// remaining notes are renumbered so the visible range is always 1..N.
package ledger

import (
	"errors"
	"time"

	"notebot/internal/models"
)

var (
	ErrQuotaExceeded = errors.New("note quota exceeded")
	ErrNotFound      = errors.New("note not found")
)

// Append adds text as the next note.
func Append(rec models.UserRecord, text string, now time.Time) (models.UserRecord, error) {
	if len(rec.Notes) >= models.MaxNotes {
		return rec, ErrQuotaExceeded
	}
	next := rec.Clone()
	next.Notes = append(next.Notes, models.Note{
		ID:        len(next.Notes) + 1,
		Text:      text,
		CreatedAt: now,
	})
	return next, nil
}

// List returns the notes in ascending id order.
func List(rec models.UserRecord) []models.Note {
	return rec.Clone().Notes
}

// Delete removes the note with the given id and renumbers the rest,
// preserving their order.
func Delete(rec models.UserRecord, id int) (models.UserRecord, error) {
	idx := -1
	for i, n := range rec.Notes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rec, ErrNotFound
	}

	next := models.UserRecord{
		Notes:   make([]models.Note, 0, len(rec.Notes)-1),
		ResetAt: rec.ResetAt,
	}
	for i, n := range rec.Notes {
		if i == idx {
			continue
		}
		n.ID = len(next.Notes) + 1
		next.Notes = append(next.Notes, n)
	}
	return next, nil
}

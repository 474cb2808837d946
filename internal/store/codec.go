package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"notebot/internal/models"
)

// Timestamps written by older deployments carry no zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type persistedNote struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

type persistedRecord struct {
	Notes     []persistedNote `json:"notes"`
	ResetDate string          `json:"reset_date"`
}

// EncodeRecords renders the whole collection in its persisted layout.
func EncodeRecords(records map[string]models.UserRecord) ([]byte, error) {
	out := make(map[string]persistedRecord, len(records))
	for id, rec := range records {
		out[id] = persistedRecord{
			Notes:     toPersisted(rec.Notes),
			ResetDate: FormatTime(rec.ResetAt),
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeRecords parses and validates the whole collection. Empty input is an
// empty collection.
func DecodeRecords(data []byte) (map[string]models.UserRecord, error) {
	records := make(map[string]models.UserRecord)
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}

	var raw map[string]persistedRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedState)
	}

	for id, pr := range raw {
		if id == "" {
			return nil, fmt.Errorf("%w: empty user id", ErrMalformedState)
		}
		resetAt, err := ParseTime(pr.ResetDate)
		if err != nil {
			return nil, fmt.Errorf("%w: user %s: reset_date: %v", ErrMalformedState, id, err)
		}
		notes, err := fromPersisted(pr.Notes)
		if err != nil {
			return nil, fmt.Errorf("%w: user %s: %v", ErrMalformedState, id, err)
		}
		records[id] = models.UserRecord{Notes: notes, ResetAt: resetAt}
	}
	return records, nil
}

// EncodeNotes renders a single note list, as stored in a SQL column.
func EncodeNotes(notes []models.Note) (string, error) {
	b, err := json.Marshal(toPersisted(notes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeNotes parses and validates a single note list.
func DecodeNotes(data string) ([]models.Note, error) {
	var raw []persistedNote
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	notes, err := fromPersisted(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return notes, nil
}

// FormatTime is the persisted timestamp format.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTime accepts RFC 3339 and zone-less ISO 8601 timestamps; the latter
// are read in local time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func toPersisted(notes []models.Note) []persistedNote {
	out := make([]persistedNote, len(notes))
	for i, n := range notes {
		out[i] = persistedNote{ID: n.ID, Text: n.Text, Date: FormatTime(n.CreatedAt)}
	}
	return out
}

func fromPersisted(raw []persistedNote) ([]models.Note, error) {
	if len(raw) > models.MaxNotes {
		return nil, fmt.Errorf("%d notes exceeds limit of %d", len(raw), models.MaxNotes)
	}
	notes := make([]models.Note, len(raw))
	for i, pn := range raw {
		if pn.ID != i+1 {
			return nil, fmt.Errorf("note at position %d has id %d", i+1, pn.ID)
		}
		created, err := ParseTime(pn.Date)
		if err != nil {
			return nil, fmt.Errorf("note %d: date: %v", pn.ID, err)
		}
		notes[i] = models.Note{ID: pn.ID, Text: pn.Text, CreatedAt: created}
	}
	return notes, nil
}

package quota

import (
	"testing"
	"time"

	"notebot/internal/models"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestResetIfExpired(t *testing.T) {
	start := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	rec := models.NewUserRecord(start)
	rec.Notes = []models.Note{{ID: 1, Text: "a", CreatedAt: start}}

	t.Run("before expiry", func(t *testing.T) {
		m := New(func() time.Time { return start.Add(23 * time.Hour) })
		got, reset := m.ResetIfExpired(rec)
		assert.False(t, reset)
		assert.Equal(t, rec, got)
	})

	t.Run("at expiry", func(t *testing.T) {
		now := start.Add(24 * time.Hour)
		m := New(func() time.Time { return now })
		got, reset := m.ResetIfExpired(rec)
		assert.True(t, reset)
		assert.Empty(t, got.Notes)
		assert.Equal(t, now.Add(24*time.Hour), got.ResetAt)
	})

	t.Run("long after expiry", func(t *testing.T) {
		now := start.Add(100 * time.Hour)
		m := New(func() time.Time { return now })
		got, reset := m.ResetIfExpired(rec)
		assert.True(t, reset)
		assert.Empty(t, got.Notes)
		assert.Equal(t, now.Add(models.Window), got.ResetAt)
	})
}

func TestFreshRecordNeverResets(t *testing.T) {
	now := time.Now()
	m := New(func() time.Time { return now })
	_, reset := m.ResetIfExpired(models.NewUserRecord(now))
	assert.False(t, reset)
}

func TestResetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := time.Unix(rapid.Int64Range(0, 1<<32).Draw(t, "start"), 0)
		offset := time.Duration(rapid.Int64Range(0, int64(72*time.Hour)).Draw(t, "offset"))
		now := start.Add(offset)

		rec := models.NewUserRecord(start)
		rec.Notes = []models.Note{{ID: 1, Text: "x", CreatedAt: start}}

		got, reset := New(func() time.Time { return now }).ResetIfExpired(rec)
		if offset < models.Window {
			if reset || len(got.Notes) != 1 {
				t.Fatalf("reset before expiry at offset %v", offset)
			}
			return
		}
		if !reset || len(got.Notes) != 0 || !got.ResetAt.Equal(now.Add(models.Window)) {
			t.Fatalf("expected reset at offset %v, got %+v", offset, got)
		}
	})
}

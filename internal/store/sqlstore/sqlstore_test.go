package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"notebot/internal/models"
	"notebot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func newMemoryStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := New("sqlite3", ":memory:", store.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendNote(text string) store.UpdateFunc {
	return func(rec *models.UserRecord) (bool, error) {
		rec.Notes = append(rec.Notes, models.Note{ID: len(rec.Notes) + 1, Text: text, CreatedAt: now})
		return true, nil
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dbType: Postgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLStore{dbType: SQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New("mysql", "")
	assert.Error(t, err)
}

func TestGetOrCreate(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	rec, err := s.GetOrCreate(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, rec.Notes)
	assert.True(t, rec.ResetAt.Equal(now.Add(models.Window)))

	records, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, records, "42")
}

func TestUpdateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	s, err := New("sqlite3", path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Update(ctx, "1", appendNote("first"))
	require.NoError(t, err)
	_, err = s.Update(ctx, "1", appendNote("second"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New("sqlite3", path)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.GetOrCreate(ctx, "1")
	require.NoError(t, err)
	require.Len(t, rec.Notes, 2)
	assert.Equal(t, "second", rec.Notes[1].Text)
	assert.Equal(t, 2, rec.Notes[1].ID)
}

func TestUpdateErrorRollsBack(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	_, err := s.Update(ctx, "1", appendNote("keep"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Update(ctx, "1", func(rec *models.UserRecord) (bool, error) {
		rec.Notes = nil
		return true, boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := s.GetOrCreate(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, rec.Notes, 1)
}

func TestUpdateErrorStillCreatesRecord(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := s.Update(ctx, "new", func(rec *models.UserRecord) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)

	records, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, records, "new")
}

func TestSaveReplacesEverything(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	_, err := s.Update(ctx, "old", appendNote("x"))
	require.NoError(t, err)

	rec := models.NewUserRecord(now)
	rec.Notes = []models.Note{{ID: 1, Text: "seeded", CreatedAt: now}}
	require.NoError(t, s.Save(ctx, map[string]models.UserRecord{"fresh": rec}))

	records, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, records, "old")
	require.Contains(t, records, "fresh")
	assert.Equal(t, "seeded", records["fresh"].Notes[0].Text)
}

func TestMalformedRowRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	s, err := New("sqlite3", path)
	require.NoError(t, err)
	_, err = s.db.Exec("INSERT INTO user_records (user_id, notes, reset_date) VALUES (?, ?, ?)", "1", "not json", "2025-01-01T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = New("sqlite3", path)
	assert.ErrorIs(t, err, store.ErrMalformedState)
}

func TestConcurrentUpdates(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", i%3)
			_, err := s.Update(ctx, userID, appendNote(fmt.Sprint(i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	records, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for id, rec := range records {
		assert.Len(t, rec.Notes, 10, id)
		for i, n := range rec.Notes {
			assert.Equal(t, i+1, n.ID)
		}
	}
}

func TestSeparateStoresShareRows(t *testing.T) {
	// Two stores on one database stand in for two processes: their Lockers
	// are independent, so only the database serializes them.
	dsn := filepath.Join(t.TempDir(), "notes.db") + "?_txlock=immediate&_busy_timeout=10000"
	a, err := New("sqlite3", dsn, store.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	defer a.Close()
	b, err := New("sqlite3", dsn, store.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < models.MaxNotes; i++ {
		s := a
		if i%2 == 1 {
			s = b
		}
		wg.Add(1)
		go func(s *SQLStore, i int) {
			defer wg.Done()
			_, err := s.Update(ctx, "fresh", appendNote(fmt.Sprint(i)))
			assert.NoError(t, err)
		}(s, i)
	}
	wg.Wait()

	rec, err := a.GetOrCreate(ctx, "fresh")
	require.NoError(t, err)
	require.Len(t, rec.Notes, models.MaxNotes, "no creation or append was lost")
	for i, n := range rec.Notes {
		assert.Equal(t, i+1, n.ID)
	}
}

func TestCreateOnNoopUpdateCommits(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	rec, err := s.Update(ctx, "quiet", func(*models.UserRecord) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.True(t, rec.ResetAt.Equal(now.Add(models.Window)))

	records, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, records, "quiet")
}

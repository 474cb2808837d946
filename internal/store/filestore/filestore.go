// Package filestore keeps every user record in memory and snapshots the whole
// collection to a single JSON file after each mutation.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"notebot/internal/models"
	"notebot/internal/store"
)

// FileStore implements store.Store on top of one JSON document.
type FileStore struct {
	path   string
	config store.Config
	locks  store.Locker

	mu      sync.Mutex // guards records and the file
	records map[string]models.UserRecord
}

var _ store.Store = (*FileStore)(nil)

// Open reads path and validates its contents. A missing file is an empty
// collection; a malformed one fails with store.ErrMalformedState.
func Open(path string, opts ...store.Option) (*FileStore, error) {
	records, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		path:    path,
		config:  store.NewConfig(opts...),
		records: records,
	}, nil
}

func readFile(path string) (map[string]models.UserRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]models.UserRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	records, err := store.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Load returns a copy of every record.
func (s *FileStore) Load(ctx context.Context) (map[string]models.UserRecord, error) {
	unlock := s.locks.LockAll()
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.records), nil
}

// Save replaces the whole collection. The in-memory state is only swapped
// once the snapshot is on disk.
func (s *FileStore) Save(ctx context.Context, records map[string]models.UserRecord) error {
	unlock := s.locks.LockAll()
	defer unlock()

	next := cloneAll(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flush(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

func (s *FileStore) GetOrCreate(ctx context.Context, userID string) (models.UserRecord, error) {
	return s.Update(ctx, userID, func(*models.UserRecord) (bool, error) {
		return false, nil
	})
}

func (s *FileStore) Update(ctx context.Context, userID string, fn store.UpdateFunc) (models.UserRecord, error) {
	if userID == "" {
		return models.UserRecord{}, fmt.Errorf("empty user id")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	s.mu.Lock()
	current, exists := s.records[userID]
	s.mu.Unlock()

	if !exists {
		current = models.NewUserRecord(s.config.Now())
	}

	next := current.Clone()
	changed, err := fn(&next)
	if err != nil {
		if !exists {
			if perr := s.put(userID, current); perr != nil {
				return models.UserRecord{}, perr
			}
		}
		return models.UserRecord{}, err
	}
	if !changed && exists {
		return next, nil
	}
	if err := s.put(userID, next); err != nil {
		return models.UserRecord{}, err
	}
	return next.Clone(), nil
}

// put commits a single record, restoring the previous in-memory value when
// the snapshot cannot be written.
func (s *FileStore) put(userID string, rec models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.records[userID]
	s.records[userID] = rec
	if err := s.flush(s.records); err != nil {
		if had {
			s.records[userID] = prev
		} else {
			delete(s.records, userID)
		}
		return err
	}
	return nil
}

func (s *FileStore) flush(records map[string]models.UserRecord) error {
	data, err := store.EncodeRecords(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func cloneAll(records map[string]models.UserRecord) map[string]models.UserRecord {
	out := make(map[string]models.UserRecord, len(records))
	for id, rec := range records {
		out[id] = rec.Clone()
	}
	return out
}

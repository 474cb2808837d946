package store

import (
	"context"
	"errors"
	"time"

	"notebot/internal/models"
)

// ErrMalformedState is returned when the persisted form exists but cannot be
// decoded or fails validation. It is fatal at startup.
var ErrMalformedState = errors.New("malformed persisted state")

// UpdateFunc mutates rec in place. It reports whether rec changed; a non-nil
// error aborts the update and nothing it did is persisted.
type UpdateFunc func(rec *models.UserRecord) (changed bool, err error)

// Store defines the interface for all persistence operations
type Store interface {
	// Load returns every user record.
	Load(ctx context.Context) (map[string]models.UserRecord, error)
	// Save replaces every user record.
	Save(ctx context.Context, records map[string]models.UserRecord) error

	// GetOrCreate returns the record for userID, creating and persisting a
	// fresh one when absent.
	GetOrCreate(ctx context.Context, userID string) (models.UserRecord, error)
	// Update runs fn inside the per-user critical section and persists the
	// result when fn reports a change. The record is created first if absent.
	Update(ctx context.Context, userID string, fn UpdateFunc) (models.UserRecord, error)

	Close() error
}

// Config holds settings shared by every Store implementation.
type Config struct {
	Now func() time.Time
}

// Option configures a Store.
type Option func(*Config)

// WithClock overrides the time source used for new records.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// NewConfig applies opts over the defaults.
func NewConfig(opts ...Option) Config {
	cfg := Config{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

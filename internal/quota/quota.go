// Package quota tracks the rolling daily window. Expiry is discovered lazily
// when a record is touched.
package quota

import (
	"time"

	"notebot/internal/models"
)

type Manager struct {
	now    func() time.Time
	window time.Duration
}

// New returns a Manager reading time from now. A nil now uses time.Now.
func New(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{now: now, window: models.Window}
}

// Now exposes the manager's clock so callers stamp notes consistently.
func (m *Manager) Now() time.Time {
	return m.now()
}

// ResetIfExpired clears rec and opens a new window when the current one has
// ended. The second result reports whether a reset happened.
func (m *Manager) ResetIfExpired(rec models.UserRecord) (models.UserRecord, bool) {
	now := m.now()
	if now.Before(rec.ResetAt) {
		return rec, false
	}
	return models.UserRecord{
		Notes:   []models.Note{},
		ResetAt: now.Add(m.window),
	}, true
}

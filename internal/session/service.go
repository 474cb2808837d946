// Package session turns gateway events into atomic per-user store updates.
package session

import (
	"context"
	"errors"

	"notebot/internal/ledger"
	"notebot/internal/models"
	"notebot/internal/quota"
	"notebot/internal/store"

	"go.uber.org/zap"
)

var (
	ErrQuotaExceeded = ledger.ErrQuotaExceeded
	ErrNotFound      = ledger.ErrNotFound
)

// Confirmation is returned after a successful mutation.
type Confirmation struct {
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

type Service struct {
	store store.Store
	quota *quota.Manager
	log   *zap.Logger
}

func NewService(st store.Store, q *quota.Manager, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, quota: q, log: log}
}

// OnMessage stores text as a new note. When the quota is exhausted nothing
// is persisted and ErrQuotaExceeded is returned.
func (s *Service) OnMessage(ctx context.Context, userID, text string) (Confirmation, error) {
	rec, err := s.store.Update(ctx, userID, func(rec *models.UserRecord) (bool, error) {
		current, _ := s.quota.ResetIfExpired(*rec)
		next, err := ledger.Append(current, text, s.quota.Now())
		if err != nil {
			return false, err
		}
		*rec = next
		return true, nil
	})
	if err != nil {
		s.logFailure("append note", userID, err)
		return Confirmation{}, err
	}

	conf := confirm(rec)
	s.log.Debug("note stored", zap.String("user_id", userID), zap.Int("remaining", conf.Remaining))
	return conf, nil
}

// OnList returns every note with a list-length preview.
func (s *Service) OnList(ctx context.Context, userID string) ([]ledger.Item, error) {
	return s.previews(ctx, userID, ledger.ListPreviewLen)
}

// OnDeleteMenu returns every note with a menu-length preview.
func (s *Service) OnDeleteMenu(ctx context.Context, userID string) ([]ledger.Item, error) {
	return s.previews(ctx, userID, ledger.MenuPreviewLen)
}

// OnDeleteConfirm removes note id. An unknown id returns ErrNotFound and
// leaves the record untouched.
func (s *Service) OnDeleteConfirm(ctx context.Context, userID string, id int) (Confirmation, error) {
	rec, err := s.store.Update(ctx, userID, func(rec *models.UserRecord) (bool, error) {
		current, _ := s.quota.ResetIfExpired(*rec)
		next, err := ledger.Delete(current, id)
		if err != nil {
			return false, err
		}
		*rec = next
		return true, nil
	})
	if err != nil {
		s.logFailure("delete note", userID, err, zap.Int("note_id", id))
		return Confirmation{}, err
	}

	conf := confirm(rec)
	s.log.Debug("note deleted", zap.String("user_id", userID), zap.Int("note_id", id), zap.Int("remaining", conf.Remaining))
	return conf, nil
}

func (s *Service) previews(ctx context.Context, userID string, limit int) ([]ledger.Item, error) {
	rec, err := s.store.Update(ctx, userID, func(rec *models.UserRecord) (bool, error) {
		next, reset := s.quota.ResetIfExpired(*rec)
		if reset {
			s.log.Info("quota window reset", zap.String("user_id", userID))
		}
		*rec = next
		return reset, nil
	})
	if err != nil {
		s.logFailure("list notes", userID, err)
		return nil, err
	}
	return ledger.Previews(ledger.List(rec), limit), nil
}

func (s *Service) logFailure(op, userID string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("user_id", userID), zap.Error(err))
	if IsDomainError(err) {
		s.log.Debug(op+" rejected", fields...)
		return
	}
	s.log.Error(op+" failed", fields...)
}

// IsDomainError reports whether err is a user-facing outcome rather than an
// infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrNotFound)
}

func confirm(rec models.UserRecord) Confirmation {
	return Confirmation{Remaining: rec.Remaining(), Limit: models.MaxNotes}
}

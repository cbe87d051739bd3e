package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crewboard/internal/models"
)

// CreateSession opens a login session for the worker with the given
// lifetime and returns it with a fresh opaque token.
func (s *Store) CreateSession(ctx context.Context, workerID uint, ttl time.Duration) (*models.Session, error) {
	session := models.Session{
		Token:     uuid.NewString(),
		WorkerID:  workerID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// GetSession resolves a token to a live session and its worker.
// Expired sessions are deleted on sight and reported as not found.
func (s *Store) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Preload("Worker").
		Where("token = ?", token).
		First(&session).Error
	if err != nil {
		return nil, asNotFound(err, "session")
	}
	if session.Expired(time.Now()) {
		_ = s.DeleteSession(ctx, token)
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	return &session, nil
}

// DeleteSession ends a session. Unknown tokens are not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions drops sessions past their lifetime and returns
// how many were removed. Run periodically from main.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountWorkers reports the total number of worker accounts. Used by
// the first-run bootstrap.
func (s *Store) CountWorkers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Worker{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count workers: %w", err)
	}
	return count, nil
}

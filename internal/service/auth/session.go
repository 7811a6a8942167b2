package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/pkg/cache"
)

// Sessions stores session state under session:<id>. Every Save extends
// the TTL, so a session lives as long as it keeps being used.
type Sessions struct {
	store cache.Service
	ttl   time.Duration
	now   func() time.Time
}

func NewSessions(store cache.Service, ttl time.Duration) *Sessions {
	return &Sessions{store: store, ttl: ttl, now: time.Now}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// NewID returns a fresh random session id.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id looks like an id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Load returns the session for id. Unknown or expired ids yield a new
// anonymous session with that id.
func (s *Sessions) Load(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.store.Get(ctx, s.key(id), &sess)
	switch {
	case err == nil && sess.ID == id:
		return &sess, nil
	case err == nil, errors.Is(err, cache.ErrCacheMiss):
		return &models.Session{ID: id, CreatedAt: s.now()}, nil
	default:
		return nil, fmt.Errorf("load session: %w", err)
	}
}

func (s *Sessions) Save(ctx context.Context, sess *models.Session) error {
	if err := s.store.Set(ctx, s.key(sess.ID), sess, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, s.key(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Sessions) key(id string) string { return cache.Key("session", id) }

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
)

// SessionService manages the lifecycle of user sessions
type SessionService struct {
	store repository.SessionStore
	now   func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(store repository.SessionStore) *SessionService {
	return &SessionService{store: store, now: time.Now}
}

// Start creates a session with an empty draft for the identity
func (s *SessionService) Start(ctx context.Context, identity domain.Identity, isAdmin bool) (*domain.Session, error) {
	session := &domain.Session{
		ID:        uuid.NewString(),
		Email:     identity.Email,
		Name:      identity.Name,
		IsAdmin:   isAdmin,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Load returns the session with the given id
func (s *SessionService) Load(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Get(ctx, id)
}

// End deletes the session
func (s *SessionService) End(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

package users

import (
	"context"
	"strings"
	"time"
)

// Service contains business logic for user profiles.
type Service struct {
	Repo     UsersRepo
	Sessions SessionsRepo
}

// UpsertFromLogin records or refreshes a profile after an OAuth login and
// notes the session that produced it.
func (s *Service) UpsertFromLogin(ctx context.Context, user User, sessionID string) error {
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return ErrInvalidInput
	}
	if user.Provider == "" {
		user.Provider = "google"
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return err
	}
	if s.Sessions != nil && sessionID != "" {
		now := time.Now().UTC()
		return s.Sessions.Record(ctx, Session{
			ID:         sessionID,
			UserID:     user.ID,
			CreatedAt:  now,
			LastSeenAt: now,
		})
	}
	return nil
}

// Get returns the profile for a user id.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID)
}

// GiveConsent records the GDPR consent timestamp.
func (s *Service) GiveConsent(ctx context.Context, userID string) (time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return time.Time{}, ErrInvalidInput
	}
	now := time.Now().UTC()
	if err := s.Repo.SetConsent(ctx, userID, now); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

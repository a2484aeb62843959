package users

import (
	"context"
	"time"
)

// UsersRepo defines persistence operations for user profiles.
type UsersRepo interface {
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	SetConsent(ctx context.Context, userID string, givenAt time.Time) error
}

// SessionsRepo defines persistence operations for sessions.
type SessionsRepo interface {
	Record(ctx context.Context, session Session) error
	CountByUser(ctx context.Context, userID string) (int, error)
}

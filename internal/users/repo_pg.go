package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, name, picture, provider, is_guest, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  name = EXCLUDED.name,
  picture = EXCLUDED.picture,
  provider = EXCLUDED.provider,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Picture,
		user.Provider,
		user.IsGuest,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, name, picture, provider, is_guest, consent_given_at, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1`
	var user User
	var consentAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Picture,
		&user.Provider,
		&user.IsGuest,
		&consentAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if consentAt.Valid {
		user.ConsentGivenAt = &consentAt.Time
	}
	return user, nil
}

func (r *PGRepo) SetConsent(ctx context.Context, userID string, givenAt time.Time) error {
	const query = `
UPDATE users
SET consent_given_at = $1, updated_at = now()
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, givenAt, userID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ UsersRepo = (*PGRepo)(nil)

// PGSessionsRepo implements SessionsRepo using Postgres.
type PGSessionsRepo struct {
	DB *sql.DB
}

func (r *PGSessionsRepo) Record(ctx context.Context, session Session) error {
	const query = `
INSERT INTO sessions (id, user_id, created_at, last_seen_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at`
	_, err := r.DB.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.CreatedAt,
		session.LastSeenAt,
		nullableTime(session.ExpiresAt),
	)
	return err
}

func (r *PGSessionsRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE user_id = $1`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

var _ SessionsRepo = (*PGSessionsRepo)(nil)

package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory UsersRepo for development without a database.
type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	now := time.Now().UTC()
	if ok {
		user.CreatedAt = existing.CreatedAt
		user.ConsentGivenAt = existing.ConsentGivenAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) SetConsent(ctx context.Context, userID string, givenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.ConsentGivenAt = &givenAt
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return nil
}

// Delete removes a user. Used by the in-memory GDPR path.
func (r *MemoryRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	return nil
}

var _ UsersRepo = (*MemoryRepo)(nil)

// MemorySessionsRepo is an in-memory SessionsRepo.
type MemorySessionsRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemorySessionsRepo() *MemorySessionsRepo {
	return &MemorySessionsRepo{sessions: make(map[string]Session)}
}

func (r *MemorySessionsRepo) Record(ctx context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[session.ID]; ok {
		existing.LastSeenAt = session.LastSeenAt
		r.sessions[session.ID] = existing
		return nil
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *MemorySessionsRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			count++
		}
	}
	return count, nil
}

// DeleteByUser removes all sessions for a user. Used by the in-memory GDPR path.
func (r *MemorySessionsRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ SessionsRepo = (*MemorySessionsRepo)(nil)

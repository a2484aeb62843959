package generation

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo for development without a database.
type MemoryRepo struct {
	mu        sync.RWMutex
	artifacts map[string]Artifact
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{artifacts: make(map[string]Artifact)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[a.ID] = a
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[id]
	if !ok || a.UserID != userID {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string, limit, offset int) ([]Artifact, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var all []Artifact
	for _, a := range r.artifacts {
		if a.UserID == userID {
			all = append(all, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, a := range r.artifacts {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for id, a := range r.artifacts {
		if a.UserID == guestUserID {
			a.UserID = authedUserID
			r.artifacts[id] = a
			updated++
		}
	}
	return updated, nil
}

// DeleteByUser removes all artifacts for a user. Used by the in-memory GDPR path.
func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, a := range r.artifacts {
		if a.UserID == userID {
			delete(r.artifacts, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ Repo = (*MemoryRepo)(nil)

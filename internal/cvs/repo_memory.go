package cvs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for development without a database.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok || rec.UserID != userID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string, includeDeleted bool, limit, offset int) ([]Record, error) {
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
	var all []Record
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		if rec.IsDeleted && !includeDeleted {
			continue
		}
		all = append(all, rec)
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

func (r *MemoryRepo) Update(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[rec.ID]
	if !ok || existing.UserID != rec.UserID || existing.IsDeleted {
		return ErrNotFound
	}
	existing.FileName = rec.FileName
	existing.RawText = rec.RawText
	existing.Extracted = rec.Extracted
	existing.Metadata = rec.Metadata
	existing.UpdatedAt = time.Now().UTC()
	r.records[rec.ID] = existing
	return nil
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.UserID != userID || rec.IsDeleted {
		return ErrNotFound
	}
	rec.IsDeleted = true
	rec.UpdatedAt = time.Now().UTC()
	r.records[id] = rec
	return nil
}

func (r *MemoryRepo) BeginProcessing(ctx context.Context, userID, id string, force bool) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.UserID != userID || rec.IsDeleted {
		return Record{}, ErrNotFound
	}
	if rec.ProcessingStatus == StatusProcessing {
		return Record{}, ErrAlreadyProcessing
	}
	if !CanTransition(rec.ProcessingStatus, StatusProcessing, force) {
		return Record{}, ErrInvalidTransition
	}
	rec.ProcessingStatus = StatusProcessing
	rec.UpdatedAt = time.Now().UTC()
	r.records[id] = rec
	return rec, nil
}

func (r *MemoryRepo) FinishProcessing(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[rec.ID]
	if !ok || existing.UserID != rec.UserID {
		return ErrNotFound
	}
	if existing.ProcessingStatus != StatusProcessing {
		return ErrInvalidTransition
	}
	existing.ProcessingStatus = rec.ProcessingStatus
	existing.Extracted = rec.Extracted
	existing.Metadata = rec.Metadata
	existing.RawText = rec.RawText
	existing.UpdatedAt = time.Now().UTC()
	r.records[rec.ID] = existing
	return nil
}

func (r *MemoryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, rec := range r.records {
		if rec.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for id, rec := range r.records {
		if rec.UserID == guestUserID {
			rec.UserID = authedUserID
			rec.UpdatedAt = time.Now().UTC()
			r.records[id] = rec
			updated++
		}
	}
	return updated, nil
}

// DeleteByUser removes all records for a user. Used by the in-memory GDPR path.
func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	var storageKeys []string
	for id, rec := range r.records {
		if rec.UserID == userID {
			if rec.StorageKey != "" {
				storageKeys = append(storageKeys, rec.StorageKey)
			}
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, storageKeys, nil
}

var _ Repo = (*MemoryRepo)(nil)

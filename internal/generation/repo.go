package generation

import "context"

// Repo defines persistence operations for generated content.
type Repo interface {
	Create(ctx context.Context, a Artifact) error
	GetByID(ctx context.Context, userID, id string) (Artifact, error)
	List(ctx context.Context, userID string, limit, offset int) ([]Artifact, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

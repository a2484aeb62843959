package jobs

import "context"

// Repo defines persistence operations for job records.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, userID, id string) (Job, error)
	List(ctx context.Context, userID string, includeArchived bool, limit, offset int) ([]Job, error)

	// AttachAnalysis writes the analysis exactly once; a second attempt
	// fails with ErrAlreadyAnalyzed.
	AttachAnalysis(ctx context.Context, userID, id string, title, company string, analysis map[string]any) error

	SetArchived(ctx context.Context, userID, id string, archived bool) error
	CountByUser(ctx context.Context, userID string) (int, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

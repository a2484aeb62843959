package cvs

import "context"

// Repo defines persistence operations for CV records.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, userID, id string) (Record, error)
	List(ctx context.Context, userID string, includeDeleted bool, limit, offset int) ([]Record, error)
	Update(ctx context.Context, rec Record) error
	SoftDelete(ctx context.Context, userID, id string) error

	// BeginProcessing atomically moves a record into PROCESSING, enforcing
	// the status machine. It fails with ErrAlreadyProcessing when the record
	// is mid-flight and with ErrInvalidTransition when the record is
	// COMPLETED and force is false.
	BeginProcessing(ctx context.Context, userID, id string, force bool) (Record, error)

	// FinishProcessing records the outcome of a processing run.
	FinishProcessing(ctx context.Context, rec Record) error

	CountByUser(ctx context.Context, userID string) (int, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

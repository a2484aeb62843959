package gdpr

import (
	"context"
	"errors"
	"time"

	"applyforge-backend/internal/activity"
	"applyforge-backend/internal/cvs"
	"applyforge-backend/internal/generation"
	"applyforge-backend/internal/jobs"
	"applyforge-backend/internal/shared/metrics"
	"applyforge-backend/internal/shared/storage/object"
	"applyforge-backend/internal/shared/telemetry"
	"applyforge-backend/internal/users"
)

// exportPage matches the repos' maximum page size; Export pages until a
// short page so large accounts are not truncated.
const exportPage = 100

// Service implements the data-protection operations: pre-deletion summary,
// transactional deletion and full export.
type Service struct {
	Users     users.UsersRepo
	Sessions  users.SessionsRepo
	CVs       cvs.Repo
	Jobs      jobs.Repo
	Generated generation.Repo
	Activity  activity.Repo
	Deleter   Deleter
	Objects   object.ObjectStore
}

// Summary reports how many rows each category holds for the user.
func (s *Service) Summary(ctx context.Context, userID string) (Counts, error) {
	var counts Counts
	var err error

	if _, getErr := s.Users.GetByID(ctx, userID); getErr == nil {
		counts.Profile = 1
	} else if !errors.Is(getErr, users.ErrNotFound) {
		return Counts{}, getErr
	}
	if counts.Sessions, err = s.Sessions.CountByUser(ctx, userID); err != nil {
		return Counts{}, err
	}
	if counts.CVRecords, err = s.CVs.CountByUser(ctx, userID); err != nil {
		return Counts{}, err
	}
	if counts.JobRecords, err = s.Jobs.CountByUser(ctx, userID); err != nil {
		return Counts{}, err
	}
	if counts.GeneratedContent, err = s.Generated.CountByUser(ctx, userID); err != nil {
		return Counts{}, err
	}
	if counts.ActivityLogs, err = s.Activity.CountByUser(ctx, userID); err != nil {
		return Counts{}, err
	}
	return counts, nil
}

// Delete erases the selected categories. Database rows go first, in one
// atomic unit; stored CV files are removed afterwards, best effort, since the
// rows referencing them are already gone.
func (s *Service) Delete(ctx context.Context, userID string, opts DeleteOptions) (Counts, error) {
	if !opts.anySelected() {
		return Counts{}, ErrNothingSelected
	}

	counts, storageKeys, err := s.Deleter.Delete(ctx, userID, opts)
	if err != nil {
		return Counts{}, err
	}

	for _, key := range storageKeys {
		if delErr := s.Objects.Delete(ctx, key); delErr != nil {
			telemetry.Warn("gdpr.delete.object_cleanup_failed", map[string]any{
				"storage_key": key,
				"error":       delErr.Error(),
			})
		}
	}

	metrics.IncGDPRDeletion()
	telemetry.Info("gdpr.delete.completed", map[string]any{
		"user_id":       userID,
		"deleted_total": counts.Total(),
		"reason":        opts.Reason,
	})
	return counts, nil
}

// Export gathers every stored row for the user into one bundle.
func (s *Service) Export(ctx context.Context, userID string) (ExportBundle, error) {
	bundle := ExportBundle{ExportedAt: time.Now().UTC()}

	user, err := s.Users.GetByID(ctx, userID)
	if err == nil {
		bundle.User = &user
	} else if !errors.Is(err, users.ErrNotFound) {
		return ExportBundle{}, err
	}

	if bundle.CVRecords, err = collectPages(func(offset int) ([]cvs.Record, error) {
		return s.CVs.List(ctx, userID, true, exportPage, offset)
	}); err != nil {
		return ExportBundle{}, err
	}
	if bundle.JobRecords, err = collectPages(func(offset int) ([]jobs.Job, error) {
		return s.Jobs.List(ctx, userID, true, exportPage, offset)
	}); err != nil {
		return ExportBundle{}, err
	}
	if bundle.Generated, err = collectPages(func(offset int) ([]generation.Artifact, error) {
		return s.Generated.List(ctx, userID, exportPage, offset)
	}); err != nil {
		return ExportBundle{}, err
	}
	if bundle.Activity, err = s.Activity.ListByUser(ctx, userID, 500); err != nil {
		return ExportBundle{}, err
	}

	if bundle.CVRecords == nil {
		bundle.CVRecords = []cvs.Record{}
	}
	if bundle.JobRecords == nil {
		bundle.JobRecords = []jobs.Job{}
	}
	if bundle.Generated == nil {
		bundle.Generated = []generation.Artifact{}
	}
	if bundle.Activity == nil {
		bundle.Activity = []activity.Entry{}
	}
	return bundle, nil
}

func collectPages[T any](fetch func(offset int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += exportPage {
		page, err := fetch(offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPage {
			return all, nil
		}
	}
}

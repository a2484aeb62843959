package gdpr

import (
	"context"

	"applyforge-backend/internal/activity"
	"applyforge-backend/internal/cvs"
	"applyforge-backend/internal/generation"
	"applyforge-backend/internal/jobs"
	"applyforge-backend/internal/users"
)

// MemoryDeleter mirrors PGDeleter over the in-memory repos. Deletion order
// matches the transactional path; without a database there is no atomicity to
// preserve, only consistency of the report.
type MemoryDeleter struct {
	Users     *users.MemoryRepo
	Sessions  *users.MemorySessionsRepo
	CVs       *cvs.MemoryRepo
	Jobs      *jobs.MemoryRepo
	Generated *generation.MemoryRepo
	Activity  *activity.MemoryRepo
}

func (d *MemoryDeleter) Delete(ctx context.Context, userID string, opts DeleteOptions) (Counts, []string, error) {
	opts = opts.normalized()

	var counts Counts
	var storageKeys []string
	var err error

	if opts.DeleteSessions {
		if counts.Sessions, err = d.Sessions.DeleteByUser(ctx, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteActivityLogs {
		if counts.ActivityLogs, err = d.Activity.DeleteByUser(ctx, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteCommunications {
		if counts.GeneratedContent, err = d.Generated.DeleteByUser(ctx, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteCvData {
		if counts.CVRecords, storageKeys, err = d.CVs.DeleteByUser(ctx, userID); err != nil {
			return Counts{}, nil, err
		}
		if counts.JobRecords, err = d.Jobs.DeleteByUser(ctx, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteProfile {
		if _, getErr := d.Users.GetByID(ctx, userID); getErr == nil {
			counts.Profile = 1
		}
		if err := d.Users.Delete(ctx, userID); err != nil {
			return Counts{}, nil, err
		}
	}

	if err := d.Activity.Record(ctx, userID, "gdpr.delete", map[string]any{
		"reason":  opts.Reason,
		"deleted": counts,
	}); err != nil {
		return Counts{}, nil, err
	}
	return counts, storageKeys, nil
}

var _ Deleter = (*MemoryDeleter)(nil)

package gdpr

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Deleter executes a hard-delete as one atomic unit and returns the storage
// keys of any removed CV files so the caller can erase the stored objects.
type Deleter interface {
	Delete(ctx context.Context, userID string, opts DeleteOptions) (Counts, []string, error)
}

// PGDeleter runs the deletion inside a single transaction. Rows go in a fixed
// order, dependents before the profile, and the audit row is written before
// the commit so deletion and audit land together or not at all.
type PGDeleter struct {
	DB *sql.DB
}

func (d *PGDeleter) Delete(ctx context.Context, userID string, opts DeleteOptions) (Counts, []string, error) {
	opts = opts.normalized()

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return Counts{}, nil, fmt.Errorf("begin deletion: %w", err)
	}
	defer tx.Rollback()

	var counts Counts
	var storageKeys []string

	if opts.DeleteSessions {
		if counts.Sessions, err = execCount(ctx, tx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteActivityLogs {
		if counts.ActivityLogs, err = execCount(ctx, tx, `DELETE FROM activity_logs WHERE user_id = $1`, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteCommunications {
		if counts.GeneratedContent, err = execCount(ctx, tx, `DELETE FROM generated_content WHERE user_id = $1`, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteCvData {
		storageKeys, err = collectStorageKeys(ctx, tx, userID)
		if err != nil {
			return Counts{}, nil, err
		}
		if counts.CVRecords, err = execCount(ctx, tx, `DELETE FROM cv_records WHERE user_id = $1`, userID); err != nil {
			return Counts{}, nil, err
		}
		if counts.JobRecords, err = execCount(ctx, tx, `DELETE FROM job_records WHERE user_id = $1`, userID); err != nil {
			return Counts{}, nil, err
		}
	}
	if opts.DeleteProfile {
		if counts.Profile, err = execCount(ctx, tx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return Counts{}, nil, err
		}
	}

	if err := writeAuditRow(ctx, tx, userID, opts, counts); err != nil {
		return Counts{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, nil, fmt.Errorf("commit deletion: %w", err)
	}
	return counts, storageKeys, nil
}

func execCount(ctx context.Context, tx *sql.Tx, query, userID string) (int, error) {
	res, err := tx.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func collectStorageKeys(ctx context.Context, tx *sql.Tx, userID string) ([]string, error) {
	const query = `SELECT storage_key FROM cv_records WHERE user_id = $1 AND storage_key <> ''`
	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func writeAuditRow(ctx context.Context, tx *sql.Tx, userID string, opts DeleteOptions, counts Counts) error {
	details, err := json.Marshal(map[string]any{
		"reason":  opts.Reason,
		"deleted": counts,
	})
	if err != nil {
		return err
	}
	const query = `
INSERT INTO activity_logs (id, user_id, action, details, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.ExecContext(ctx, query, uuid.NewString(), userID, "gdpr.delete", details, time.Now().UTC())
	return err
}

var _ Deleter = (*PGDeleter)(nil)

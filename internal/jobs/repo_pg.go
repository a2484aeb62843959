package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

const jobColumns = `id, user_id, title, company, content, content_hash, analysis, is_archived, created_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, job Job) error {
	var analysis any
	if job.Analysis != nil {
		raw, err := json.Marshal(job.Analysis)
		if err != nil {
			return err
		}
		analysis = raw
	}
	const query = `
INSERT INTO job_records (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.Title,
		job.Company,
		job.Content,
		job.ContentHash,
		analysis,
		job.IsArchived,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM job_records
WHERE id = $1 AND user_id = $2
LIMIT 1`
	return scanJob(r.DB.QueryRowContext(ctx, query, id, userID))
}

func (r *PGRepo) List(ctx context.Context, userID string, includeArchived bool, limit, offset int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + jobColumns + `
FROM job_records
WHERE user_id = $1 AND (is_archived = FALSE OR $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

	rows, err := r.DB.QueryContext(ctx, query, userID, includeArchived, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *PGRepo) AttachAnalysis(ctx context.Context, userID, id string, title, company string, analysis map[string]any) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	const query = `
UPDATE job_records
SET analysis = $1, title = $2, company = $3, updated_at = now()
WHERE id = $4 AND user_id = $5 AND analysis IS NULL`
	res, err := r.DB.ExecContext(ctx, query, raw, title, company, id, userID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, getErr := r.GetByID(ctx, userID, id); getErr != nil {
			return getErr
		}
		return ErrAlreadyAnalyzed
	}
	return nil
}

func (r *PGRepo) SetArchived(ctx context.Context, userID, id string, archived bool) error {
	const query = `
UPDATE job_records
SET is_archived = $1, updated_at = now()
WHERE id = $2 AND user_id = $3`
	res, err := r.DB.ExecContext(ctx, query, archived, id, userID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM job_records WHERE user_id = $1`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE job_records
SET user_id = $1, updated_at = now()
WHERE user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var title, company sql.NullString
	var analysis []byte
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&title,
		&company,
		&job.Content,
		&job.ContentHash,
		&analysis,
		&job.IsArchived,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	if title.Valid {
		job.Title = title.String
	}
	if company.Valid {
		job.Company = company.String
	}
	if len(analysis) > 0 {
		_ = json.Unmarshal(analysis, &job.Analysis)
	}
	return job, nil
}

var _ Repo = (*PGRepo)(nil)

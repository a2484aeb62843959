package generation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

const artifactColumns = `id, user_id, cv_id, job_id, content_type, kind, language, subject, content, model, usage, duration_ms, created_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, a Artifact) error {
	usage, err := json.Marshal(a.Usage)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO generated_content (` + artifactColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		nullable(a.CVID),
		nullable(a.JobID),
		a.ContentType,
		a.Kind,
		a.Language,
		a.Subject,
		a.Content,
		a.Model,
		usage,
		a.DurationMs,
		a.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM generated_content
WHERE id = $1 AND user_id = $2
LIMIT 1`
	return scanArtifact(r.DB.QueryRowContext(ctx, query, id, userID))
}

func (r *PGRepo) List(ctx context.Context, userID string, limit, offset int) ([]Artifact, error) {
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
SELECT ` + artifactColumns + `
FROM generated_content
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM generated_content WHERE user_id = $1`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE generated_content
SET user_id = $1
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

func scanArtifact(row rowScanner) (Artifact, error) {
	var a Artifact
	var cvID, jobID sql.NullString
	var usage []byte
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&cvID,
		&jobID,
		&a.ContentType,
		&a.Kind,
		&a.Language,
		&a.Subject,
		&a.Content,
		&a.Model,
		&usage,
		&a.DurationMs,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, err
	}
	a.CVID = cvID.String
	a.JobID = jobID.String
	if len(usage) > 0 {
		_ = json.Unmarshal(usage, &a.Usage)
	}
	return a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)

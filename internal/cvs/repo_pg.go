package cvs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const recordColumns = `id, user_id, file_name, content_type, file_size, storage_key, raw_text, extracted, processing_status, metadata, is_deleted, created_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	extracted, metadata, err := marshalBags(rec)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO cv_records (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.FileName,
		rec.ContentType,
		rec.FileSize,
		rec.StorageKey,
		rec.RawText,
		extracted,
		string(rec.ProcessingStatus),
		metadata,
		rec.IsDeleted,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Record, error) {
	const query = `
SELECT ` + recordColumns + `
FROM cv_records
WHERE id = $1 AND user_id = $2
LIMIT 1`
	return scanRecord(r.DB.QueryRowContext(ctx, query, id, userID))
}

func (r *PGRepo) List(ctx context.Context, userID string, includeDeleted bool, limit, offset int) ([]Record, error) {
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
SELECT ` + recordColumns + `
FROM cv_records
WHERE user_id = $1 AND (is_deleted = FALSE OR $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

	rows, err := r.DB.QueryContext(ctx, query, userID, includeDeleted, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, rec Record) error {
	extracted, metadata, err := marshalBags(rec)
	if err != nil {
		return err
	}
	const query = `
UPDATE cv_records
SET file_name = $1, raw_text = $2, extracted = $3, metadata = $4, updated_at = $5
WHERE id = $6 AND user_id = $7 AND is_deleted = FALSE`
	res, err := r.DB.ExecContext(ctx, query,
		rec.FileName,
		rec.RawText,
		extracted,
		metadata,
		time.Now().UTC(),
		rec.ID,
		rec.UserID,
	)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SoftDelete(ctx context.Context, userID, id string) error {
	const query = `
UPDATE cv_records
SET is_deleted = TRUE, updated_at = now()
WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`
	res, err := r.DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// BeginProcessing uses a conditional UPDATE as the fencing token: only one
// request can move a record into PROCESSING, and concurrent attempts observe
// zero affected rows.
func (r *PGRepo) BeginProcessing(ctx context.Context, userID, id string, force bool) (Record, error) {
	const query = `
UPDATE cv_records
SET processing_status = $1, updated_at = now()
WHERE id = $2 AND user_id = $3 AND is_deleted = FALSE
  AND (processing_status IN ($4, $5) OR (processing_status = $6 AND $7))
RETURNING ` + recordColumns
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query,
		string(StatusProcessing),
		id,
		userID,
		string(StatusUploaded),
		string(StatusFailed),
		string(StatusCompleted),
		force,
	))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	// The guarded update matched nothing: distinguish missing record from a
	// status conflict.
	existing, getErr := r.GetByID(ctx, userID, id)
	if getErr != nil {
		return Record{}, getErr
	}
	if existing.IsDeleted {
		return Record{}, ErrNotFound
	}
	if existing.ProcessingStatus == StatusProcessing {
		return Record{}, ErrAlreadyProcessing
	}
	return Record{}, ErrInvalidTransition
}

func (r *PGRepo) FinishProcessing(ctx context.Context, rec Record) error {
	extracted, metadata, err := marshalBags(rec)
	if err != nil {
		return err
	}
	const query = `
UPDATE cv_records
SET processing_status = $1, extracted = $2, metadata = $3, raw_text = $4, updated_at = now()
WHERE id = $5 AND user_id = $6 AND processing_status = $7`
	res, err := r.DB.ExecContext(ctx, query,
		string(rec.ProcessingStatus),
		extracted,
		metadata,
		rec.RawText,
		rec.ID,
		rec.UserID,
		string(StatusProcessing),
	)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM cv_records WHERE user_id = $1`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE cv_records
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

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var contentType sql.NullString
	var storageKey sql.NullString
	var rawText sql.NullString
	var extracted []byte
	var metadata []byte
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.FileName,
		&contentType,
		&rec.FileSize,
		&storageKey,
		&rawText,
		&extracted,
		&status,
		&metadata,
		&rec.IsDeleted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.ProcessingStatus = Status(status)
	if contentType.Valid {
		rec.ContentType = contentType.String
	}
	if storageKey.Valid {
		rec.StorageKey = storageKey.String
	}
	if rawText.Valid {
		rec.RawText = rawText.String
	}
	if len(extracted) > 0 {
		_ = json.Unmarshal(extracted, &rec.Extracted)
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &rec.Metadata)
	}
	return rec, nil
}

func marshalBags(rec Record) (extracted any, metadata []byte, err error) {
	if rec.Extracted != nil {
		raw, err := json.Marshal(rec.Extracted)
		if err != nil {
			return nil, nil, err
		}
		extracted = raw
	}
	if rec.Metadata == nil {
		metadata = []byte("{}")
	} else {
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return nil, nil, err
		}
	}
	return extracted, metadata, nil
}

var _ Repo = (*PGRepo)(nil)

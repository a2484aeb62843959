package cvs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func recordRows(rec Record) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "file_name", "content_type", "file_size", "storage_key",
		"raw_text", "extracted", "processing_status", "metadata", "is_deleted",
		"created_at", "updated_at",
	}).AddRow(
		rec.ID, rec.UserID, rec.FileName, rec.ContentType, rec.FileSize, rec.StorageKey,
		rec.RawText, []byte(`{}`), string(rec.ProcessingStatus), []byte(`{}`), rec.IsDeleted,
		rec.CreatedAt, rec.UpdatedAt,
	)
}

func TestPGBeginProcessingClaimsRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rec := Record{
		ID: "cv-1", UserID: "guest:g1", FileName: "cv.pdf",
		ProcessingStatus: StatusProcessing, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery(`UPDATE cv_records`).
		WithArgs(string(StatusProcessing), "cv-1", "guest:g1",
			string(StatusUploaded), string(StatusFailed), string(StatusCompleted), false).
		WillReturnRows(recordRows(rec))

	repo := &PGRepo{DB: db}
	got, err := repo.BeginProcessing(context.Background(), "guest:g1", "cv-1", false)
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if got.ProcessingStatus != StatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", got.ProcessingStatus)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGBeginProcessingConflictIsAlreadyProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE cv_records`).
		WillReturnError(sql.ErrNoRows)

	now := time.Now().UTC()
	inFlight := Record{
		ID: "cv-1", UserID: "guest:g1", FileName: "cv.pdf",
		ProcessingStatus: StatusProcessing, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery(`SELECT (.+) FROM cv_records`).
		WithArgs("cv-1", "guest:g1").
		WillReturnRows(recordRows(inFlight))

	repo := &PGRepo{DB: db}
	_, err = repo.BeginProcessing(context.Background(), "guest:g1", "cv-1", false)
	if !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGBeginProcessingMissingRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`UPDATE cv_records`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT (.+) FROM cv_records`).WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	_, err = repo.BeginProcessing(context.Background(), "guest:g1", "missing", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGFinishProcessingRequiresInFlightStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE cv_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	err = repo.FinishProcessing(context.Background(), Record{
		ID: "cv-1", UserID: "guest:g1", ProcessingStatus: StatusCompleted,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

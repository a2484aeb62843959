package gdpr

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGDeleterDeletesInOrderWithAuditRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sessions`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM activity_logs`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM generated_content`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectQuery(`SELECT storage_key FROM cv_records`).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("stored/a.pdf").AddRow("stored/b.pdf"))
	mock.ExpectExec(`DELETE FROM cv_records`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM job_records`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO activity_logs`).
		WithArgs(sqlmock.AnyArg(), "user-1", "gdpr.delete", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	deleter := &PGDeleter{DB: db}
	counts, keys, err := deleter.Delete(context.Background(), "user-1", DeleteOptions{
		DeleteProfile: true,
		Reason:        "account closure",
	})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := Counts{Profile: 1, Sessions: 2, CVRecords: 2, JobRecords: 1, GeneratedContent: 4, ActivityLogs: 3}
	if counts != want {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if len(keys) != 2 || keys[0] != "stored/a.pdf" {
		t.Fatalf("unexpected storage keys: %v", keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGDeleterRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sessions`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM activity_logs`).WithArgs("user-1").WillReturnError(boom)
	mock.ExpectRollback()

	deleter := &PGDeleter{DB: db}
	_, _, err = deleter.Delete(context.Background(), "user-1", DeleteOptions{
		DeleteSessions:     true,
		DeleteActivityLogs: true,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGDeleterSkipsUnselectedCategories(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sessions`).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO activity_logs`).
		WithArgs(sqlmock.AnyArg(), "user-1", "gdpr.delete", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	deleter := &PGDeleter{DB: db}
	counts, keys, err := deleter.Delete(context.Background(), "user-1", DeleteOptions{DeleteSessions: true})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if counts.Sessions != 1 || counts.Total() != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if keys != nil {
		t.Fatalf("expected no storage keys, got %v", keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"applyforge-backend/internal/cvs"
	"applyforge-backend/internal/generation"
	"applyforge-backend/internal/jobs"
	"applyforge-backend/internal/shared/telemetry"
)

// Service migrates anonymous-session data onto an authenticated account.
type Service struct {
	CVRepo  cvs.Repo
	JobRepo jobs.Repo
	GenRepo generation.Repo
}

type ClaimResult struct {
	MigratedCVs       int `json:"migratedCvs"`
	MigratedJobs      int `json:"migratedJobs"`
	MigratedGenerated int `json:"migratedGenerated"`
}

func NewService(cvRepo cvs.Repo, jobRepo jobs.Repo, genRepo generation.Repo) *Service {
	return &Service{CVRepo: cvRepo, JobRepo: jobRepo, GenRepo: genRepo}
}

// ClaimGuest reassigns the guest identity's rows to the authenticated user.
// When all repos share a Postgres database the reassignment runs in one
// transaction; the in-memory path migrates repo by repo.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}

	if db := s.sharedDB(); db != nil {
		return claimWithTx(ctx, db, guestUserID, authedUserID)
	}

	var result ClaimResult
	var err error
	if result.MigratedCVs, err = s.CVRepo.ClaimGuest(ctx, guestUserID, authedUserID); err != nil {
		return ClaimResult{}, err
	}
	if result.MigratedJobs, err = s.JobRepo.ClaimGuest(ctx, guestUserID, authedUserID); err != nil {
		return ClaimResult{}, err
	}
	if result.MigratedGenerated, err = s.GenRepo.ClaimGuest(ctx, guestUserID, authedUserID); err != nil {
		return ClaimResult{}, err
	}

	telemetry.Info("account.claim_guest", map[string]any{
		"guest_user_id": guestUserID,
		"user_id":       authedUserID,
		"migrated":      result.MigratedCVs + result.MigratedJobs + result.MigratedGenerated,
	})
	return result, nil
}

func (s *Service) sharedDB() *sql.DB {
	cvPG, ok := s.CVRepo.(*cvs.PGRepo)
	if !ok || cvPG == nil || cvPG.DB == nil {
		return nil
	}
	jobPG, ok := s.JobRepo.(*jobs.PGRepo)
	if !ok || jobPG == nil || jobPG.DB != cvPG.DB {
		return nil
	}
	genPG, ok := s.GenRepo.(*generation.PGRepo)
	if !ok || genPG == nil || genPG.DB != cvPG.DB {
		return nil
	}
	return cvPG.DB
}

func claimWithTx(ctx context.Context, db *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	var result ClaimResult
	if result.MigratedCVs, err = execClaim(ctx, tx,
		`UPDATE cv_records SET user_id = $1, updated_at = now() WHERE user_id = $2 AND is_deleted = FALSE`,
		authedUserID, guestUserID); err != nil {
		return ClaimResult{}, err
	}
	if result.MigratedJobs, err = execClaim(ctx, tx,
		`UPDATE job_records SET user_id = $1, updated_at = now() WHERE user_id = $2`,
		authedUserID, guestUserID); err != nil {
		return ClaimResult{}, err
	}
	if result.MigratedGenerated, err = execClaim(ctx, tx,
		`UPDATE generated_content SET user_id = $1 WHERE user_id = $2`,
		authedUserID, guestUserID); err != nil {
		return ClaimResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return result, nil
}

func execClaim(ctx context.Context, tx *sql.Tx, query, authedUserID, guestUserID string) (int, error) {
	res, err := tx.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

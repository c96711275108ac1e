// internal/repositories/postgresql/response_batch_repo.go
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/internal/repositories/interfaces"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type responseBatchRepo struct {
	db *sqlx.DB
}

func NewResponseBatchRepo(db *sqlx.DB) interfaces.ResponseBatchRepository {
	return &responseBatchRepo{db: db}
}

func (r *responseBatchRepo) Create(ctx context.Context, batch *models.ResponseBatch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch create tx: %w", err)
	}
	defer tx.Rollback()

	if batch.IsLatest {
		unsetQuery := `UPDATE response_batches SET is_latest = false WHERE analysis_id = $1 AND is_latest = true`
		if _, err := tx.ExecContext(ctx, unsetQuery, batch.AnalysisID); err != nil {
			return fmt.Errorf("failed to unset latest batch flag: %w", err)
		}
	}

	query := `
		INSERT INTO response_batches (
			batch_id, analysis_id, status, total_responses,
			completed_responses, failed_responses, is_latest, created_at, updated_at
		) VALUES (
			:batch_id, :analysis_id, :status, :total_responses,
			:completed_responses, :failed_responses, :is_latest, :created_at, :updated_at
		)`
	if _, err := tx.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("failed to insert batch %s: %w", batch.BatchID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch create: %w", err)
	}
	return nil
}

func (r *responseBatchRepo) Get(ctx context.Context, batchID uuid.UUID) (*models.ResponseBatch, error) {
	query := `
		SELECT batch_id, analysis_id, status, total_responses,
		       completed_responses, failed_responses, is_latest, created_at, updated_at
		FROM response_batches
		WHERE batch_id = $1`

	var batch models.ResponseBatch
	if err := r.db.GetContext(ctx, &batch, query, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("batch %s not found", batchID)
		}
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return &batch, nil
}

func (r *responseBatchRepo) Start(ctx context.Context, batchID uuid.UUID) error {
	return r.setStatus(ctx, batchID, models.BatchRunning)
}

func (r *responseBatchRepo) Complete(ctx context.Context, batchID uuid.UUID) error {
	return r.setStatus(ctx, batchID, models.BatchCompleted)
}

func (r *responseBatchRepo) Fail(ctx context.Context, batchID uuid.UUID) error {
	return r.setStatus(ctx, batchID, models.BatchFailed)
}

func (r *responseBatchRepo) setStatus(ctx context.Context, batchID uuid.UUID, status models.BatchStatus) error {
	query := `UPDATE response_batches SET status = $2, updated_at = $3 WHERE batch_id = $1`
	result, err := r.db.ExecContext(ctx, query, batchID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set batch %s status to %s: %w", batchID, status, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("batch %s not found", batchID)
	}
	return nil
}

// GetStuck lists running batches whose last update predates olderThan
func (r *responseBatchRepo) GetStuck(ctx context.Context, olderThan time.Time) ([]*models.ResponseBatch, error) {
	query := `
		SELECT batch_id, analysis_id, status, total_responses,
		       completed_responses, failed_responses, is_latest, created_at, updated_at
		FROM response_batches
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at`

	var batches []*models.ResponseBatch
	if err := r.db.SelectContext(ctx, &batches, query, models.BatchRunning, olderThan); err != nil {
		return nil, fmt.Errorf("failed to load stuck batches: %w", err)
	}
	return batches, nil
}

func (r *responseBatchRepo) UpdateProgress(ctx context.Context, batchID uuid.UUID, completed, failed int) error {
	query := `
		UPDATE response_batches
		SET completed_responses = $2, failed_responses = $3, updated_at = $4
		WHERE batch_id = $1`
	if _, err := r.db.ExecContext(ctx, query, batchID, completed, failed, time.Now()); err != nil {
		return fmt.Errorf("failed to update batch %s progress: %w", batchID, err)
	}
	return nil
}

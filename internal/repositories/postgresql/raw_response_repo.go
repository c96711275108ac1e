// internal/repositories/postgresql/raw_response_repo.go
package postgresql

import (
	"context"
	"fmt"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/internal/repositories/interfaces"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type rawResponseRepo struct {
	db *sqlx.DB
}

func NewRawResponseRepo(db *sqlx.DB) interfaces.RawResponseRepository {
	return &rawResponseRepo{db: db}
}

func (r *rawResponseRepo) Create(ctx context.Context, response *models.RawResponse) error {
	query := `
		INSERT INTO raw_responses (
			response_id, analysis_id, batch_id, prompt_id,
			provider_id, topic_id, persona_id, response_text, tested_at
		) VALUES (
			:response_id, :analysis_id, :batch_id, :prompt_id,
			:provider_id, :topic_id, :persona_id, :response_text, :tested_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, response); err != nil {
		return fmt.Errorf("failed to insert raw response %s: %w", response.ResponseID, err)
	}
	return nil
}

func (r *rawResponseRepo) GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.RawResponse, error) {
	query := `
		SELECT response_id, analysis_id, batch_id, prompt_id,
		       provider_id, topic_id, persona_id, response_text, tested_at
		FROM raw_responses
		WHERE batch_id = $1
		ORDER BY tested_at, response_id`

	var responses []*models.RawResponse
	if err := r.db.SelectContext(ctx, &responses, query, batchID); err != nil {
		return nil, fmt.Errorf("failed to load raw responses for batch %s: %w", batchID, err)
	}
	return responses, nil
}

func (r *rawResponseRepo) GetByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.RawResponse, error) {
	query := `
		SELECT response_id, analysis_id, batch_id, prompt_id,
		       provider_id, topic_id, persona_id, response_text, tested_at
		FROM raw_responses
		WHERE analysis_id = $1
		ORDER BY tested_at, response_id`

	var responses []*models.RawResponse
	if err := r.db.SelectContext(ctx, &responses, query, analysisID); err != nil {
		return nil, fmt.Errorf("failed to load raw responses for analysis %s: %w", analysisID, err)
	}
	return responses, nil
}

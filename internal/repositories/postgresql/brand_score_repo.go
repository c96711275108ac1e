// internal/repositories/postgresql/brand_score_repo.go
package postgresql

import (
	"context"
	"fmt"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/internal/repositories/interfaces"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type brandScoreRepo struct {
	db *sqlx.DB
}

func NewBrandScoreRepo(db *sqlx.DB) interfaces.BrandScoreRepository {
	return &brandScoreRepo{db: db}
}

const brandScoreColumns = `
	score_id, response_id, analysis_id, batch_id, brand_id, prompt_id,
	provider_id, topic_id, persona_id, mentioned, first_position,
	mention_count, sentences, total_word_count, citations,
	sentiment_label, sentiment_score, is_latest, created_at`

func (r *brandScoreRepo) CreateMany(ctx context.Context, scores []*models.BrandResponseScore) error {
	if len(scores) == 0 {
		return nil
	}

	query := `
		INSERT INTO brand_response_scores (` + brandScoreColumns + `)
		VALUES (
			:score_id, :response_id, :analysis_id, :batch_id, :brand_id, :prompt_id,
			:provider_id, :topic_id, :persona_id, :mentioned, :first_position,
			:mention_count, :sentences, :total_word_count, :citations,
			:sentiment_label, :sentiment_score, :is_latest, :created_at
		)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin score insert tx: %w", err)
	}
	defer tx.Rollback()

	for _, score := range scores {
		if _, err := tx.NamedExecContext(ctx, query, score); err != nil {
			return fmt.Errorf("failed to insert score %s: %w", score.ScoreID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit score inserts: %w", err)
	}
	return nil
}

func (r *brandScoreRepo) UnsetLatestForResponses(ctx context.Context, responseIDs []uuid.UUID) error {
	if len(responseIDs) == 0 {
		return nil
	}

	ids := make([]string, len(responseIDs))
	for i, id := range responseIDs {
		ids[i] = id.String()
	}

	query := `UPDATE brand_response_scores SET is_latest = false WHERE response_id = ANY($1) AND is_latest = true`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to unset latest scores: %w", err)
	}
	return nil
}

func (r *brandScoreRepo) GetLatestByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.BrandResponseScore, error) {
	query := `
		SELECT ` + brandScoreColumns + `
		FROM brand_response_scores
		WHERE analysis_id = $1 AND is_latest = true
		ORDER BY response_id, brand_id`

	var scores []*models.BrandResponseScore
	if err := r.db.SelectContext(ctx, &scores, query, analysisID); err != nil {
		return nil, fmt.Errorf("failed to load scores for analysis %s: %w", analysisID, err)
	}
	return scores, nil
}

func (r *brandScoreRepo) GetLatestByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.BrandResponseScore, error) {
	query := `
		SELECT ` + brandScoreColumns + `
		FROM brand_response_scores
		WHERE batch_id = $1 AND is_latest = true
		ORDER BY response_id, brand_id`

	var scores []*models.BrandResponseScore
	if err := r.db.SelectContext(ctx, &scores, query, batchID); err != nil {
		return nil, fmt.Errorf("failed to load scores for batch %s: %w", batchID, err)
	}
	return scores, nil
}

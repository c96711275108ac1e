// internal/repositories/postgresql/brand_candidate_repo.go
package postgresql

import (
	"context"
	"fmt"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/internal/repositories/interfaces"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type brandCandidateRepo struct {
	db *sqlx.DB
}

func NewBrandCandidateRepo(db *sqlx.DB) interfaces.BrandCandidateRepository {
	return &brandCandidateRepo{db: db}
}

func (r *brandCandidateRepo) Create(ctx context.Context, analysisID uuid.UUID, candidate *models.BrandCandidate) error {
	query := `
		INSERT INTO brand_candidates (analysis_id, brand_id, brand_name, is_owned_brand)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (analysis_id, brand_id) DO UPDATE
		SET brand_name = EXCLUDED.brand_name, is_owned_brand = EXCLUDED.is_owned_brand`

	if _, err := r.db.ExecContext(ctx, query, analysisID, candidate.BrandID, candidate.BrandName, candidate.IsOwnedBrand); err != nil {
		return fmt.Errorf("failed to insert brand candidate %s: %w", candidate.BrandID, err)
	}
	return nil
}

func (r *brandCandidateRepo) GetByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.BrandCandidate, error) {
	query := `
		SELECT brand_id, brand_name, is_owned_brand
		FROM brand_candidates
		WHERE analysis_id = $1
		ORDER BY brand_id`

	var candidates []models.BrandCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, analysisID); err != nil {
		return nil, fmt.Errorf("failed to load brand candidates for analysis %s: %w", analysisID, err)
	}
	return candidates, nil
}

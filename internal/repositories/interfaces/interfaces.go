// internal/repositories/interfaces/interfaces.go
package interfaces

import (
	"context"
	"time"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/google/uuid"
)

// RawResponseRepository stores the answer-engine response feed
type RawResponseRepository interface {
	Create(ctx context.Context, response *models.RawResponse) error
	GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.RawResponse, error)
	GetByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.RawResponse, error)
}

// BrandCandidateRepository stores the per-analysis brand list
type BrandCandidateRepository interface {
	Create(ctx context.Context, analysisID uuid.UUID, candidate *models.BrandCandidate) error
	GetByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.BrandCandidate, error)
}

// BrandScoreRepository stores immutable per-response score records.
// Corrections write a new latest generation, they never update in place.
type BrandScoreRepository interface {
	CreateMany(ctx context.Context, scores []*models.BrandResponseScore) error
	UnsetLatestForResponses(ctx context.Context, responseIDs []uuid.UUID) error
	GetLatestByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.BrandResponseScore, error)
	GetLatestByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.BrandResponseScore, error)
}

// BrandMetricRepository stores aggregated per-scope metric sets. A scope's
// set is replaced as one atomic unit, or not at all.
type BrandMetricRepository interface {
	ReplaceScope(ctx context.Context, analysisID uuid.UUID, scope models.AggregationScope, metrics []*models.AggregatedBrandMetric) error
	GetByScope(ctx context.Context, analysisID uuid.UUID, scope models.AggregationScope) ([]*models.AggregatedBrandMetric, error)
}

// ResponseBatchRepository tracks scoring batch lifecycle
type ResponseBatchRepository interface {
	Create(ctx context.Context, batch *models.ResponseBatch) error
	Get(ctx context.Context, batchID uuid.UUID) (*models.ResponseBatch, error)
	Start(ctx context.Context, batchID uuid.UUID) error
	Complete(ctx context.Context, batchID uuid.UUID) error
	Fail(ctx context.Context, batchID uuid.UUID) error
	UpdateProgress(ctx context.Context, batchID uuid.UUID, completed, failed int) error
	GetStuck(ctx context.Context, olderThan time.Time) ([]*models.ResponseBatch, error)
}

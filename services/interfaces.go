// services/interfaces.go
package services

import (
	"context"
	"time"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/internal/repositories/interfaces"
	"github.com/AI-Template-SDK/visibility-engine/internal/repositories/postgresql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RepositoryManager manages all database repositories
type RepositoryManager struct {
	db                 *sqlx.DB
	RawResponseRepo    interfaces.RawResponseRepository
	BrandCandidateRepo interfaces.BrandCandidateRepository
	BrandScoreRepo     interfaces.BrandScoreRepository
	BrandMetricRepo    interfaces.BrandMetricRepository
	BatchRepo          interfaces.ResponseBatchRepository
}

// NewRepositoryManager creates a new repository manager with all repositories
func NewRepositoryManager(db *sqlx.DB) *RepositoryManager {
	return &RepositoryManager{
		db:                 db,
		RawResponseRepo:    postgresql.NewRawResponseRepo(db),
		BrandCandidateRepo: postgresql.NewBrandCandidateRepo(db),
		BrandScoreRepo:     postgresql.NewBrandScoreRepo(db),
		BrandMetricRepo:    postgresql.NewBrandMetricRepo(db),
		BatchRepo:          postgresql.NewResponseBatchRepo(db),
	}
}

// BeginTx starts a database transaction
func (rm *RepositoryManager) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return rm.db.BeginTxx(ctx, nil)
}

// BrandMentions is the mention detector output for one brand in one response
type BrandMentions struct {
	BrandID       uuid.UUID
	Mentioned     bool
	FirstPosition int // lowest sentence position of any match, 0 if none
	MentionCount  int
	Sentences     []models.Sentence // mentioning sentences in position order
}

// SentimentResult is the sentiment classification for one sentence
type SentimentResult struct {
	Label models.SentimentLabel
	Score float64 // [-1,1]
}

// ScoringSummary reports the outcome of scoring one batch of responses
type ScoringSummary struct {
	BatchID          uuid.UUID
	TotalResponses   int
	ScoredResponses  int
	FailedResponses  int
	ScoresWritten    int
	ProcessingErrors []string
}

// AggregationSummary reports the outcome of one full aggregation run
type AggregationSummary struct {
	AnalysisID     uuid.UUID
	ScopesComputed int
	ScopesFailed   int
	MetricsWritten int
	FailedScopes   []string
}

// SegmenterService splits raw response text into ordered sentences
type SegmenterService interface {
	Segment(text string) []models.Sentence
}

// MentionService locates brand mentions inside segmented sentences
type MentionService interface {
	DetectMentions(sentences []models.Sentence, candidates []models.BrandCandidate) []*BrandMentions
}

// CitationService extracts, validates and classifies URLs from raw text
type CitationService interface {
	ExtractCitations(text string, sentences []models.Sentence, candidates []models.BrandCandidate, mentions []*BrandMentions) []models.Citation
}

// SentimentService assigns sentiment labels and scores to sentences
type SentimentService interface {
	ScoreSentence(text string) SentimentResult
	ScoreMentions(sentences []models.Sentence) (models.SentimentLabel, float64)
}

// ScoringService composes the extraction pipeline into immutable
// per-brand, per-response score records
type ScoringService interface {
	ScoreResponse(ctx context.Context, response *models.RawResponse, candidates []models.BrandCandidate) ([]*models.BrandResponseScore, error)
	ScoreBatch(ctx context.Context, batchID uuid.UUID) (*ScoringSummary, error)
	RescoreAnalysis(ctx context.Context, analysisID uuid.UUID) (*ScoringSummary, error)
	FailStuckBatches(ctx context.Context, stuckAfter time.Duration) ([]uuid.UUID, error)
}

// AggregationService reduces stored scores into ranked per-scope metrics
type AggregationService interface {
	AggregateScope(scope models.AggregationScope, scores []*models.BrandResponseScore, candidates []models.BrandCandidate, totalPrompts int) ([]*models.AggregatedBrandMetric, error)
	AggregateAnalysis(ctx context.Context, analysisID uuid.UUID) (*AggregationSummary, error)
}

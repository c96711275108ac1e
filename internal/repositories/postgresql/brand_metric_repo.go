// internal/repositories/postgresql/brand_metric_repo.go
package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/internal/repositories/interfaces"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type brandMetricRepo struct {
	db *sqlx.DB
}

func NewBrandMetricRepo(db *sqlx.DB) interfaces.BrandMetricRepository {
	return &brandMetricRepo{db: db}
}

// brandMetricRow flattens AggregatedBrandMetric for column mapping
type brandMetricRow struct {
	MetricID          uuid.UUID        `db:"metric_id"`
	AnalysisID        uuid.UUID        `db:"analysis_id"`
	ScopeKind         models.ScopeKind `db:"scope_kind"`
	ScopeValue        string           `db:"scope_value"`
	BrandID           uuid.UUID        `db:"brand_id"`
	BrandName         string           `db:"brand_name"`
	IsOwnedBrand      bool             `db:"is_owned_brand"`
	VisibilityScore   float64          `db:"visibility_score"`
	VisibilityRank    int              `db:"visibility_rank"`
	TotalMentions     int              `db:"total_mentions"`
	MentionRank       int              `db:"mention_rank"`
	ShareOfVoice      float64          `db:"share_of_voice"`
	ShareOfVoiceRank  int              `db:"share_of_voice_rank"`
	AvgPosition       float64          `db:"avg_position"`
	AvgPositionRank   int              `db:"avg_position_rank"`
	DepthOfMention    float64          `db:"depth_of_mention"`
	DepthRank         int              `db:"depth_rank"`
	CitationShare     float64          `db:"citation_share"`
	CitationShareRank int              `db:"citation_share_rank"`
	SentimentScore    float64          `db:"sentiment_score"`
	SentimentPositive int              `db:"sentiment_positive"`
	SentimentNeutral  int              `db:"sentiment_neutral"`
	SentimentNegative int              `db:"sentiment_negative"`
	SentimentMixed    int              `db:"sentiment_mixed"`
	Count1st          int              `db:"count_1st"`
	Count2nd          int              `db:"count_2nd"`
	Count3rd          int              `db:"count_3rd"`
	PositionRank      int              `db:"position_rank"`
	TotalAppearances  int              `db:"total_appearances"`
	ComputedAt        time.Time        `db:"computed_at"`
}

func toRow(m *models.AggregatedBrandMetric) *brandMetricRow {
	return &brandMetricRow{
		MetricID:          m.MetricID,
		AnalysisID:        m.AnalysisID,
		ScopeKind:         m.ScopeKind,
		ScopeValue:        m.ScopeValue,
		BrandID:           m.BrandID,
		BrandName:         m.BrandName,
		IsOwnedBrand:      m.IsOwnedBrand,
		VisibilityScore:   m.VisibilityScore,
		VisibilityRank:    m.VisibilityRank,
		TotalMentions:     m.TotalMentions,
		MentionRank:       m.MentionRank,
		ShareOfVoice:      m.ShareOfVoice,
		ShareOfVoiceRank:  m.ShareOfVoiceRank,
		AvgPosition:       m.AvgPosition,
		AvgPositionRank:   m.AvgPositionRank,
		DepthOfMention:    m.DepthOfMention,
		DepthRank:         m.DepthRank,
		CitationShare:     m.CitationShare,
		CitationShareRank: m.CitationShareRank,
		SentimentScore:    m.SentimentScore,
		SentimentPositive: m.SentimentBreakdown.Positive,
		SentimentNeutral:  m.SentimentBreakdown.Neutral,
		SentimentNegative: m.SentimentBreakdown.Negative,
		SentimentMixed:    m.SentimentBreakdown.Mixed,
		Count1st:          m.Count1st,
		Count2nd:          m.Count2nd,
		Count3rd:          m.Count3rd,
		PositionRank:      m.PositionRank,
		TotalAppearances:  m.TotalAppearances,
		ComputedAt:        m.ComputedAt,
	}
}

func fromRow(r *brandMetricRow) *models.AggregatedBrandMetric {
	return &models.AggregatedBrandMetric{
		MetricID:          r.MetricID,
		AnalysisID:        r.AnalysisID,
		ScopeKind:         r.ScopeKind,
		ScopeValue:        r.ScopeValue,
		BrandID:           r.BrandID,
		BrandName:         r.BrandName,
		IsOwnedBrand:      r.IsOwnedBrand,
		VisibilityScore:   r.VisibilityScore,
		VisibilityRank:    r.VisibilityRank,
		TotalMentions:     r.TotalMentions,
		MentionRank:       r.MentionRank,
		ShareOfVoice:      r.ShareOfVoice,
		ShareOfVoiceRank:  r.ShareOfVoiceRank,
		AvgPosition:       r.AvgPosition,
		AvgPositionRank:   r.AvgPositionRank,
		DepthOfMention:    r.DepthOfMention,
		DepthRank:         r.DepthRank,
		CitationShare:     r.CitationShare,
		CitationShareRank: r.CitationShareRank,
		SentimentScore:    r.SentimentScore,
		SentimentBreakdown: models.SentimentBreakdown{
			Positive: r.SentimentPositive,
			Neutral:  r.SentimentNeutral,
			Negative: r.SentimentNegative,
			Mixed:    r.SentimentMixed,
		},
		Count1st:         r.Count1st,
		Count2nd:         r.Count2nd,
		Count3rd:         r.Count3rd,
		PositionRank:     r.PositionRank,
		TotalAppearances: r.TotalAppearances,
		ComputedAt:       r.ComputedAt,
	}
}

// ReplaceScope swaps a scope's full metric set in one transaction. A failed
// run leaves the previous (stale) set untouched.
func (r *brandMetricRepo) ReplaceScope(ctx context.Context, analysisID uuid.UUID, scope models.AggregationScope, metrics []*models.AggregatedBrandMetric) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin metric replace tx: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := `
		DELETE FROM aggregated_brand_metrics
		WHERE analysis_id = $1 AND scope_kind = $2 AND scope_value = $3`
	if _, err := tx.ExecContext(ctx, deleteQuery, analysisID, scope.Kind, scope.Value); err != nil {
		return fmt.Errorf("failed to delete stale metrics for scope %s: %w", scope, err)
	}

	insertQuery := `
		INSERT INTO aggregated_brand_metrics (
			metric_id, analysis_id, scope_kind, scope_value, brand_id, brand_name, is_owned_brand,
			visibility_score, visibility_rank, total_mentions, mention_rank,
			share_of_voice, share_of_voice_rank, avg_position, avg_position_rank,
			depth_of_mention, depth_rank, citation_share, citation_share_rank,
			sentiment_score, sentiment_positive, sentiment_neutral, sentiment_negative, sentiment_mixed,
			count_1st, count_2nd, count_3rd, position_rank, total_appearances, computed_at
		) VALUES (
			:metric_id, :analysis_id, :scope_kind, :scope_value, :brand_id, :brand_name, :is_owned_brand,
			:visibility_score, :visibility_rank, :total_mentions, :mention_rank,
			:share_of_voice, :share_of_voice_rank, :avg_position, :avg_position_rank,
			:depth_of_mention, :depth_rank, :citation_share, :citation_share_rank,
			:sentiment_score, :sentiment_positive, :sentiment_neutral, :sentiment_negative, :sentiment_mixed,
			:count_1st, :count_2nd, :count_3rd, :position_rank, :total_appearances, :computed_at
		)`

	for _, metric := range metrics {
		if _, err := tx.NamedExecContext(ctx, insertQuery, toRow(metric)); err != nil {
			return fmt.Errorf("failed to insert metric for brand %s in scope %s: %w", metric.BrandID, scope, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metric replace for scope %s: %w", scope, err)
	}
	return nil
}

func (r *brandMetricRepo) GetByScope(ctx context.Context, analysisID uuid.UUID, scope models.AggregationScope) ([]*models.AggregatedBrandMetric, error) {
	query := `
		SELECT metric_id, analysis_id, scope_kind, scope_value, brand_id, brand_name, is_owned_brand,
		       visibility_score, visibility_rank, total_mentions, mention_rank,
		       share_of_voice, share_of_voice_rank, avg_position, avg_position_rank,
		       depth_of_mention, depth_rank, citation_share, citation_share_rank,
		       sentiment_score, sentiment_positive, sentiment_neutral, sentiment_negative, sentiment_mixed,
		       count_1st, count_2nd, count_3rd, position_rank, total_appearances, computed_at
		FROM aggregated_brand_metrics
		WHERE analysis_id = $1 AND scope_kind = $2 AND scope_value = $3
		ORDER BY visibility_rank, brand_id`

	var rows []*brandMetricRow
	if err := r.db.SelectContext(ctx, &rows, query, analysisID, scope.Kind, scope.Value); err != nil {
		return nil, fmt.Errorf("failed to load metrics for scope %s: %w", scope, err)
	}

	metrics := make([]*models.AggregatedBrandMetric, len(rows))
	for i, row := range rows {
		metrics[i] = fromRow(row)
	}
	return metrics, nil
}

// services/aggregation_service.go
package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type aggregationService struct {
	cfg   config.AnalysisConfig
	repos *RepositoryManager
}

func NewAggregationService(cfg config.AnalysisConfig, repos *RepositoryManager) AggregationService {
	return &aggregationService{cfg: cfg, repos: repos}
}

// brandAccumulator gathers one brand's raw tallies for a scope
type brandAccumulator struct {
	candidate     models.BrandCandidate
	promptSet     map[uuid.UUID]bool // distinct prompts with >=1 mention
	totalMentions int
	positionSum   int
	appearances   int // responses in which the brand was mentioned
	depthWeight   float64
	citationWt    float64
	sentimentSum  float64
	breakdown     models.SentimentBreakdown
	count1st      int
	count2nd      int
	count3rd      int
}

// AggregateScope reduces the scope's score records into one ranked metric row
// per brand. The computation is deterministic: identical input yields an
// identical metric set, including rank assignment (ties break on brandId).
// Every zero denominator resolves the affected metric to 0, never NaN.
func (s *aggregationService) AggregateScope(scope models.AggregationScope, scores []*models.BrandResponseScore, candidates []models.BrandCandidate, totalPrompts int) ([]*models.AggregatedBrandMetric, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("empty brand candidate list for scope %s", scope)
	}

	// deterministic brand order: ascending brandId
	ordered := make([]models.BrandCandidate, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].BrandID.String() < ordered[j].BrandID.String()
	})

	accumulators := make(map[uuid.UUID]*brandAccumulator, len(ordered))
	for _, candidate := range ordered {
		accumulators[candidate.BrandID] = &brandAccumulator{
			candidate: candidate,
			promptSet: make(map[uuid.UUID]bool),
		}
	}

	// scope totals count each response once, not once per brand row
	responseWords := make(map[uuid.UUID]int)

	for _, score := range scores {
		if !inScope(score, scope) {
			continue
		}
		responseWords[score.ResponseID] = score.TotalWordCount

		acc, ok := accumulators[score.BrandID]
		if !ok {
			continue // score for a brand outside this run's candidate list
		}

		for _, citation := range score.Citations {
			acc.citationWt += citation.Confidence * s.cfg.CitationTypeWeight(string(citation.Type))
		}

		if !score.Mentioned {
			continue
		}

		acc.promptSet[score.PromptID] = true
		acc.totalMentions += score.MentionCount
		acc.positionSum += score.FirstPosition
		acc.appearances++
		acc.sentimentSum += score.SentimentScore

		switch score.SentimentLabel {
		case models.SentimentPositive:
			acc.breakdown.Positive++
		case models.SentimentNegative:
			acc.breakdown.Negative++
		case models.SentimentMixed:
			acc.breakdown.Mixed++
		default:
			acc.breakdown.Neutral++
		}

		switch score.FirstPosition {
		case 1:
			acc.count1st++
		case 2:
			acc.count2nd++
		case 3:
			acc.count3rd++
		}

		// position-decay weight per mentioning sentence; early sentences in
		// short responses dominate by design of the formula
		for _, sentence := range score.Sentences {
			if sentence.TotalSentences <= 0 {
				continue
			}
			decay := math.Exp(-float64(sentence.Position) / float64(sentence.TotalSentences))
			acc.depthWeight += float64(sentence.WordCount) * decay
		}
	}

	totalWords := 0
	for _, words := range responseWords {
		totalWords += words
	}
	totalMentionsAll := 0
	totalCitationWt := 0.0
	for _, candidate := range ordered {
		acc := accumulators[candidate.BrandID]
		totalMentionsAll += acc.totalMentions
		totalCitationWt += acc.citationWt
	}

	now := time.Now().UTC()
	metrics := make([]*models.AggregatedBrandMetric, 0, len(ordered))
	for _, candidate := range ordered {
		acc := accumulators[candidate.BrandID]

		metric := &models.AggregatedBrandMetric{
			MetricID:           uuid.New(),
			ScopeKind:          scope.Kind,
			ScopeValue:         scope.Value,
			BrandID:            candidate.BrandID,
			BrandName:          candidate.BrandName,
			IsOwnedBrand:       candidate.IsOwnedBrand,
			TotalMentions:      acc.totalMentions,
			TotalAppearances:   len(acc.promptSet),
			SentimentBreakdown: acc.breakdown,
			Count1st:           acc.count1st,
			Count2nd:           acc.count2nd,
			Count3rd:           acc.count3rd,
			ComputedAt:         now,
		}

		metric.VisibilityScore = clampPercent(safeRatio(float64(len(acc.promptSet)), float64(totalPrompts)) * 100)
		metric.ShareOfVoice = safeRatio(float64(acc.totalMentions), float64(totalMentionsAll)) * 100
		metric.AvgPosition = safeRatio(float64(acc.positionSum), float64(acc.appearances))
		metric.DepthOfMention = safeRatio(acc.depthWeight, float64(totalWords)) * 100
		metric.CitationShare = safeRatio(acc.citationWt, totalCitationWt) * 100
		metric.SentimentScore = safeRatio(acc.sentimentSum, float64(acc.appearances))

		metrics = append(metrics, metric)
	}

	assignRanks(metrics)
	return metrics, nil
}

// inScope reports whether a score record belongs to the aggregation scope
func inScope(score *models.BrandResponseScore, scope models.AggregationScope) bool {
	switch scope.Kind {
	case models.ScopeOverall:
		return true
	case models.ScopeProvider:
		return score.ProviderID == scope.Value
	case models.ScopeTopic:
		return score.TopicID == scope.Value
	case models.ScopePersona:
		return score.PersonaID == scope.Value
	default:
		return false
	}
}

// safeRatio divides with an explicit zero-denominator guard
func safeRatio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// assignRanks fills every rank field. Rank 1 goes to the highest value for
// every metric except avgPosition, where rank 1 goes to the lowest nonzero
// value (zero means no appearances and sorts last). The metric slice must
// already be in ascending brandId order, which is the tie-break.
func assignRanks(metrics []*models.AggregatedBrandMetric) {
	rankDesc(metrics, func(m *models.AggregatedBrandMetric) float64 { return m.VisibilityScore },
		func(m *models.AggregatedBrandMetric, rank int) { m.VisibilityRank = rank })
	rankDesc(metrics, func(m *models.AggregatedBrandMetric) float64 { return float64(m.TotalMentions) },
		func(m *models.AggregatedBrandMetric, rank int) { m.MentionRank = rank })
	rankDesc(metrics, func(m *models.AggregatedBrandMetric) float64 { return m.ShareOfVoice },
		func(m *models.AggregatedBrandMetric, rank int) { m.ShareOfVoiceRank = rank })
	rankDesc(metrics, func(m *models.AggregatedBrandMetric) float64 { return m.DepthOfMention },
		func(m *models.AggregatedBrandMetric, rank int) { m.DepthRank = rank })
	rankDesc(metrics, func(m *models.AggregatedBrandMetric) float64 { return m.CitationShare },
		func(m *models.AggregatedBrandMetric, rank int) { m.CitationShareRank = rank })
	rankDesc(metrics, func(m *models.AggregatedBrandMetric) float64 { return float64(m.Count1st) },
		func(m *models.AggregatedBrandMetric, rank int) { m.PositionRank = rank })
	rankAsc(metrics, func(m *models.AggregatedBrandMetric) float64 { return m.AvgPosition },
		func(m *models.AggregatedBrandMetric, rank int) { m.AvgPositionRank = rank })
}

func rankDesc(metrics []*models.AggregatedBrandMetric, value func(*models.AggregatedBrandMetric) float64, set func(*models.AggregatedBrandMetric, int)) {
	order := make([]int, len(metrics))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return value(metrics[order[a]]) > value(metrics[order[b]])
	})
	for rank, idx := range order {
		set(metrics[idx], rank+1)
	}
}

// rankAsc ranks lowest-first, pushing zero values (no appearances) last
func rankAsc(metrics []*models.AggregatedBrandMetric, value func(*models.AggregatedBrandMetric) float64, set func(*models.AggregatedBrandMetric, int)) {
	order := make([]int, len(metrics))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := value(metrics[order[a]]), value(metrics[order[b]])
		if (va == 0) != (vb == 0) {
			return vb == 0
		}
		return va < vb
	})
	for rank, idx := range order {
		set(metrics[idx], rank+1)
	}
}

// AggregateAnalysis recomputes every scope of an analysis from the stored
// latest score generation. Scopes are independent and run in parallel; each
// scope's metric set is replaced atomically, so a failed scope keeps its
// previous metrics until a successful recompute.
func (s *aggregationService) AggregateAnalysis(ctx context.Context, analysisID uuid.UUID) (*AggregationSummary, error) {
	fmt.Printf("[AggregateAnalysis] Starting aggregation for analysis %s\n", analysisID)

	candidates, err := s.repos.BrandCandidateRepo.GetByAnalysis(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("empty brand candidate list for analysis %s", analysisID)
	}

	scores, err := s.repos.BrandScoreRepo.GetLatestByAnalysis(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}

	scopes := enumerateScopes(scores)
	fmt.Printf("[AggregateAnalysis] Computing %d scopes for analysis %s\n", len(scopes), analysisID)

	summary := &AggregationSummary{AnalysisID: analysisID}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, scope := range scopes {
		scope := scope
		g.Go(func() error {
			metrics, err := s.computeAndStoreScope(gctx, analysisID, scope, scores, candidates)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.ScopesFailed++
				summary.FailedScopes = append(summary.FailedScopes, fmt.Sprintf("%s: %v", scope, err))
				// a failed scope keeps its stale metrics; the run continues
				return nil
			}
			summary.ScopesComputed++
			summary.MetricsWritten += len(metrics)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fmt.Printf("[AggregateAnalysis] Done: computed=%d failed=%d metrics=%d\n",
		summary.ScopesComputed, summary.ScopesFailed, summary.MetricsWritten)
	return summary, nil
}

func (s *aggregationService) computeAndStoreScope(ctx context.Context, analysisID uuid.UUID, scope models.AggregationScope, scores []*models.BrandResponseScore, candidates []models.BrandCandidate) ([]*models.AggregatedBrandMetric, error) {
	totalPrompts := countScopePrompts(scores, scope)

	metrics, err := s.AggregateScope(scope, scores, candidates, totalPrompts)
	if err != nil {
		return nil, err
	}
	for _, metric := range metrics {
		metric.AnalysisID = analysisID
	}

	if err := s.repos.BrandMetricRepo.ReplaceScope(ctx, analysisID, scope, metrics); err != nil {
		return nil, fmt.Errorf("failed to replace metrics: %w", err)
	}
	return metrics, nil
}

// countScopePrompts counts the distinct prompts tested in a scope. A prompt
// tested across four providers is still one prompt.
func countScopePrompts(scores []*models.BrandResponseScore, scope models.AggregationScope) int {
	prompts := make(map[uuid.UUID]bool)
	for _, score := range scores {
		if inScope(score, scope) {
			prompts[score.PromptID] = true
		}
	}
	return len(prompts)
}

// enumerateScopes lists overall plus every distinct provider/topic/persona
// present in the score set, in deterministic order
func enumerateScopes(scores []*models.BrandResponseScore) []models.AggregationScope {
	providers := make(map[string]bool)
	topics := make(map[string]bool)
	personas := make(map[string]bool)
	for _, score := range scores {
		if score.ProviderID != "" {
			providers[score.ProviderID] = true
		}
		if score.TopicID != "" {
			topics[score.TopicID] = true
		}
		if score.PersonaID != "" {
			personas[score.PersonaID] = true
		}
	}

	scopes := []models.AggregationScope{{Kind: models.ScopeOverall}}
	for _, value := range sortedKeys(providers) {
		scopes = append(scopes, models.AggregationScope{Kind: models.ScopeProvider, Value: value})
	}
	for _, value := range sortedKeys(topics) {
		scopes = append(scopes, models.AggregationScope{Kind: models.ScopeTopic, Value: value})
	}
	for _, value := range sortedKeys(personas) {
		scopes = append(scopes, models.AggregationScope{Kind: models.ScopePersona, Value: value})
	}
	return scopes
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

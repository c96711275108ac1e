package services_test

import (
	"math"
	"testing"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/services"
	"github.com/google/uuid"
)

var (
	brandA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	brandB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	brandC = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func testCandidates(ids ...uuid.UUID) []models.BrandCandidate {
	names := map[uuid.UUID]string{brandA: "Alpha Pay", brandB: "Beta Bank", brandC: "Gamma Card"}
	out := make([]models.BrandCandidate, len(ids))
	for i, id := range ids {
		out[i] = models.BrandCandidate{BrandID: id, BrandName: names[id]}
	}
	return out
}

type scoreOpts struct {
	responseID uuid.UUID
	promptID   uuid.UUID
	provider   string
	topic      string
	mentioned  bool
	first      int
	count      int
	sentences  []models.Sentence
	totalWords int
	citations  []models.Citation
	label      models.SentimentLabel
	sentiment  float64
}

func mkScore(brand uuid.UUID, o scoreOpts) *models.BrandResponseScore {
	if o.responseID == uuid.Nil {
		o.responseID = uuid.New()
	}
	if o.promptID == uuid.Nil {
		o.promptID = uuid.New()
	}
	if o.label == "" {
		o.label = models.SentimentNeutral
	}
	return &models.BrandResponseScore{
		ScoreID:        uuid.New(),
		ResponseID:     o.responseID,
		BrandID:        brand,
		PromptID:       o.promptID,
		ProviderID:     o.provider,
		TopicID:        o.topic,
		Mentioned:      o.mentioned,
		FirstPosition:  o.first,
		MentionCount:   o.count,
		Sentences:      o.sentences,
		TotalWordCount: o.totalWords,
		Citations:      o.citations,
		SentimentLabel: o.label,
		SentimentScore: o.sentiment,
		IsLatest:       true,
	}
}

func aggregate(t *testing.T, scope models.AggregationScope, scores []*models.BrandResponseScore, candidates []models.BrandCandidate, totalPrompts int) map[uuid.UUID]*models.AggregatedBrandMetric {
	t.Helper()
	aggregator := services.NewAggregationService(config.DefaultAnalysisConfig(), nil)
	metrics, err := aggregator.AggregateScope(scope, scores, candidates, totalPrompts)
	if err != nil {
		t.Fatalf("AggregateScope() error = %v", err)
	}
	byBrand := make(map[uuid.UUID]*models.AggregatedBrandMetric, len(metrics))
	for _, metric := range metrics {
		byBrand[metric.BrandID] = metric
		if math.IsNaN(metric.VisibilityScore) || math.IsNaN(metric.ShareOfVoice) ||
			math.IsNaN(metric.AvgPosition) || math.IsNaN(metric.DepthOfMention) ||
			math.IsNaN(metric.CitationShare) || math.IsNaN(metric.SentimentScore) {
			t.Fatalf("metric for brand %s contains NaN: %+v", metric.BrandID, metric)
		}
	}
	return byBrand
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestAggregateScopeVisibilityCountsPromptsOnce(t *testing.T) {
	// the same prompt answered by two providers is one appearance
	prompt1 := uuid.New()
	prompt2 := uuid.New()

	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{promptID: prompt1, provider: "openai", mentioned: true, first: 1, count: 1, totalWords: 20}),
		mkScore(brandA, scoreOpts{promptID: prompt1, provider: "perplexity", mentioned: true, first: 2, count: 1, totalWords: 25}),
		mkScore(brandA, scoreOpts{promptID: prompt2, provider: "openai", totalWords: 30}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA), 2)
	metric := metrics[brandA]

	if metric.TotalAppearances != 1 {
		t.Errorf("TotalAppearances = %d, want 1", metric.TotalAppearances)
	}
	approx(t, "VisibilityScore", metric.VisibilityScore, 50)
	if metric.TotalMentions != 2 {
		t.Errorf("TotalMentions = %d, want 2", metric.TotalMentions)
	}
}

func TestAggregateScopeShareOfVoice(t *testing.T) {
	response1 := uuid.New()
	response2 := uuid.New()

	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{responseID: response1, mentioned: true, first: 1, count: 5, totalWords: 100}),
		mkScore(brandB, scoreOpts{responseID: response1, mentioned: true, first: 2, count: 1, totalWords: 100}),
		mkScore(brandA, scoreOpts{responseID: response2, mentioned: true, first: 1, count: 3, totalWords: 80}),
		mkScore(brandB, scoreOpts{responseID: response2, mentioned: true, first: 3, count: 1, totalWords: 80}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA, brandB), 2)

	approx(t, "brandA ShareOfVoice", metrics[brandA].ShareOfVoice, 80)
	approx(t, "brandB ShareOfVoice", metrics[brandB].ShareOfVoice, 20)
	approx(t, "share of voice sum", metrics[brandA].ShareOfVoice+metrics[brandB].ShareOfVoice, 100)

	if metrics[brandA].ShareOfVoiceRank != 1 || metrics[brandB].ShareOfVoiceRank != 2 {
		t.Errorf("share of voice ranks = %d/%d, want 1/2", metrics[brandA].ShareOfVoiceRank, metrics[brandB].ShareOfVoiceRank)
	}
}

func TestAggregateScopeDepthOfMention(t *testing.T) {
	// one response of 100 words; the brand's only mentioning sentence is 10
	// words at position 2 of 4: depth = 10*exp(-2/4)/100*100
	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{
			mentioned:  true,
			first:      2,
			count:      1,
			sentences:  []models.Sentence{{Position: 2, WordCount: 10, TotalSentences: 4}},
			totalWords: 100,
		}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA), 1)

	want := 10 * math.Exp(-0.5)
	approx(t, "DepthOfMention", metrics[brandA].DepthOfMention, want)
}

func TestAggregateScopeDepthDeduplicatesResponseWords(t *testing.T) {
	// two brand rows of the same response must count the response's words once
	responseID := uuid.New()
	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{
			responseID: responseID,
			mentioned:  true,
			first:      1,
			count:      1,
			sentences:  []models.Sentence{{Position: 1, WordCount: 50, TotalSentences: 1}},
			totalWords: 50,
		}),
		mkScore(brandB, scoreOpts{responseID: responseID, totalWords: 50}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA, brandB), 1)

	want := 50 * math.Exp(-1.0) / 50 * 100
	approx(t, "DepthOfMention", metrics[brandA].DepthOfMention, want)
}

func TestAggregateScopeAvgPositionRankInversion(t *testing.T) {
	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10}),
		mkScore(brandA, scoreOpts{mentioned: true, first: 3, count: 1, totalWords: 10}),
		mkScore(brandB, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA, brandB, brandC), 3)

	approx(t, "brandA AvgPosition", metrics[brandA].AvgPosition, 2)
	approx(t, "brandB AvgPosition", metrics[brandB].AvgPosition, 1)
	approx(t, "brandC AvgPosition", metrics[brandC].AvgPosition, 0)

	// lowest nonzero average ranks first; zero means never mentioned and
	// sorts last
	if metrics[brandB].AvgPositionRank != 1 {
		t.Errorf("brandB AvgPositionRank = %d, want 1", metrics[brandB].AvgPositionRank)
	}
	if metrics[brandA].AvgPositionRank != 2 {
		t.Errorf("brandA AvgPositionRank = %d, want 2", metrics[brandA].AvgPositionRank)
	}
	if metrics[brandC].AvgPositionRank != 3 {
		t.Errorf("brandC AvgPositionRank = %d, want 3", metrics[brandC].AvgPositionRank)
	}
}

func TestAggregateScopeCitationShare(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()

	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{
			mentioned: true, first: 1, count: 1, totalWords: 10,
			citations: []models.Citation{{URL: "https://alphapay.com", Type: models.CitationBrand, Confidence: cfg.BrandDomainConfidence, BrandID: &brandA}},
		}),
		mkScore(brandB, scoreOpts{
			mentioned: true, first: 2, count: 1, totalWords: 10,
			citations: []models.Citation{{URL: "https://news.example.com", Type: models.CitationEarned, Confidence: cfg.CitationConfidence, BrandID: &brandB}},
		}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA, brandB), 2)

	weightA := cfg.BrandDomainConfidence * cfg.BrandCitationWeight
	weightB := cfg.CitationConfidence * cfg.EarnedCitationWeight
	total := weightA + weightB

	approx(t, "brandA CitationShare", metrics[brandA].CitationShare, weightA/total*100)
	approx(t, "brandB CitationShare", metrics[brandB].CitationShare, weightB/total*100)
	approx(t, "citation share sum", metrics[brandA].CitationShare+metrics[brandB].CitationShare, 100)

	if metrics[brandA].CitationShareRank != 1 || metrics[brandB].CitationShareRank != 2 {
		t.Errorf("citation share ranks = %d/%d, want 1/2", metrics[brandA].CitationShareRank, metrics[brandB].CitationShareRank)
	}
}

func TestAggregateScopeSentiment(t *testing.T) {
	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10, label: models.SentimentPositive, sentiment: 1}),
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10, label: models.SentimentNegative, sentiment: -1}),
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10, label: models.SentimentMixed, sentiment: 0.1}),
		mkScore(brandA, scoreOpts{totalWords: 10, label: models.SentimentNeutral}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA), 4)
	metric := metrics[brandA]

	// unmentioned responses contribute nothing to sentiment
	approx(t, "SentimentScore", metric.SentimentScore, 0.1/3)
	want := models.SentimentBreakdown{Positive: 1, Negative: 1, Mixed: 1}
	if metric.SentimentBreakdown != want {
		t.Errorf("SentimentBreakdown = %+v, want %+v", metric.SentimentBreakdown, want)
	}
}

func TestAggregateScopePositionCounters(t *testing.T) {
	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10}),
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10}),
		mkScore(brandA, scoreOpts{mentioned: true, first: 3, count: 1, totalWords: 10}),
		mkScore(brandA, scoreOpts{mentioned: true, first: 7, count: 1, totalWords: 10}),
		mkScore(brandB, scoreOpts{mentioned: true, first: 2, count: 1, totalWords: 10}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA, brandB), 5)

	a := metrics[brandA]
	if a.Count1st != 2 || a.Count2nd != 0 || a.Count3rd != 1 {
		t.Errorf("brandA counters = %d/%d/%d, want 2/0/1", a.Count1st, a.Count2nd, a.Count3rd)
	}
	b := metrics[brandB]
	if b.Count1st != 0 || b.Count2nd != 1 || b.Count3rd != 0 {
		t.Errorf("brandB counters = %d/%d/%d, want 0/1/0", b.Count1st, b.Count2nd, b.Count3rd)
	}
	if a.PositionRank != 1 || b.PositionRank != 2 {
		t.Errorf("position ranks = %d/%d, want 1/2", a.PositionRank, b.PositionRank)
	}
}

func TestAggregateScopeScopeFiltering(t *testing.T) {
	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{provider: "openai", mentioned: true, first: 1, count: 4, totalWords: 10}),
		mkScore(brandA, scoreOpts{provider: "perplexity", mentioned: true, first: 1, count: 9, totalWords: 10}),
	}

	overall := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA), 2)
	if overall[brandA].TotalMentions != 13 {
		t.Errorf("overall TotalMentions = %d, want 13", overall[brandA].TotalMentions)
	}

	openaiOnly := aggregate(t, models.AggregationScope{Kind: models.ScopeProvider, Value: "openai"}, scores, testCandidates(brandA), 1)
	if openaiOnly[brandA].TotalMentions != 4 {
		t.Errorf("provider-scoped TotalMentions = %d, want 4", openaiOnly[brandA].TotalMentions)
	}
}

func TestAggregateScopeZeroDenominators(t *testing.T) {
	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, nil, testCandidates(brandA, brandB), 0)

	for _, id := range []uuid.UUID{brandA, brandB} {
		metric := metrics[id]
		if metric.VisibilityScore != 0 || metric.ShareOfVoice != 0 || metric.AvgPosition != 0 ||
			metric.DepthOfMention != 0 || metric.CitationShare != 0 || metric.SentimentScore != 0 {
			t.Errorf("brand %s metrics should all be zero: %+v", id, metric)
		}
	}

	// ranks are still assigned deterministically
	if metrics[brandA].VisibilityRank != 1 || metrics[brandB].VisibilityRank != 2 {
		t.Errorf("zero-data visibility ranks = %d/%d, want 1/2", metrics[brandA].VisibilityRank, metrics[brandB].VisibilityRank)
	}
}

func TestAggregateScopeTieBreakAndDeterminism(t *testing.T) {
	mk := func() []*models.BrandResponseScore {
		response := uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
		prompt := uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
		return []*models.BrandResponseScore{
			mkScore(brandB, scoreOpts{responseID: response, promptID: prompt, mentioned: true, first: 1, count: 2, totalWords: 40}),
			mkScore(brandA, scoreOpts{responseID: response, promptID: prompt, mentioned: true, first: 1, count: 2, totalWords: 40}),
		}
	}

	// candidates given in descending order; output order must not depend on it
	first := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, mk(), testCandidates(brandB, brandA), 1)
	second := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, mk(), testCandidates(brandB, brandA), 1)

	// equal values: every rank resolves by ascending brand id
	if first[brandA].ShareOfVoiceRank != 1 || first[brandB].ShareOfVoiceRank != 2 {
		t.Errorf("tie-break ranks = %d/%d, want 1/2", first[brandA].ShareOfVoiceRank, first[brandB].ShareOfVoiceRank)
	}
	if first[brandA].VisibilityRank != 1 || first[brandB].VisibilityRank != 2 {
		t.Errorf("tie-break visibility ranks = %d/%d, want 1/2", first[brandA].VisibilityRank, first[brandB].VisibilityRank)
	}

	for _, id := range []uuid.UUID{brandA, brandB} {
		f, s := first[id], second[id]
		if f.VisibilityScore != s.VisibilityScore || f.ShareOfVoice != s.ShareOfVoice ||
			f.AvgPosition != s.AvgPosition || f.DepthOfMention != s.DepthOfMention ||
			f.CitationShare != s.CitationShare || f.SentimentScore != s.SentimentScore ||
			f.VisibilityRank != s.VisibilityRank || f.ShareOfVoiceRank != s.ShareOfVoiceRank ||
			f.AvgPositionRank != s.AvgPositionRank || f.DepthRank != s.DepthRank ||
			f.CitationShareRank != s.CitationShareRank || f.MentionRank != s.MentionRank ||
			f.PositionRank != s.PositionRank {
			t.Errorf("brand %s metrics differ across identical runs:\nfirst:  %+v\nsecond: %+v", id, f, s)
		}
	}
}

func TestAggregateScopeEmptyCandidates(t *testing.T) {
	aggregator := services.NewAggregationService(config.DefaultAnalysisConfig(), nil)
	if _, err := aggregator.AggregateScope(models.AggregationScope{Kind: models.ScopeOverall}, nil, nil, 0); err == nil {
		t.Errorf("AggregateScope(no candidates) expected error, got none")
	}
}

func TestAggregateScopeVisibilityClamped(t *testing.T) {
	// more mentioned prompts than totalPrompts claims must still clamp to 100
	scores := []*models.BrandResponseScore{
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10}),
		mkScore(brandA, scoreOpts{mentioned: true, first: 1, count: 1, totalWords: 10}),
	}

	metrics := aggregate(t, models.AggregationScope{Kind: models.ScopeOverall}, scores, testCandidates(brandA), 1)
	if metrics[brandA].VisibilityScore > 100 {
		t.Errorf("VisibilityScore = %v, want clamped to at most 100", metrics[brandA].VisibilityScore)
	}
}

// services/scoring_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/google/uuid"
)

type scoringService struct {
	cfg       config.AnalysisConfig
	repos     *RepositoryManager
	segmenter SegmenterService
	mentions  MentionService
	citations CitationService
	sentiment SentimentService
}

func NewScoringService(cfg config.AnalysisConfig, repos *RepositoryManager) ScoringService {
	return &scoringService{
		cfg:       cfg,
		repos:     repos,
		segmenter: NewSegmenterService(),
		mentions:  NewMentionService(),
		citations: NewCitationService(cfg),
		sentiment: NewSentimentService(),
	}
}

// ScoreResponse is a pure function of one RawResponse and one immutable
// candidate list: it composes segmentation, mention detection, citation
// extraction and sentiment into one BrandResponseScore per brand. A response
// with zero sentences still yields fully-populated all-zero records; a
// degraded sub-step (dropped citation, neutral sentiment) never fails the
// response.
func (s *scoringService) ScoreResponse(ctx context.Context, response *models.RawResponse, candidates []models.BrandCandidate) ([]*models.BrandResponseScore, error) {
	if response == nil {
		return nil, fmt.Errorf("nil raw response")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("empty brand candidate list for response %s", response.ResponseID)
	}

	sentences := s.segmenter.Segment(response.Text)

	totalWords := 0
	for _, sentence := range sentences {
		totalWords += sentence.WordCount
	}

	brandMentions := s.mentions.DetectMentions(sentences, candidates)
	allCitations := s.citations.ExtractCitations(response.Text, sentences, candidates, brandMentions)

	citationsByBrand := make(map[uuid.UUID][]models.Citation)
	for _, citation := range allCitations {
		if citation.BrandID == nil || citation.Type == models.CitationNone {
			continue
		}
		citationsByBrand[*citation.BrandID] = append(citationsByBrand[*citation.BrandID], citation)
	}

	now := time.Now().UTC()
	scores := make([]*models.BrandResponseScore, 0, len(candidates))

	for i, candidate := range candidates {
		mention := brandMentions[i]
		label, sentimentScore := s.sentiment.ScoreMentions(mention.Sentences)

		mentionSentences := mention.Sentences
		if mentionSentences == nil {
			mentionSentences = []models.Sentence{}
		}
		brandCitations := citationsByBrand[candidate.BrandID]
		if brandCitations == nil {
			brandCitations = []models.Citation{}
		}

		scores = append(scores, &models.BrandResponseScore{
			ScoreID:        uuid.New(),
			ResponseID:     response.ResponseID,
			AnalysisID:     response.AnalysisID,
			BatchID:        response.BatchID,
			BrandID:        candidate.BrandID,
			PromptID:       response.PromptID,
			ProviderID:     response.ProviderID,
			TopicID:        response.TopicID,
			PersonaID:      response.PersonaID,
			Mentioned:      mention.Mentioned,
			FirstPosition:  mention.FirstPosition,
			MentionCount:   mention.MentionCount,
			Sentences:      mentionSentences,
			TotalWordCount: totalWords,
			Citations:      brandCitations,
			SentimentLabel: label,
			SentimentScore: sentimentScore,
			IsLatest:       true,
			CreatedAt:      now,
		})
	}
	return scores, nil
}

type scoreJob struct {
	response *models.RawResponse
}

type scoreJobResult struct {
	responseID uuid.UUID
	scores     []*models.BrandResponseScore
	err        error
}

// ScoreBatch scores every raw response of one batch across a worker pool and
// stores the results. Scoring runs are independent pure functions, so they
// execute concurrently with no ordering requirement.
func (s *scoringService) ScoreBatch(ctx context.Context, batchID uuid.UUID) (*ScoringSummary, error) {
	fmt.Printf("[ScoreBatch] Starting scoring for batch %s\n", batchID)

	batch, err := s.repos.BatchRepo.Get(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	candidates, err := s.repos.BrandCandidateRepo.GetByAnalysis(ctx, batch.AnalysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("empty brand candidate list for analysis %s", batch.AnalysisID)
	}

	responses, err := s.repos.RawResponseRepo.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw responses: %w", err)
	}

	if err := s.repos.BatchRepo.Start(ctx, batchID); err != nil {
		return nil, fmt.Errorf("failed to start batch: %w", err)
	}

	summary, err := s.scoreResponses(ctx, batchID, responses, candidates)
	if err != nil {
		if failErr := s.repos.BatchRepo.Fail(ctx, batchID); failErr != nil {
			fmt.Printf("[ScoreBatch] Warning: failed to mark batch failed: %v\n", failErr)
		}
		return nil, err
	}

	if err := s.repos.BatchRepo.UpdateProgress(ctx, batchID, summary.ScoredResponses, summary.FailedResponses); err != nil {
		fmt.Printf("[ScoreBatch] Warning: failed to update batch progress: %v\n", err)
	}
	if err := s.repos.BatchRepo.Complete(ctx, batchID); err != nil {
		return nil, fmt.Errorf("failed to complete batch: %w", err)
	}

	fmt.Printf("[ScoreBatch] Completed batch %s: scored=%d failed=%d written=%d\n",
		batchID, summary.ScoredResponses, summary.FailedResponses, summary.ScoresWritten)
	return summary, nil
}

// RescoreAnalysis re-scores every stored raw response of an analysis.
// Corrections are produced by re-scoring and replacing: the previous score
// generation keeps its rows but loses the latest flag.
func (s *scoringService) RescoreAnalysis(ctx context.Context, analysisID uuid.UUID) (*ScoringSummary, error) {
	fmt.Printf("[RescoreAnalysis] Re-scoring analysis %s\n", analysisID)

	candidates, err := s.repos.BrandCandidateRepo.GetByAnalysis(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("empty brand candidate list for analysis %s", analysisID)
	}

	responses, err := s.repos.RawResponseRepo.GetByAnalysis(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw responses: %w", err)
	}

	responseIDs := make([]uuid.UUID, len(responses))
	for i, response := range responses {
		responseIDs[i] = response.ResponseID
	}
	if err := s.repos.BrandScoreRepo.UnsetLatestForResponses(ctx, responseIDs); err != nil {
		return nil, fmt.Errorf("failed to retire previous scores: %w", err)
	}

	return s.scoreResponses(ctx, uuid.Nil, responses, candidates)
}

// scoreResponses fans responses out over the worker pool and persists the
// resulting score records
func (s *scoringService) scoreResponses(ctx context.Context, batchID uuid.UUID, responses []*models.RawResponse, candidates []models.BrandCandidate) (*ScoringSummary, error) {
	summary := &ScoringSummary{
		BatchID:        batchID,
		TotalResponses: len(responses),
	}
	if len(responses) == 0 {
		return summary, nil
	}

	concurrency := s.cfg.ScoringConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	jobsCh := make(chan scoreJob)
	resultsCh := make(chan scoreJobResult, len(responses))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for job := range jobsCh {
			scores, err := s.ScoreResponse(ctx, job.response, candidates)
			resultsCh <- scoreJobResult{
				responseID: job.response.ResponseID,
				scores:     scores,
				err:        err,
			}
		}
	}

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

	go func() {
		for _, response := range responses {
			jobsCh <- scoreJob{response: response}
		}
		close(jobsCh)
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var allScores []*models.BrandResponseScore
	for result := range resultsCh {
		if result.err != nil {
			summary.FailedResponses++
			summary.ProcessingErrors = append(summary.ProcessingErrors,
				fmt.Sprintf("response %s: %v", result.responseID, result.err))
			continue
		}
		summary.ScoredResponses++
		allScores = append(allScores, result.scores...)
	}

	if err := s.repos.BrandScoreRepo.CreateMany(ctx, allScores); err != nil {
		return nil, fmt.Errorf("failed to store scores: %w", err)
	}
	summary.ScoresWritten = len(allScores)
	return summary, nil
}

// FailStuckBatches marks running batches with no progress since stuckAfter ago
// as failed, so retried workflows can start a fresh batch
func (s *scoringService) FailStuckBatches(ctx context.Context, stuckAfter time.Duration) ([]uuid.UUID, error) {
	cutoff := time.Now().UTC().Add(-stuckAfter)
	stuck, err := s.repos.BatchRepo.GetStuck(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load stuck batches: %w", err)
	}

	var failed []uuid.UUID
	for _, batch := range stuck {
		if err := s.repos.BatchRepo.Fail(ctx, batch.BatchID); err != nil {
			fmt.Printf("[FailStuckBatches] Warning: failed to mark batch %s: %v\n", batch.BatchID, err)
			continue
		}
		fmt.Printf("[FailStuckBatches] Marked batch %s as failed (no progress since %s)\n",
			batch.BatchID, batch.UpdatedAt.Format(time.RFC3339))
		failed = append(failed, batch.BatchID)
	}
	return failed, nil
}

// workflows/scoring_processor.go
package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/services"
)

type ScoringProcessor struct {
	scoringService services.ScoringService
	client         inngestgo.Client
	cfg            *config.Config
}

func NewScoringProcessor(scoringService services.ScoringService, cfg *config.Config) *ScoringProcessor {
	return &ScoringProcessor{
		scoringService: scoringService,
		cfg:            cfg,
	}
}

func (p *ScoringProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// BatchScoreEvent represents the event data for scoring a response batch
type BatchScoreEvent struct {
	BatchID     string `json:"batch_id"`
	AnalysisID  string `json:"analysis_id"`
	TriggeredBy string `json:"triggered_by,omitempty"`
}

func (p *ScoringProcessor) ProcessBatchScoring() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-batch-scoring",
			Name:    "Process Response Batch - Brand Visibility Scoring Pipeline",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("visibility/batch.score", nil),
		func(ctx context.Context, input inngestgo.Input[BatchScoreEvent]) (any, error) {
			batchID := input.Event.Data.BatchID
			fmt.Printf("[ProcessBatchScoring] Starting scoring pipeline for batch: %s\n", batchID)

			// Step 1: Score every response in the batch
			scoreData, err := step.Run(ctx, "score-batch", func(ctx context.Context) (interface{}, error) {
				batchUUID, err := uuid.Parse(batchID)
				if err != nil {
					return nil, fmt.Errorf("invalid batch ID: %w", err)
				}

				summary, err := p.scoringService.ScoreBatch(ctx, batchUUID)
				if err != nil {
					return nil, fmt.Errorf("failed to score batch: %w", err)
				}

				fmt.Printf("[ProcessBatchScoring] ✅ Scored %d/%d responses for batch %s (%d score rows)\n",
					summary.ScoredResponses, summary.TotalResponses, batchID, summary.ScoresWritten)
				return map[string]interface{}{
					"batch_id":          batchID,
					"total_responses":   summary.TotalResponses,
					"scored_responses":  summary.ScoredResponses,
					"failed_responses":  summary.FailedResponses,
					"scores_written":    summary.ScoresWritten,
					"processing_errors": summary.ProcessingErrors,
				}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("score batch step failed: %w", err)
			}

			// Step 2: Signal completion so aggregation can pick the batch up
			_, err = step.Run(ctx, "emit-batch-completed", func(ctx context.Context) (interface{}, error) {
				evt := inngestgo.Event{
					Name: "visibility/batch.completed",
					Data: map[string]interface{}{
						"batch_id":    batchID,
						"analysis_id": input.Event.Data.AnalysisID,
					},
				}
				return p.client.Send(ctx, evt)
			})
			if err != nil {
				return nil, fmt.Errorf("emit completion step failed: %w", err)
			}

			return scoreData, nil
		},
	)

	if err != nil {
		panic(fmt.Sprintf("Failed to create ProcessBatchScoring function: %v", err))
	}

	return fn
}

// RescoreEvent represents the event data for re-scoring an analysis with the
// current detection rules
type RescoreEvent struct {
	AnalysisID  string `json:"analysis_id"`
	TriggeredBy string `json:"triggered_by,omitempty"`
}

func (p *ScoringProcessor) ProcessRescore() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-analysis-rescore",
			Name:    "Re-score Analysis - New Score Generation",
			Retries: inngestgo.IntPtr(2),
		},
		inngestgo.EventTrigger("visibility/analysis.rescore", nil),
		func(ctx context.Context, input inngestgo.Input[RescoreEvent]) (any, error) {
			analysisID := input.Event.Data.AnalysisID
			fmt.Printf("[ProcessRescore] Starting re-score for analysis: %s\n", analysisID)

			rescoreData, err := step.Run(ctx, "rescore-analysis", func(ctx context.Context) (interface{}, error) {
				analysisUUID, err := uuid.Parse(analysisID)
				if err != nil {
					return nil, fmt.Errorf("invalid analysis ID: %w", err)
				}

				summary, err := p.scoringService.RescoreAnalysis(ctx, analysisUUID)
				if err != nil {
					return nil, fmt.Errorf("failed to rescore analysis: %w", err)
				}

				fmt.Printf("[ProcessRescore] ✅ Re-scored %d/%d responses for analysis %s\n",
					summary.ScoredResponses, summary.TotalResponses, analysisID)
				return map[string]interface{}{
					"analysis_id":      analysisID,
					"total_responses":  summary.TotalResponses,
					"scored_responses": summary.ScoredResponses,
					"failed_responses": summary.FailedResponses,
					"scores_written":   summary.ScoresWritten,
				}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("rescore step failed: %w", err)
			}

			// A fresh score generation invalidates every stored metric
			_, err = step.Run(ctx, "emit-rescore-completed", func(ctx context.Context) (interface{}, error) {
				evt := inngestgo.Event{
					Name: "visibility/batch.completed",
					Data: map[string]interface{}{
						"analysis_id": analysisID,
						"reason":      "rescore",
					},
				}
				return p.client.Send(ctx, evt)
			})
			if err != nil {
				return nil, fmt.Errorf("emit completion step failed: %w", err)
			}

			return rescoreData, nil
		},
	)

	if err != nil {
		panic(fmt.Sprintf("Failed to create ProcessRescore function: %v", err))
	}

	return fn
}

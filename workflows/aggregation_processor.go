// workflows/aggregation_processor.go
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

type AggregationProcessor struct {
	aggregationService services.AggregationService
	client             inngestgo.Client
	cfg                *config.Config
}

func NewAggregationProcessor(aggregationService services.AggregationService, cfg *config.Config) *AggregationProcessor {
	return &AggregationProcessor{
		aggregationService: aggregationService,
		cfg:                cfg,
	}
}

func (p *AggregationProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// BatchCompletedEvent represents the completion signal emitted after a batch
// (or re-score) finishes writing its score generation
type BatchCompletedEvent struct {
	BatchID    string `json:"batch_id,omitempty"`
	AnalysisID string `json:"analysis_id"`
	Reason     string `json:"reason,omitempty"`
}

func (p *AggregationProcessor) ProcessAggregation() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-analysis-aggregation",
			Name:    "Aggregate Analysis Metrics - All Scopes",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("visibility/batch.completed", nil),
		func(ctx context.Context, input inngestgo.Input[BatchCompletedEvent]) (any, error) {
			analysisID := input.Event.Data.AnalysisID
			fmt.Printf("[ProcessAggregation] Starting aggregation for analysis: %s\n", analysisID)

			result, err := step.Run(ctx, "aggregate-analysis", func(ctx context.Context) (interface{}, error) {
				analysisUUID, err := uuid.Parse(analysisID)
				if err != nil {
					return nil, fmt.Errorf("invalid analysis ID: %w", err)
				}

				summary, err := p.aggregationService.AggregateAnalysis(ctx, analysisUUID)
				if err != nil {
					return nil, fmt.Errorf("failed to aggregate analysis: %w", err)
				}

				fmt.Printf("[ProcessAggregation] ✅ Computed %d scopes (%d failed) with %d metric rows for analysis %s\n",
					summary.ScopesComputed, summary.ScopesFailed, summary.MetricsWritten, analysisID)
				return map[string]interface{}{
					"analysis_id":     analysisID,
					"scopes_computed": summary.ScopesComputed,
					"scopes_failed":   summary.ScopesFailed,
					"metrics_written": summary.MetricsWritten,
					"failed_scopes":   summary.FailedScopes,
				}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("aggregate analysis step failed: %w", err)
			}

			return result, nil
		},
	)

	if err != nil {
		panic(fmt.Sprintf("Failed to create ProcessAggregation function: %v", err))
	}

	return fn
}

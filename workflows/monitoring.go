// workflows/monitoring.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
)

// stuckBatchThreshold is how long a running batch may go without progress
// before the watchdog fails it
const stuckBatchThreshold = 2 * time.Hour

// StuckBatchWatchdog fails running batches that stopped making progress, so
// a retried scoring workflow starts clean instead of piling onto a dead batch
func (p *ScoringProcessor) StuckBatchWatchdog() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "stuck-batch-watchdog",
			Name: "Fail Stuck Scoring Batches",
		},
		inngestgo.CronTrigger("0 * * * *"), // Every hour
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			failedIDs, err := step.Run(ctx, "fail-stuck-batches", func(ctx context.Context) ([]string, error) {
				batchIDs, err := p.scoringService.FailStuckBatches(ctx, stuckBatchThreshold)
				if err != nil {
					return nil, err
				}
				ids := make([]string, len(batchIDs))
				for i, id := range batchIDs {
					ids[i] = id.String()
				}
				return ids, nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to check stuck batches: %w", err)
			}

			if len(failedIDs) > 0 {
				fmt.Printf("[StuckBatchWatchdog] Failed %d stuck batches: %v\n", len(failedIDs), failedIDs)
			}

			return map[string]interface{}{
				"checked_at":     time.Now().UTC().Format(time.RFC3339),
				"stuck_batches":  len(failedIDs),
				"failed_batches": failedIDs,
			}, nil
		},
	)

	if err != nil {
		fmt.Printf("Failed to create stuck batch watchdog function: %v\n", err)
	}

	return fn
}

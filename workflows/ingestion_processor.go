// workflows/ingestion_processor.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/services"
)

// IngestResponseItem is one answer-engine response in an ingestion payload
type IngestResponseItem struct {
	PromptID   string `json:"prompt_id"`
	ProviderID string `json:"provider_id"`
	TopicID    string `json:"topic_id,omitempty"`
	PersonaID  string `json:"persona_id,omitempty"`
	Text       string `json:"text"`
	TestedAt   string `json:"tested_at,omitempty"`
}

// IngestBrandItem is one brand candidate in an ingestion payload
type IngestBrandItem struct {
	BrandID      string `json:"brand_id"`
	BrandName    string `json:"brand_name"`
	IsOwnedBrand bool   `json:"is_owned_brand"`
}

// BatchIngestEvent carries a full batch of responses plus the brand list to
// detect, and kicks off the scoring pipeline once everything is stored
type BatchIngestEvent struct {
	AnalysisID  string               `json:"analysis_id"`
	Brands      []IngestBrandItem    `json:"brands,omitempty"`
	Responses   []IngestResponseItem `json:"responses"`
	TriggeredBy string               `json:"triggered_by,omitempty"`
}

type IngestionProcessor struct {
	repos  *services.RepositoryManager
	client inngestgo.Client
}

func NewIngestionProcessor(repos *services.RepositoryManager) *IngestionProcessor {
	return &IngestionProcessor{repos: repos}
}

func (p *IngestionProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

func (p *IngestionProcessor) ProcessBatchIngestion() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-batch-ingestion",
			Name:    "Ingest Response Batch - Store Responses and Trigger Scoring",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("visibility/batch.ingest", nil),
		func(ctx context.Context, input inngestgo.Input[BatchIngestEvent]) (any, error) {
			analysisID := input.Event.Data.AnalysisID
			fmt.Printf("[ProcessBatchIngestion] Ingesting %d responses for analysis: %s\n",
				len(input.Event.Data.Responses), analysisID)

			analysisUUID, err := uuid.Parse(analysisID)
			if err != nil {
				return nil, fmt.Errorf("invalid analysis ID: %w", err)
			}

			// Step 1: Store the brand candidate list
			_, err = step.Run(ctx, "store-brand-candidates", func(ctx context.Context) (interface{}, error) {
				for _, brand := range input.Event.Data.Brands {
					brandUUID, err := uuid.Parse(brand.BrandID)
					if err != nil {
						return nil, fmt.Errorf("invalid brand ID %q: %w", brand.BrandID, err)
					}
					candidate := &models.BrandCandidate{
						BrandID:      brandUUID,
						BrandName:    brand.BrandName,
						IsOwnedBrand: brand.IsOwnedBrand,
					}
					if err := p.repos.BrandCandidateRepo.Create(ctx, analysisUUID, candidate); err != nil {
						return nil, fmt.Errorf("failed to store brand %s: %w", brand.BrandName, err)
					}
				}
				fmt.Printf("[ProcessBatchIngestion] ✅ Stored %d brand candidates\n", len(input.Event.Data.Brands))
				return map[string]interface{}{"brands_stored": len(input.Event.Data.Brands)}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("store brand candidates step failed: %w", err)
			}

			// Step 2: Create the batch record
			batchData, err := step.Run(ctx, "create-batch", func(ctx context.Context) (interface{}, error) {
				now := time.Now().UTC()
				batch := &models.ResponseBatch{
					BatchID:        uuid.New(),
					AnalysisID:     analysisUUID,
					Status:         models.BatchPending,
					TotalResponses: len(input.Event.Data.Responses),
					IsLatest:       true,
					CreatedAt:      now,
					UpdatedAt:      now,
				}
				if err := p.repos.BatchRepo.Create(ctx, batch); err != nil {
					return nil, fmt.Errorf("failed to create batch: %w", err)
				}
				fmt.Printf("[ProcessBatchIngestion] ✅ Created batch %s with %d responses\n",
					batch.BatchID, batch.TotalResponses)
				return map[string]interface{}{"batch_id": batch.BatchID.String()}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("create batch step failed: %w", err)
			}

			batchInfo := batchData.(map[string]interface{})
			batchID := batchInfo["batch_id"].(string)
			batchUUID, err := uuid.Parse(batchID)
			if err != nil {
				return nil, fmt.Errorf("invalid batch ID: %w", err)
			}

			// Step 3: Store the raw responses
			_, err = step.Run(ctx, "store-responses", func(ctx context.Context) (interface{}, error) {
				stored := 0
				for i, item := range input.Event.Data.Responses {
					promptUUID, err := uuid.Parse(item.PromptID)
					if err != nil {
						return nil, fmt.Errorf("response %d: invalid prompt ID %q: %w", i, item.PromptID, err)
					}

					testedAt := time.Now().UTC()
					if item.TestedAt != "" {
						parsed, err := time.Parse(time.RFC3339, item.TestedAt)
						if err != nil {
							return nil, fmt.Errorf("response %d: invalid tested_at %q: %w", i, item.TestedAt, err)
						}
						testedAt = parsed
					}

					response := &models.RawResponse{
						ResponseID: uuid.New(),
						AnalysisID: analysisUUID,
						BatchID:    batchUUID,
						PromptID:   promptUUID,
						ProviderID: item.ProviderID,
						TopicID:    item.TopicID,
						PersonaID:  item.PersonaID,
						Text:       item.Text,
						TestedAt:   testedAt,
					}
					if err := p.repos.RawResponseRepo.Create(ctx, response); err != nil {
						return nil, fmt.Errorf("response %d: failed to store: %w", i, err)
					}
					stored++
				}
				fmt.Printf("[ProcessBatchIngestion] ✅ Stored %d raw responses\n", stored)
				return map[string]interface{}{"responses_stored": stored}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("store responses step failed: %w", err)
			}

			// Step 4: Trigger scoring
			_, err = step.Run(ctx, "trigger-scoring", func(ctx context.Context) (interface{}, error) {
				evt := inngestgo.Event{
					Name: "visibility/batch.score",
					Data: map[string]interface{}{
						"batch_id":     batchID,
						"analysis_id":  analysisID,
						"triggered_by": "ingestion",
					},
				}
				return p.client.Send(ctx, evt)
			})
			if err != nil {
				return nil, fmt.Errorf("trigger scoring step failed: %w", err)
			}

			return map[string]interface{}{
				"analysis_id":      analysisID,
				"batch_id":         batchID,
				"responses_stored": len(input.Event.Data.Responses),
				"status":           "scoring_triggered",
			}, nil
		},
	)

	if err != nil {
		panic(fmt.Sprintf("Failed to create ProcessBatchIngestion function: %v", err))
	}

	return fn
}

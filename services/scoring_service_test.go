package services_test

import (
	"context"
	"testing"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/services"
	"github.com/google/uuid"
)

func newTestResponse(text string) *models.RawResponse {
	return &models.RawResponse{
		ResponseID: uuid.New(),
		AnalysisID: uuid.New(),
		BatchID:    uuid.New(),
		PromptID:   uuid.New(),
		ProviderID: "openai",
		TopicID:    "credit-cards",
		PersonaID:  "consumer",
		Text:       text,
	}
}

func TestScoreResponseValidation(t *testing.T) {
	scorer := services.NewScoringService(config.DefaultAnalysisConfig(), nil)
	ctx := context.Background()

	if _, err := scorer.ScoreResponse(ctx, nil, []models.BrandCandidate{{BrandID: uuid.New(), BrandName: "Visa"}}); err == nil {
		t.Errorf("ScoreResponse(nil response) expected error, got none")
	}

	if _, err := scorer.ScoreResponse(ctx, newTestResponse("some text"), nil); err == nil {
		t.Errorf("ScoreResponse(empty candidates) expected error, got none")
	}
}

func TestScoreResponseEmptyText(t *testing.T) {
	scorer := services.NewScoringService(config.DefaultAnalysisConfig(), nil)

	response := newTestResponse("")
	candidates := []models.BrandCandidate{
		{BrandID: uuid.New(), BrandName: "Visa"},
		{BrandID: uuid.New(), BrandName: "Mastercard"},
	}

	scores, err := scorer.ScoreResponse(context.Background(), response, candidates)
	if err != nil {
		t.Fatalf("ScoreResponse() error = %v", err)
	}
	if len(scores) != len(candidates) {
		t.Fatalf("ScoreResponse() returned %d records, want %d", len(scores), len(candidates))
	}

	for i, score := range scores {
		if score.Mentioned || score.MentionCount != 0 || score.FirstPosition != 0 {
			t.Errorf("record %d should be all-zero mention fields: %+v", i, score)
		}
		if score.TotalWordCount != 0 {
			t.Errorf("record %d TotalWordCount = %d, want 0", i, score.TotalWordCount)
		}
		if score.Sentences == nil || len(score.Sentences) != 0 {
			t.Errorf("record %d Sentences should be empty non-nil, got %v", i, score.Sentences)
		}
		if score.Citations == nil || len(score.Citations) != 0 {
			t.Errorf("record %d Citations should be empty non-nil, got %v", i, score.Citations)
		}
		if score.SentimentLabel != models.SentimentNeutral || score.SentimentScore != 0 {
			t.Errorf("record %d sentiment = %s/%v, want neutral/0", i, score.SentimentLabel, score.SentimentScore)
		}
		if !score.IsLatest {
			t.Errorf("record %d IsLatest = false, want true", i)
		}
	}
}

func TestScoreResponseFullPipeline(t *testing.T) {
	scorer := services.NewScoringService(config.DefaultAnalysisConfig(), nil)

	visaID := uuid.New()
	mastercardID := uuid.New()
	amexID := uuid.New()
	candidates := []models.BrandCandidate{
		{BrandID: visaID, BrandName: "Visa", IsOwnedBrand: true},
		{BrandID: mastercardID, BrandName: "Mastercard"},
		{BrandID: amexID, BrandName: "American Express"},
	}

	response := newTestResponse(
		"Visa is the most reliable network worldwide. " +
			"Mastercard also works well, see https://www.mastercard.com/cards for details. " +
			"Visa remains my favorite.",
	)

	scores, err := scorer.ScoreResponse(context.Background(), response, candidates)
	if err != nil {
		t.Fatalf("ScoreResponse() error = %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("ScoreResponse() returned %d records, want 3", len(scores))
	}

	byBrand := make(map[uuid.UUID]*models.BrandResponseScore)
	for _, score := range scores {
		byBrand[score.BrandID] = score

		// key propagation
		if score.ResponseID != response.ResponseID || score.AnalysisID != response.AnalysisID ||
			score.BatchID != response.BatchID || score.PromptID != response.PromptID {
			t.Errorf("record for brand %s lost response keys: %+v", score.BrandID, score)
		}
		if score.ProviderID != response.ProviderID || score.TopicID != response.TopicID || score.PersonaID != response.PersonaID {
			t.Errorf("record for brand %s lost scope keys: %+v", score.BrandID, score)
		}
	}

	visa := byBrand[visaID]
	if !visa.Mentioned || visa.MentionCount != 2 || visa.FirstPosition != 1 {
		t.Errorf("visa record = mentioned=%v count=%d first=%d, want true/2/1", visa.Mentioned, visa.MentionCount, visa.FirstPosition)
	}
	if visa.SentimentLabel != models.SentimentPositive {
		t.Errorf("visa sentiment = %s, want positive", visa.SentimentLabel)
	}
	if len(visa.Citations) != 0 {
		t.Errorf("visa citations = %+v, want none", visa.Citations)
	}

	mastercard := byBrand[mastercardID]
	if !mastercard.Mentioned || mastercard.FirstPosition != 2 {
		t.Errorf("mastercard record = mentioned=%v first=%d, want true/2", mastercard.Mentioned, mastercard.FirstPosition)
	}
	if len(mastercard.Citations) != 1 || mastercard.Citations[0].Type != models.CitationBrand {
		t.Errorf("mastercard citations = %+v, want one brand citation", mastercard.Citations)
	}

	amex := byBrand[amexID]
	if amex.Mentioned || amex.MentionCount != 0 {
		t.Errorf("amex record should be unmentioned: %+v", amex)
	}

	// every record shares the response word total
	for _, score := range scores {
		if score.TotalWordCount != scores[0].TotalWordCount {
			t.Errorf("TotalWordCount differs across records: %d vs %d", score.TotalWordCount, scores[0].TotalWordCount)
		}
	}
	if scores[0].TotalWordCount == 0 {
		t.Errorf("TotalWordCount = 0, want nonzero")
	}
}

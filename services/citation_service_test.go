package services_test

import (
	"testing"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/services"
	"github.com/google/uuid"
)

// extractPipeline runs segmentation and mention detection before citation
// extraction, the same composition the scorer uses
func extractPipeline(t *testing.T, text string, candidates []models.BrandCandidate) []models.Citation {
	t.Helper()
	cfg := config.DefaultAnalysisConfig()
	segmenter := services.NewSegmenterService()
	detector := services.NewMentionService()
	extractor := services.NewCitationService(cfg)

	sentences := segmenter.Segment(text)
	mentions := detector.DetectMentions(sentences, candidates)
	return extractor.ExtractCitations(text, sentences, candidates, mentions)
}

func TestExtractCitationsClassification(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()

	hdfcID := uuid.New()
	visaID := uuid.New()
	mastercardID := uuid.New()

	tests := []struct {
		name             string
		text             string
		candidates       []models.BrandCandidate
		expectCount      int
		expectType       models.CitationType
		expectBrandID    *uuid.UUID
		expectConfidence float64
	}{
		{
			name: "brand-owned domain classifies as brand",
			text: "Apply today at https://www.hdfcbank.com/credit-cards for details.",
			candidates: []models.BrandCandidate{
				{BrandID: hdfcID, BrandName: "HDFC Bank Freedom Credit Card"},
			},
			expectCount:      1,
			expectType:       models.CitationBrand,
			expectBrandID:    &hdfcID,
			expectConfidence: cfg.BrandDomainConfidence,
		},
		{
			name: "third-party domain with brand in link label classifies as earned",
			text: "Read the [HDFC Bank review](https://www.nerdwallet.com/reviews) for more.",
			candidates: []models.BrandCandidate{
				{BrandID: hdfcID, BrandName: "HDFC Bank Freedom Credit Card"},
			},
			expectCount:      1,
			expectType:       models.CitationEarned,
			expectBrandID:    &hdfcID,
			expectConfidence: cfg.CitationConfidence,
		},
		{
			name: "social platform domain classifies as social",
			text: "See [Visa on X](https://x.com/visa) for updates.",
			candidates: []models.BrandCandidate{
				{BrandID: visaID, BrandName: "Visa"},
			},
			expectCount:      1,
			expectType:       models.CitationSocial,
			expectBrandID:    &visaID,
			expectConfidence: cfg.CitationConfidence,
		},
		{
			name: "brand mentioned in the same sentence attributes a bare URL",
			text: "Visa maintains strong security standards according to https://www.reuters.com/visa-report today.",
			candidates: []models.BrandCandidate{
				{BrandID: visaID, BrandName: "Visa"},
			},
			expectCount:      1,
			expectType:       models.CitationEarned,
			expectBrandID:    &visaID,
			expectConfidence: cfg.CitationConfidence,
		},
		{
			name: "no brand context yields type none with no attribution",
			text: "General market news is at https://www.reuters.com/markets every day.",
			candidates: []models.BrandCandidate{
				{BrandID: visaID, BrandName: "Visa"},
			},
			expectCount:      1,
			expectType:       models.CitationNone,
			expectBrandID:    nil,
			expectConfidence: cfg.CitationConfidence,
		},
		{
			name: "two brands in context is ambiguous and yields none",
			text: "Compare [Visa and Mastercard fees](https://example.org/fees) online.",
			candidates: []models.BrandCandidate{
				{BrandID: visaID, BrandName: "Visa"},
				{BrandID: mastercardID, BrandName: "Mastercard"},
			},
			expectCount:      1,
			expectType:       models.CitationNone,
			expectBrandID:    nil,
			expectConfidence: cfg.CitationConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			citations := extractPipeline(t, tt.text, tt.candidates)

			if len(citations) != tt.expectCount {
				t.Fatalf("ExtractCitations() returned %d citations, want %d: %+v", len(citations), tt.expectCount, citations)
			}
			citation := citations[0]

			if citation.Type != tt.expectType {
				t.Errorf("Type = %s, want %s", citation.Type, tt.expectType)
			}
			if tt.expectBrandID == nil {
				if citation.BrandID != nil {
					t.Errorf("BrandID = %v, want nil", citation.BrandID)
				}
			} else {
				if citation.BrandID == nil || *citation.BrandID != *tt.expectBrandID {
					t.Errorf("BrandID = %v, want %v", citation.BrandID, *tt.expectBrandID)
				}
			}
			if citation.Confidence != tt.expectConfidence {
				t.Errorf("Confidence = %v, want %v", citation.Confidence, tt.expectConfidence)
			}
		})
	}
}

func TestExtractCitationsRejectsInvalidURLs(t *testing.T) {
	visaID := uuid.New()
	candidates := []models.BrandCandidate{{BrandID: visaID, BrandName: "Visa"}}

	tests := []struct {
		name string
		text string
	}{
		{name: "single-label host", text: "Visa admin panel lives at http://localhost/admin today."},
		{name: "loopback address", text: "Visa debugging uses https://127.0.0.1/status internally."},
		{name: "link-local address", text: "Visa metadata sits at http://169.254.169.254/meta always."},
		{name: "all-zero network", text: "Visa never resolves http://0.0.0.0/x anywhere."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			citations := extractPipeline(t, tt.text, candidates)
			if len(citations) != 0 {
				t.Errorf("ExtractCitations() = %+v, want no citations", citations)
			}
		})
	}
}

func TestExtractCitationsDeduplicates(t *testing.T) {
	visaID := uuid.New()
	candidates := []models.BrandCandidate{{BrandID: visaID, BrandName: "Visa"}}

	text := "Visa details at https://www.visa.com/cards and again https://www.visa.com/cards here."
	citations := extractPipeline(t, text, candidates)

	if len(citations) != 1 {
		t.Fatalf("ExtractCitations() returned %d citations, want 1 after dedupe: %+v", len(citations), citations)
	}
	if citations[0].Type != models.CitationBrand {
		t.Errorf("Type = %s, want %s", citations[0].Type, models.CitationBrand)
	}
}

func TestExtractCitationsEmptyText(t *testing.T) {
	citations := extractPipeline(t, "   ", []models.BrandCandidate{{BrandID: uuid.New(), BrandName: "Visa"}})
	if len(citations) != 0 {
		t.Errorf("ExtractCitations() on blank text = %+v, want none", citations)
	}
}

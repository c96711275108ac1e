package services_test

import (
	"math"
	"testing"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/AI-Template-SDK/visibility-engine/services"
)

func TestScoreSentence(t *testing.T) {
	scorer := services.NewSentimentService()

	tests := []struct {
		name        string
		text        string
		expectLabel models.SentimentLabel
		expectScore float64
	}{
		{
			name:        "no drivers is neutral",
			text:        "The bank operates in many countries.",
			expectLabel: models.SentimentNeutral,
			expectScore: 0,
		},
		{
			name:        "positive drivers",
			text:        "The network is fast and reliable.",
			expectLabel: models.SentimentPositive,
			expectScore: 1,
		},
		{
			name:        "negative drivers",
			text:        "Customers report hidden fees and frequent problems.",
			expectLabel: models.SentimentNegative,
			expectScore: -1,
		},
		{
			name:        "negation flips a positive driver",
			text:        "The card is not reliable.",
			expectLabel: models.SentimentNegative,
			expectScore: -1,
		},
		{
			name:        "contraction negation flips a positive driver",
			text:        "Most reviews don't recommend this card.",
			expectLabel: models.SentimentNegative,
			expectScore: -1,
		},
		{
			name:        "balanced drivers are mixed",
			text:        "It is fast but expensive.",
			expectLabel: models.SentimentMixed,
			expectScore: 0,
		},
		{
			name:        "negation window expires",
			text:        "It is not cheap, yet the service stays reliable.",
			expectLabel: models.SentimentPositive,
			expectScore: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.ScoreSentence(tt.text)

			if result.Label != tt.expectLabel {
				t.Errorf("ScoreSentence() label = %s, want %s", result.Label, tt.expectLabel)
			}
			if math.Abs(result.Score-tt.expectScore) > 1e-9 {
				t.Errorf("ScoreSentence() score = %v, want %v", result.Score, tt.expectScore)
			}
		})
	}
}

func TestScoreMentions(t *testing.T) {
	scorer := services.NewSentimentService()

	tests := []struct {
		name        string
		texts       []string
		expectLabel models.SentimentLabel
		expectScore float64
	}{
		{
			name:        "no sentences is neutral zero",
			texts:       nil,
			expectLabel: models.SentimentNeutral,
			expectScore: 0,
		},
		{
			name:        "all positive sentences",
			texts:       []string{"The rewards are great.", "Support is fast and reliable."},
			expectLabel: models.SentimentPositive,
			expectScore: 1,
		},
		{
			name:        "disagreeing sentences are mixed",
			texts:       []string{"The rewards are great.", "The fees are expensive."},
			expectLabel: models.SentimentMixed,
			expectScore: 0,
		},
		{
			name:        "neutral sentences stay neutral",
			texts:       []string{"The card launched in 2019.", "It is issued in several countries."},
			expectLabel: models.SentimentNeutral,
			expectScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score := scorer.ScoreMentions(makeSentences(tt.texts...))

			if label != tt.expectLabel {
				t.Errorf("ScoreMentions() label = %s, want %s", label, tt.expectLabel)
			}
			if math.Abs(score-tt.expectScore) > 1e-9 {
				t.Errorf("ScoreMentions() score = %v, want %v", score, tt.expectScore)
			}
		})
	}
}

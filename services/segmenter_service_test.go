package services_test

import (
	"testing"

	"github.com/AI-Template-SDK/visibility-engine/services"
)

func TestSegment(t *testing.T) {
	segmenter := services.NewSegmenterService()

	tests := []struct {
		name          string
		text          string
		expectTexts   []string
		expectWordCts []int
	}{
		{
			name:        "empty text yields no sentences",
			text:        "",
			expectTexts: nil,
		},
		{
			name:        "whitespace-only text yields no sentences",
			text:        "   \n\t  \n",
			expectTexts: nil,
		},
		{
			name:          "single sentence",
			text:          "Visa is accepted worldwide.",
			expectTexts:   []string{"Visa is accepted worldwide."},
			expectWordCts: []int{4},
		},
		{
			name:          "two sentences with different terminators",
			text:          "First sentence. Second sentence here!",
			expectTexts:   []string{"First sentence.", "Second sentence here!"},
			expectWordCts: []int{2, 3},
		},
		{
			name:          "decimal number does not split",
			text:          "The fee is 3.5 percent. Next point.",
			expectTexts:   []string{"The fee is 3.5 percent.", "Next point."},
			expectWordCts: []int{5, 2},
		},
		{
			name:          "corporate abbreviation does not split",
			text:          "Companies like Acme Inc. are growing fast. Done.",
			expectTexts:   []string{"Companies like Acme Inc. are growing fast.", "Done."},
			expectWordCts: []int{7, 1},
		},
		{
			name:          "latin abbreviation does not split",
			text:          "Use major cards, e.g. Visa. They work everywhere.",
			expectTexts:   []string{"Use major cards, e.g. Visa.", "They work everywhere."},
			expectWordCts: []int{5, 3},
		},
		{
			name:          "question and exclamation runs stay attached",
			text:          "Really?! Yes.",
			expectTexts:   []string{"Really?!", "Yes."},
			expectWordCts: []int{1, 1},
		},
		{
			name: "markdown bullets become separate sentences",
			text: "# Top Cards\n- First bullet point\n- Second one\nSome closing text.",
			expectTexts: []string{
				"Top Cards",
				"First bullet point",
				"Second one",
				"Some closing text.",
			},
			expectWordCts: []int{2, 3, 2, 3},
		},
		{
			name:          "numbered list prefixes are stripped",
			text:          "1. First item\n2) Second item",
			expectTexts:   []string{"First item", "Second item"},
			expectWordCts: []int{2, 2},
		},
		{
			name:          "horizontal rule carries no sentence",
			text:          "Intro line here\n---\nOutro line here",
			expectTexts:   []string{"Intro line here", "Outro line here"},
			expectWordCts: []int{3, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentences := segmenter.Segment(tt.text)

			if len(sentences) != len(tt.expectTexts) {
				t.Fatalf("Segment() returned %d sentences, want %d: %+v", len(sentences), len(tt.expectTexts), sentences)
			}

			for i, sentence := range sentences {
				if sentence.Text != tt.expectTexts[i] {
					t.Errorf("sentence %d text = %q, want %q", i, sentence.Text, tt.expectTexts[i])
				}
				if sentence.WordCount != tt.expectWordCts[i] {
					t.Errorf("sentence %d word count = %d, want %d", i, sentence.WordCount, tt.expectWordCts[i])
				}
				if sentence.Position != i+1 {
					t.Errorf("sentence %d position = %d, want %d", i, sentence.Position, i+1)
				}
				if sentence.TotalSentences != len(tt.expectTexts) {
					t.Errorf("sentence %d total = %d, want %d", i, sentence.TotalSentences, len(tt.expectTexts))
				}
			}
		})
	}
}

// services/segmenter_service.go
package services

import (
	"strings"
	"unicode"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
)

type segmenterService struct{}

func NewSegmenterService() SegmenterService {
	return &segmenterService{}
}

// Abbreviations that end with a period but do not end a sentence. Checked
// against the lowercased token preceding the period.
var sentenceAbbreviations = map[string]bool{
	"e.g":    true,
	"i.e":    true,
	"etc":    true,
	"vs":     true,
	"approx": true,
	"inc":    true,
	"ltd":    true,
	"corp":   true,
	"co":     true,
	"no":     true,
	"mr":     true,
	"mrs":    true,
	"ms":     true,
	"dr":     true,
	"st":     true,
	"u.s":    true,
	"u.k":    true,
}

// Segment splits raw answer text into ordered, 1-indexed sentences with word
// counts. Empty or whitespace-only text yields zero sentences, not an error.
// Answer-engine output is usually markdown, so list bullets, headings and
// blockquote markers are treated as sentence boundaries of their own.
func (s *segmenterService) Segment(text string) []models.Sentence {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var parts []string
	for _, line := range strings.Split(text, "\n") {
		line = stripLineDecoration(line)
		if line == "" {
			continue
		}
		parts = append(parts, splitSentences(line)...)
	}

	sentences := make([]models.Sentence, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sentences = append(sentences, models.Sentence{
			Text:      part,
			WordCount: len(strings.Fields(part)),
		})
	}

	total := len(sentences)
	for i := range sentences {
		sentences[i].Position = i + 1
		sentences[i].TotalSentences = total
	}
	return sentences
}

// stripLineDecoration removes leading markdown markers (headings, bullets,
// numbered-list prefixes, blockquotes) so they do not leak into sentence text
func stripLineDecoration(line string) string {
	line = strings.TrimSpace(line)

	for len(line) > 0 && (line[0] == '#' || line[0] == '>') {
		line = strings.TrimSpace(line[1:])
	}
	if len(line) >= 2 && (line[0] == '-' || line[0] == '*' || line[0] == '+') && line[1] == ' ' {
		line = strings.TrimSpace(line[2:])
	}

	// numbered list prefix like "3." or "12)"
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') && i+1 < len(line) && line[i+1] == ' ' {
		line = strings.TrimSpace(line[i+2:])
	}

	// horizontal rules carry no sentence content
	if trimmed := strings.Trim(line, "-=*_ "); trimmed == "" {
		return ""
	}
	return line
}

// splitSentences splits one line of prose at terminator runes, keeping
// abbreviations and decimals intact
func splitSentences(line string) []string {
	var sentences []string
	runes := []rune(line)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// consume trailing terminators ("?!", "...")
		end := i
		for end+1 < len(runes) && (runes[end+1] == '.' || runes[end+1] == '!' || runes[end+1] == '?') {
			end++
		}

		if r == '.' && end == i {
			// decimal number like 3.5
			if i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			if isAbbreviation(runes, start, i) {
				continue
			}
		}

		// a terminator only ends the sentence at end-of-line or before a space
		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			i = end
			continue
		}

		sentences = append(sentences, string(runes[start:end+1]))
		i = end + 1
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start = i
		i--
	}

	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isAbbreviation(runes []rune, start, periodIdx int) bool {
	// walk back over the token preceding the period
	tokenStart := periodIdx
	for tokenStart > start {
		prev := runes[tokenStart-1]
		if unicode.IsLetter(prev) || prev == '.' {
			tokenStart--
			continue
		}
		break
	}
	if tokenStart == periodIdx {
		return false
	}
	token := strings.ToLower(strings.TrimSuffix(string(runes[tokenStart:periodIdx]), "."))
	token = strings.TrimPrefix(token, ".")
	if sentenceAbbreviations[token] {
		return true
	}
	// single-letter initials like "J." or "U."
	return len([]rune(token)) == 1
}

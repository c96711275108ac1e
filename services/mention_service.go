// services/mention_service.go
package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
)

type mentionService struct{}

func NewMentionService() MentionService {
	return &mentionService{}
}

// Legal/formal suffixes stripped when generating name variations
var legalNameSuffixes = map[string]bool{
	"inc":         true,
	"llc":         true,
	"ltd":         true,
	"limited":     true,
	"corp":        true,
	"corporation": true,
	"co":          true,
	"company":     true,
	"plc":         true,
	"gmbh":        true,
	"sa":          true,
	"ag":          true,
}

// Tokens too generic to identify a brand on their own. A name variation must
// contain at least one token outside this set, otherwise shared common words
// like "Credit Union" would match every competitor.
var genericNameTokens = map[string]bool{
	"the": true, "and": true, "of": true, "for": true, "a": true, "an": true,
	"bank": true, "credit": true, "card": true, "union": true, "freedom": true,
	"financial": true, "finance": true, "services": true, "service": true,
	"group": true, "company": true, "insurance": true, "capital": true,
	"solutions": true, "global": true, "international": true, "national": true,
	"first": true, "trust": true, "digital": true, "online": true,
	"technologies": true, "technology": true, "systems": true, "software": true,
	"media": true, "platform": true, "community": true, "federal": true,
	"savings": true, "pay": true, "payments": true, "holdings": true,
}

// DetectMentions scans sentence text for each candidate brand using
// word-boundary-safe, case-insensitive matching. Substring containment is
// not enough: "Visa" must not match inside "Advisory". Results come back in
// candidate order with per-brand first position, count and sentence list.
func (s *mentionService) DetectMentions(sentences []models.Sentence, candidates []models.BrandCandidate) []*BrandMentions {
	results := make([]*BrandMentions, 0, len(candidates))

	for _, candidate := range candidates {
		patterns := compileBrandPatterns(candidate.BrandName)
		result := &BrandMentions{BrandID: candidate.BrandID}

		for _, sentence := range sentences {
			hits := countMatches(sentence.Text, patterns)
			if hits == 0 {
				continue
			}
			if result.FirstPosition == 0 {
				result.FirstPosition = sentence.Position
			}
			result.MentionCount += hits
			result.Sentences = append(result.Sentences, sentence)
		}

		result.Mentioned = result.MentionCount > 0
		results = append(results, result)
	}
	return results
}

// countMatches counts distinct match start offsets across all patterns, so a
// full-name hit and a prefix hit on the same occurrence count once
func countMatches(text string, patterns []*regexp.Regexp) int {
	starts := make(map[int]bool)
	for _, pattern := range patterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			// group 1 is the boundary, group 2 is the name itself
			starts[loc[4]] = true
		}
	}
	return len(starts)
}

// compileBrandPatterns builds word-boundary, possessive-tolerant regexps for
// every realistic variation of the brand name
func compileBrandPatterns(brandName string) []*regexp.Regexp {
	variations := generateNameVariations(brandName)
	patterns := make([]*regexp.Regexp, 0, len(variations))
	for _, variation := range variations {
		pattern, err := compileVariation(variation)
		if err != nil {
			continue
		}
		patterns = append(patterns, pattern)
	}
	return patterns
}

func compileVariation(variation string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(variation)
	// tolerate whitespace or hyphens between the words of a multi-word name
	escaped = regexp.MustCompile(`(?:\\?\s)+`).ReplaceAllString(escaped, `[\s\-]+`)
	expr := fmt.Sprintf(`(?i)(^|[^\pL\pN])(%s)(?:['’]s)?($|[^\pL\pN])`, escaped)
	return regexp.Compile(expr)
}

// generateNameVariations derives the deterministic variation set for a brand
// name: the full name, the name without legal suffixes, sufficiently specific
// leading prefixes, and spaced/unspaced compound forms
func generateNameVariations(brandName string) []string {
	name := strings.TrimSpace(brandName)
	if name == "" {
		return nil
	}

	seen := make(map[string]bool)
	var variations []string
	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		key := strings.ToLower(candidate)
		if candidate == "" || seen[key] {
			return
		}
		if !isSpecificVariation(candidate) {
			return
		}
		seen[key] = true
		variations = append(variations, candidate)
	}

	add(name)

	// root word of domain-style names: "Senso.ai" -> "Senso"
	if dot := strings.IndexByte(name, '.'); dot > 0 && !strings.Contains(name, " ") {
		add(name[:dot])
	}

	stripped := stripLegalSuffixes(name)
	add(stripped)

	tokens := strings.Fields(stripped)
	// leading prefixes: "HDFC Bank Freedom Credit Card" should match on
	// "HDFC" or "HDFC Bank", but never on shared generic words alone
	for k := 1; k < len(tokens); k++ {
		add(strings.Join(tokens[:k], " "))
	}
	// unspaced compound of the first two tokens: "Sun Life" -> "SunLife"
	if len(tokens) >= 2 {
		add(tokens[0] + tokens[1])
	}
	// spaced form of a CamelCase compound: "SunLife" -> "Sun Life"
	if len(tokens) == 1 {
		add(splitCamelCase(tokens[0]))
	}

	return variations
}

// isSpecificVariation rejects variations that could only false-positive:
// too short, or built entirely from generic tokens
func isSpecificVariation(variation string) bool {
	alnum := 0
	for _, r := range variation {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if alnum < 3 {
		return false
	}

	specific := false
	for _, token := range strings.Fields(strings.ToLower(variation)) {
		token = strings.Trim(token, ".,'-")
		if token == "" {
			continue
		}
		if !genericNameTokens[token] {
			specific = true
			break
		}
	}
	return specific
}

func stripLegalSuffixes(name string) string {
	tokens := strings.Fields(name)
	for len(tokens) > 1 {
		last := strings.ToLower(strings.Trim(tokens[len(tokens)-1], ".,"))
		if !legalNameSuffixes[last] {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func splitCamelCase(token string) string {
	var out []rune
	runes := []rune(token)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			out = append(out, ' ')
		}
		out = append(out, r)
	}
	result := string(out)
	if result == token {
		return ""
	}
	return result
}

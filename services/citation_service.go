// services/citation_service.go
package services

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/AI-Template-SDK/visibility-engine/internal/config"
	"github.com/AI-Template-SDK/visibility-engine/internal/models"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"mvdan.cc/xurls/v2"
)

type citationService struct {
	cfg      config.AnalysisConfig
	urlRegex *regexp.Regexp
}

// markdownLinkRegex captures [label](url) inline link markup
var markdownLinkRegex = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^)\s]+)\)`)

// socialDomains is the fixed social-platform set (base domains)
var socialDomains = map[string]bool{
	"facebook.com":  true,
	"twitter.com":   true,
	"x.com":         true,
	"linkedin.com":  true,
	"instagram.com": true,
	"youtube.com":   true,
	"tiktok.com":    true,
	"reddit.com":    true,
	"pinterest.com": true,
	"quora.com":     true,
	"medium.com":    true,
	"threads.net":   true,
}

func NewCitationService(cfg config.AnalysisConfig) CitationService {
	return &citationService{
		cfg:      cfg,
		urlRegex: xurls.Strict(),
	}
}

// candidateURL is one URL occurrence before validation
type candidateURL struct {
	raw   string
	label string // markdown link text, empty for bare URLs
}

// ExtractCitations finds URLs in inline link markup and as bare URLs,
// validates them, classifies them into brand/earned/social and attributes
// each to at most one brand. Malformed or unattributable URLs never fail the
// response: they are dropped or recorded as type none.
func (s *citationService) ExtractCitations(text string, sentences []models.Sentence, candidates []models.BrandCandidate, mentions []*BrandMentions) []models.Citation {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var ordered []candidateURL
	seen := make(map[string]bool)
	push := func(raw, label string) {
		raw = strings.TrimRight(raw, ".,;:!?")
		key := strings.ToLower(raw)
		if raw == "" || seen[key] {
			return
		}
		seen[key] = true
		ordered = append(ordered, candidateURL{raw: raw, label: label})
	}

	for _, match := range markdownLinkRegex.FindAllStringSubmatch(text, -1) {
		push(match[2], match[1])
	}
	for _, raw := range s.urlRegex.FindAllString(text, -1) {
		push(raw, "")
	}

	mentionsByBrand := make(map[uuid.UUID]*BrandMentions, len(mentions))
	for _, m := range mentions {
		mentionsByBrand[m.BrandID] = m
	}

	var citations []models.Citation
	for _, cand := range ordered {
		host, ok := validateCitationURL(cand.raw)
		if !ok {
			continue // per-citation blast radius: drop, never fail the response
		}
		citation := s.classify(cand, host, sentences, candidates, mentionsByBrand)
		citations = append(citations, citation)
	}
	return citations
}

// classify assigns type, confidence and brand attribution for one valid URL
func (s *citationService) classify(cand candidateURL, host string, sentences []models.Sentence, candidates []models.BrandCandidate, mentionsByBrand map[uuid.UUID]*BrandMentions) models.Citation {
	citation := models.Citation{
		URL:        cand.raw,
		Type:       models.CitationNone,
		Confidence: s.cfg.CitationConfidence,
		Position:   findURLSentence(cand.raw, sentences),
	}

	baseDomain := baseDomainOf(host)

	// brand-owned domain: the host's core label contains the normalized
	// leading words of the brand name
	coreLabel := coreLabelOf(baseDomain, host)
	for i := range candidates {
		if brandOwnsLabel(coreLabel, candidates[i].BrandName) {
			id := candidates[i].BrandID
			citation.Type = models.CitationBrand
			citation.BrandID = &id
			citation.Confidence = s.cfg.BrandDomainConfidence
			return citation
		}
	}

	// third-party domain: attribution requires unambiguous brand context in
	// the sentence holding the URL or in the link label
	brandID, attributed := s.contextBrand(cand, sentences, candidates, mentionsByBrand)
	if !attributed {
		return citation // type none, excluded from brand totals
	}

	if socialDomains[baseDomain] {
		citation.Type = models.CitationSocial
	} else {
		citation.Type = models.CitationEarned
	}
	citation.BrandID = &brandID
	return citation
}

// contextBrand finds the single brand a third-party URL talks about. More
// than one brand in context is ambiguous and yields no attribution.
func (s *citationService) contextBrand(cand candidateURL, sentences []models.Sentence, candidates []models.BrandCandidate, mentionsByBrand map[uuid.UUID]*BrandMentions) (uuid.UUID, bool) {
	position := findURLSentence(cand.raw, sentences)

	var matched []uuid.UUID
	for _, candidate := range candidates {
		patterns := compileBrandPatterns(candidate.BrandName)

		if cand.label != "" && countMatches(cand.label, patterns) > 0 {
			matched = append(matched, candidate.BrandID)
			continue
		}
		if position == 0 {
			continue
		}
		if m := mentionsByBrand[candidate.BrandID]; m != nil {
			for _, sentence := range m.Sentences {
				if sentence.Position == position {
					matched = append(matched, candidate.BrandID)
					break
				}
			}
		}
	}

	if len(matched) != 1 {
		return uuid.Nil, false
	}
	return matched[0], true
}

// findURLSentence locates the 1-indexed sentence containing the URL text,
// 0 when the URL sits outside any segmented sentence
func findURLSentence(raw string, sentences []models.Sentence) int {
	for _, sentence := range sentences {
		if strings.Contains(sentence.Text, raw) {
			return sentence.Position
		}
	}
	return 0
}

// validateCitationURL parses and validates a candidate URL, returning its
// host. Malformed hosts, reserved address ranges and bogus TLD labels are
// all rejected.
func validateCitationURL(raw string) (string, bool) {
	withScheme := raw
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		withScheme = "https://" + raw
	}

	parsed, err := url.Parse(withScheme)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", false
	}

	if ip := net.ParseIP(host); ip != nil {
		// IPs carry no TLD label check; reject reserved ranges
		if !routableIP(ip) {
			return "", false
		}
		return host, true
	}

	if strings.Contains(host, "..") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return "", false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return "", false
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 || !alphaOnly(tld) {
		return "", false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return "", false
		}
	}

	return host, true
}

// routableIP rejects loopback, link-local, multicast, broadcast and the
// all-zero network
func routableIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		if v4[0] == 0 { // 0.0.0.0/8
			return false
		}
		if v4.Equal(net.IPv4bcast) {
			return false
		}
	}
	return true
}

func alphaOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}

// baseDomainOf resolves the eTLD+1, falling back to the host itself when the
// public suffix list cannot place it
func baseDomainOf(host string) string {
	base, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return base
}

// coreLabelOf strips the public suffix off the base domain, leaving the
// registrable label ("hdfcbank" for "hdfcbank.com")
func coreLabelOf(baseDomain, host string) string {
	if dot := strings.IndexByte(baseDomain, '.'); dot > 0 {
		return baseDomain[:dot]
	}
	if dot := strings.IndexByte(host, '.'); dot > 0 {
		return host[:dot]
	}
	return baseDomain
}

// brandOwnsLabel reports whether the host core label matches the brand's own
// name, computed by normalizing the leading 1-2 words to alphanumerics and
// checking containment
func brandOwnsLabel(coreLabel, brandName string) bool {
	if coreLabel == "" {
		return false
	}
	words := strings.Fields(stripLegalSuffixes(strings.TrimSpace(brandName)))
	if len(words) == 0 {
		return false
	}

	first := normalizeAlnum(words[0])
	tokens := []string{}
	if len(words) >= 2 {
		tokens = append(tokens, first+normalizeAlnum(words[1]))
	}
	tokens = append(tokens, first)

	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		if strings.Contains(coreLabel, token) {
			return true
		}
	}
	return false
}

func normalizeAlnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

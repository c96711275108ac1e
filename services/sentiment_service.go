// services/sentiment_service.go
package services

import (
	"math"
	"strings"

	"github.com/AI-Template-SDK/visibility-engine/internal/models"
)

type sentimentService struct{}

func NewSentimentService() SentimentService {
	return &sentimentService{}
}

// positiveDrivers and negativeDrivers are the keyword lookup tables for
// sentence-level sentiment. Tokens are matched after lowercasing and
// punctuation stripping, so "user-friendly" hits "friendly".
var positiveDrivers = map[string]bool{
	"good": true, "great": true, "excellent": true, "best": true,
	"leading": true, "top": true, "reliable": true, "trusted": true,
	"innovative": true, "recommended": true, "recommend": true,
	"strong": true, "popular": true, "outstanding": true, "impressive": true,
	"superior": true, "seamless": true, "robust": true, "affordable": true,
	"convenient": true, "award": true, "winning": true, "favorite": true,
	"love": true, "loved": true, "praised": true, "benefit": true,
	"benefits": true, "advantage": true, "advantages": true, "fast": true,
	"easy": true, "secure": true, "competitive": true, "generous": true,
	"rewarding": true, "valuable": true, "renowned": true, "friendly": true,
	"attractive": true, "flexible": true, "comprehensive": true,
	"transparent": true, "efficient": true,
}

var negativeDrivers = map[string]bool{
	"bad": true, "poor": true, "worst": true, "weak": true,
	"unreliable": true, "slow": true, "expensive": true, "costly": true,
	"problem": true, "problems": true, "issue": true, "issues": true,
	"complaint": true, "complaints": true, "criticized": true,
	"criticism": true, "lawsuit": true, "scandal": true, "breach": true,
	"fraud": true, "decline": true, "declining": true, "outdated": true,
	"confusing": true, "difficult": true, "frustrating": true,
	"disappointing": true, "avoid": true, "risky": true, "downside": true,
	"drawback": true, "drawbacks": true, "failure": true, "failed": true,
	"controversy": true, "hidden": true, "penalty": true, "penalties": true,
	"lacking": true, "lacks": true, "worse": true, "mediocre": true,
}

// negators flip the polarity of a driver appearing within the next few tokens
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"without": true, "hardly": true, "barely": true, "isnt": true,
	"wasnt": true, "arent": true, "dont": true, "doesnt": true,
	"didnt": true, "wont": true, "cant": true, "couldnt": true,
	"wouldnt": true, "shouldnt": true,
}

const negationWindow = 3

// ScoreSentence runs the driver lookup over one sentence. Sentences with no
// matched driver default to neutral with score 0.
func (s *sentimentService) ScoreSentence(text string) SentimentResult {
	tokens := tokenizeSentiment(text)

	positives, negatives := 0, 0
	negateUntil := -1

	for i, token := range tokens {
		if negators[token] {
			negateUntil = i + negationWindow
			continue
		}

		negated := i <= negateUntil
		switch {
		case positiveDrivers[token]:
			if negated {
				negatives++
			} else {
				positives++
			}
		case negativeDrivers[token]:
			if negated {
				positives++
			} else {
				negatives++
			}
		}
	}

	if positives == 0 && negatives == 0 {
		return SentimentResult{Label: models.SentimentNeutral, Score: 0}
	}

	score := float64(positives-negatives) / float64(positives+negatives)

	label := models.SentimentNeutral
	switch {
	case positives > 0 && negatives > 0 && math.Abs(score) < 0.5:
		label = models.SentimentMixed
	case score >= 0.2:
		label = models.SentimentPositive
	case score <= -0.2:
		label = models.SentimentNegative
	}
	return SentimentResult{Label: label, Score: score}
}

// ScoreMentions produces the response-level sentiment for one brand from its
// mentioning sentences: the mean sentence score, labeled mixed when the
// sentences disagree. Zero sentences yields neutral/0 rather than undefined.
func (s *sentimentService) ScoreMentions(sentences []models.Sentence) (models.SentimentLabel, float64) {
	if len(sentences) == 0 {
		return models.SentimentNeutral, 0
	}

	sum := 0.0
	sawPositive, sawNegative, sawMixed := false, false, false
	for _, sentence := range sentences {
		result := s.ScoreSentence(sentence.Text)
		sum += result.Score
		switch result.Label {
		case models.SentimentPositive:
			sawPositive = true
		case models.SentimentNegative:
			sawNegative = true
		case models.SentimentMixed:
			sawMixed = true
		}
	}

	mean := sum / float64(len(sentences))

	switch {
	case sawMixed || (sawPositive && sawNegative):
		return models.SentimentMixed, mean
	case mean >= 0.2:
		return models.SentimentPositive, mean
	case mean <= -0.2:
		return models.SentimentNegative, mean
	default:
		return models.SentimentNeutral, mean
	}
}

// tokenizeSentiment lowercases and strips punctuation, collapsing
// contractions ("isn't" -> "isnt") so the negator table matches them
func tokenizeSentiment(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			current.WriteRune(r)
		case r == '\'' || r == '’':
			// drop apostrophes inside a token
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// internal/models/models.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScopeKind identifies the grouping axis for an aggregation run
type ScopeKind string

const (
	ScopeOverall  ScopeKind = "overall"
	ScopeProvider ScopeKind = "provider"
	ScopeTopic    ScopeKind = "topic"
	ScopePersona  ScopeKind = "persona"
)

// AggregationScope is a pure grouping key: overall covers everything,
// the other kinds filter responses by the matching key value.
type AggregationScope struct {
	Kind  ScopeKind `json:"scope_kind"`
	Value string    `json:"scope_value"` // empty for overall
}

func (s AggregationScope) String() string {
	if s.Kind == ScopeOverall {
		return string(ScopeOverall)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.Value)
}

// RawResponse is one answer-engine response handed to the engine by the
// testing orchestrator. Immutable once produced.
type RawResponse struct {
	ResponseID uuid.UUID `json:"response_id" db:"response_id"`
	AnalysisID uuid.UUID `json:"analysis_id" db:"analysis_id"`
	BatchID    uuid.UUID `json:"batch_id" db:"batch_id"`
	PromptID   uuid.UUID `json:"prompt_id" db:"prompt_id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	TopicID    string    `json:"topic_id" db:"topic_id"`
	PersonaID  string    `json:"persona_id" db:"persona_id"`
	Text       string    `json:"text" db:"response_text"`
	TestedAt   time.Time `json:"tested_at" db:"tested_at"`
}

// Sentence is a position-indexed slice of a response. Derived, never mutated.
type Sentence struct {
	Position       int    `json:"position"` // 1-indexed
	Text           string `json:"text"`
	WordCount      int    `json:"word_count"`
	TotalSentences int    `json:"total_sentences"` // of the whole response
}

// BrandCandidate is one brand tracked in an analysis run. The list is
// supplied per run and is read-only for its duration.
type BrandCandidate struct {
	BrandID      uuid.UUID `json:"brand_id" db:"brand_id"`
	BrandName    string    `json:"brand_name" db:"brand_name"`
	IsOwnedBrand bool      `json:"is_owned_brand" db:"is_owned_brand"`
}

// CitationType classifies an extracted URL
type CitationType string

const (
	CitationBrand  CitationType = "brand"  // host core label matches the brand name
	CitationEarned CitationType = "earned" // third-party domain discussing the brand
	CitationSocial CitationType = "social" // fixed social-platform domain set
	CitationNone   CitationType = "none"   // valid URL, no brand attribution
)

// Citation is one validated URL found in a response, attributed to zero or
// one brand. Type none citations are excluded from brand citation totals.
type Citation struct {
	URL        string       `json:"url"`
	Type       CitationType `json:"type"`
	Confidence float64      `json:"confidence"` // [0,1]
	BrandID    *uuid.UUID   `json:"brand_id,omitempty"`
	Position   int          `json:"position,omitempty"` // sentence position of the URL, 0 if unknown
}

// SentimentLabel is the qualitative sentiment class for a mention
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
	SentimentMixed    SentimentLabel = "mixed"
)

// BrandResponseScore is the immutable scoring record for one
// (response, brand) pair. Corrections re-score and replace, never mutate.
type BrandResponseScore struct {
	ScoreID        uuid.UUID      `json:"score_id" db:"score_id"`
	ResponseID     uuid.UUID      `json:"response_id" db:"response_id"`
	AnalysisID     uuid.UUID      `json:"analysis_id" db:"analysis_id"`
	BatchID        uuid.UUID      `json:"batch_id" db:"batch_id"`
	BrandID        uuid.UUID      `json:"brand_id" db:"brand_id"`
	PromptID       uuid.UUID      `json:"prompt_id" db:"prompt_id"`
	ProviderID     string         `json:"provider_id" db:"provider_id"`
	TopicID        string         `json:"topic_id" db:"topic_id"`
	PersonaID      string         `json:"persona_id" db:"persona_id"`
	Mentioned      bool           `json:"mentioned" db:"mentioned"`
	FirstPosition  int            `json:"first_position" db:"first_position"` // 0 when not mentioned
	MentionCount   int            `json:"mention_count" db:"mention_count"`
	Sentences      SentenceList   `json:"sentences" db:"sentences"` // only sentences where the brand appears
	TotalWordCount int            `json:"total_word_count" db:"total_word_count"`
	Citations      CitationList   `json:"citations" db:"citations"`
	SentimentLabel SentimentLabel `json:"sentiment_label" db:"sentiment_label"`
	SentimentScore float64        `json:"sentiment_score" db:"sentiment_score"` // [-1,1]
	IsLatest       bool           `json:"is_latest" db:"is_latest"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// SentimentBreakdown tallies mention sentiment labels across a scope
type SentimentBreakdown struct {
	Positive int `json:"positive" db:"sentiment_positive"`
	Neutral  int `json:"neutral" db:"sentiment_neutral"`
	Negative int `json:"negative" db:"sentiment_negative"`
	Mixed    int `json:"mixed" db:"sentiment_mixed"`
}

// AggregatedBrandMetric is one brand's metric row for one scope and one
// computation run. A run replaces the full set for its scope wholesale.
type AggregatedBrandMetric struct {
	MetricID           uuid.UUID          `json:"metric_id" db:"metric_id"`
	AnalysisID         uuid.UUID          `json:"analysis_id" db:"analysis_id"`
	ScopeKind          ScopeKind          `json:"scope_kind" db:"scope_kind"`
	ScopeValue         string             `json:"scope_value" db:"scope_value"`
	BrandID            uuid.UUID          `json:"brand_id" db:"brand_id"`
	BrandName          string             `json:"brand_name" db:"brand_name"`
	IsOwnedBrand       bool               `json:"is_owned_brand" db:"is_owned_brand"`
	VisibilityScore    float64            `json:"visibility_score" db:"visibility_score"` // [0,100]
	VisibilityRank     int                `json:"visibility_rank" db:"visibility_rank"`
	TotalMentions      int                `json:"total_mentions" db:"total_mentions"`
	MentionRank        int                `json:"mention_rank" db:"mention_rank"`
	ShareOfVoice       float64            `json:"share_of_voice" db:"share_of_voice"`
	ShareOfVoiceRank   int                `json:"share_of_voice_rank" db:"share_of_voice_rank"`
	AvgPosition        float64            `json:"avg_position" db:"avg_position"`
	AvgPositionRank    int                `json:"avg_position_rank" db:"avg_position_rank"` // rank 1 = lowest value
	DepthOfMention     float64            `json:"depth_of_mention" db:"depth_of_mention"`
	DepthRank          int                `json:"depth_rank" db:"depth_rank"`
	CitationShare      float64            `json:"citation_share" db:"citation_share"`
	CitationShareRank  int                `json:"citation_share_rank" db:"citation_share_rank"`
	SentimentScore     float64            `json:"sentiment_score" db:"sentiment_score"`
	SentimentBreakdown SentimentBreakdown `json:"sentiment_breakdown"`
	Count1st           int                `json:"count_1st" db:"count_1st"`
	Count2nd           int                `json:"count_2nd" db:"count_2nd"`
	Count3rd           int                `json:"count_3rd" db:"count_3rd"`
	PositionRank       int                `json:"position_rank" db:"position_rank"` // ranks count_1st tallies
	TotalAppearances   int                `json:"total_appearances" db:"total_appearances"`
	ComputedAt         time.Time          `json:"computed_at" db:"computed_at"`
}

// BatchStatus tracks the lifecycle of a scoring batch
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// ResponseBatch groups the raw responses of one prompt-batch test run. The
// aggregation barrier is the batch reaching completed status.
type ResponseBatch struct {
	BatchID            uuid.UUID   `json:"batch_id" db:"batch_id"`
	AnalysisID         uuid.UUID   `json:"analysis_id" db:"analysis_id"`
	Status             BatchStatus `json:"status" db:"status"`
	TotalResponses     int         `json:"total_responses" db:"total_responses"`
	CompletedResponses int         `json:"completed_responses" db:"completed_responses"`
	FailedResponses    int         `json:"failed_responses" db:"failed_responses"`
	IsLatest           bool        `json:"is_latest" db:"is_latest"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// SentenceList stores a sentence sequence as a JSONB column
type SentenceList []Sentence

func (l SentenceList) Value() (driver.Value, error) {
	if l == nil {
		l = SentenceList{}
	}
	return json.Marshal(l)
}

func (l *SentenceList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// CitationList stores a citation sequence as a JSONB column
type CitationList []Citation

func (l CitationList) Value() (driver.Value, error) {
	if l == nil {
		l = CitationList{}
	}
	return json.Marshal(l)
}

func (l *CitationList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported scan type %T", src)
	}
}

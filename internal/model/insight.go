package model

import "time"

// InsightCategory enumerates the permitted category values for an Insight.
type InsightCategory string

const (
	CategoryConvention InsightCategory = "convention"
	CategoryPrinciple  InsightCategory = "principle"
	CategoryTechnique  InsightCategory = "technique"
	CategoryWarning    InsightCategory = "warning"
	CategoryPreference InsightCategory = "preference"
	CategoryFact       InsightCategory = "fact"
	CategoryPattern    InsightCategory = "pattern"
)

// InsightStatus enumerates the lifecycle states of an Insight.
type InsightStatus string

const (
	InsightActive        InsightStatus = "active"
	InsightContradicted  InsightStatus = "contradicted"
	InsightSuperseded    InsightStatus = "superseded"
	InsightPendingReview InsightStatus = "pending_review"
)

// DefaultConfidence is the confidence assigned to a newly created Insight.
const DefaultConfidence = 0.5

// Insight is a persisted short-term knowledge unit distilled from one or
// more Fragments that were judged exact or semantic duplicates of each
// other.
type Insight struct {
	ID               int64
	Content          string
	ContentHash      string
	Embedding        []float32 // nil if the embedding provider failed
	Category         InsightCategory
	Tags             []string
	Domain           string // empty means absent
	Confidence       float64
	ObservationCount int
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	Status           InsightStatus
}

// InsightSource links an Insight back to the Fragment(s) that produced or
// reinforced it. fragment_id is unique across all rows: a given
// (source_path, content) identity is linked to at most one insight.
type InsightSource struct {
	ID             int64
	InsightID      int64
	FragmentID     string
	SourcePath     string
	SourceProject  string
	SectionHeading string
	LineStart      int
	LineEnd        int
	FileHash       string
}

// NewInsight builds an active Insight from its first observed fragment.
func NewInsight(content string, embedding []float32, category InsightCategory, tags []string, domain string, seenAt time.Time) *Insight {
	return &Insight{
		Content:          content,
		ContentHash:      ContentHash(content),
		Embedding:        embedding,
		Category:         category,
		Tags:             tags,
		Domain:           domain,
		Confidence:       DefaultConfidence,
		ObservationCount: 1,
		FirstSeenAt:      seenAt,
		LastSeenAt:       seenAt,
		Status:           InsightActive,
	}
}

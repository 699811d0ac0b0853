package model

// ContradictionType classifies how strongly two insights conflict.
type ContradictionType string

const (
	ContradictionDirect     ContradictionType = "direct"
	ContradictionPartial    ContradictionType = "partial"
	ContradictionContextual ContradictionType = "contextual"
)

// ContradictionStatus tracks administrative resolution of a contradiction.
type ContradictionStatus string

const (
	ResolutionUnresolved ContradictionStatus = "unresolved"
	ResolutionResolved   ContradictionStatus = "resolved"
	ResolutionDismissed  ContradictionStatus = "dismissed"
)

// Contradiction records a detected conflict between two insights. The pair
// is always stored ordered InsightAID < InsightBID so the unordered pair is
// unique regardless of detection order.
type Contradiction struct {
	ID                int64
	InsightAID        int64
	InsightBID        int64
	ContradictionType ContradictionType
	ResolutionStatus  ContradictionStatus
	DetectedBy        string // which processor/stage flagged it
	SimilarityScore   float64
	Description        string
}

// NewContradiction builds a Contradiction with its pair normalized to
// (min, max) order, per the stored-pair invariant.
func NewContradiction(insightA, insightB int64, kind ContradictionType, detectedBy string, similarity float64, description string) *Contradiction {
	a, b := insightA, insightB
	if a > b {
		a, b = b, a
	}
	return &Contradiction{
		InsightAID:        a,
		InsightBID:        b,
		ContradictionType: kind,
		ResolutionStatus:  ResolutionUnresolved,
		DetectedBy:        detectedBy,
		SimilarityScore:   similarity,
		Description:       description,
	}
}

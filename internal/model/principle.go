package model

// PrincipleCategory enumerates the permitted category values for a Principle.
type PrincipleCategory string

const (
	PrincipleCategoryLearning    PrincipleCategory = "learning"
	PrincipleCategoryPrinciple   PrincipleCategory = "principle"
	PrincipleCategoryMoral       PrincipleCategory = "moral"
	PrincipleCategoryHeuristic   PrincipleCategory = "heuristic"
	PrincipleCategoryAntiPattern PrincipleCategory = "anti_pattern"
)

// PrincipleStatus enumerates the lifecycle states of a Principle.
type PrincipleStatus string

const (
	PrincipleActive   PrincipleStatus = "active"
	PrincipleDecaying PrincipleStatus = "decaying"
	PrinciplePruned   PrincipleStatus = "pruned"
)

// Principle is a persisted long-term knowledge unit promoted from one or
// more corroborating Insights.
type Principle struct {
	ID            int64
	Content       string
	Elaboration   string
	ContentHash   string
	Embedding     []float32
	Category      PrincipleCategory
	Tags          []string
	Domains       []string
	Confidence    float64
	Frequency     int
	RecencyScore  float64
	SourceQuality float64
	Rank          float64
	Status        PrincipleStatus
}

// Derivation is a provenance edge recording that an Insight contributed to
// a Principle. The (PrincipleID, InsightID) pair is unique.
type Derivation struct {
	ID                  int64
	PrincipleID         int64
	InsightID           int64
	ContributionWeight float64
}

// PrincipleLinkType enumerates the typed relationships the Linker detects
// between two principles.
type PrincipleLinkType string

const (
	LinkReinforces  PrincipleLinkType = "reinforces"
	LinkGeneralizes PrincipleLinkType = "generalizes"
	LinkSpecializes PrincipleLinkType = "specializes"
	LinkContradicts PrincipleLinkType = "contradicts"
	LinkDependsOn   PrincipleLinkType = "depends_on"
	LinkRelated     PrincipleLinkType = "related"
)

// PrincipleLink is a unique (SourceID, TargetID, LinkType) typed edge
// between two principles.
type PrincipleLink struct {
	ID       int64
	SourceID int64
	TargetID int64
	LinkType PrincipleLinkType
	Strength float64
}

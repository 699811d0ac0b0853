package model

// Cluster is a connected component of mutually similar active insights,
// fully rebuilt on every reconciliation run.
type Cluster struct {
	ID             int64
	Name           string
	Centroid       []float32
	CoherenceScore float64
	InsightCount   int
	InsightIDs     []int64 // many-to-many membership, populated on load
}

package store

import (
	"database/sql"
	"fmt"

	"cerno/internal/model"
)

// CreateContradiction inserts a contradiction, normalizing the pair to
// (min,max) order first so the unique index catches both orderings of
// the same pair. A duplicate pair is swallowed and reported as
// ErrDuplicate, not a hard failure, matching the accumulator/clusterer's
// "contention is success" error policy.
func (s *Store) CreateContradiction(c *model.Contradiction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.InsightAID > c.InsightBID {
		c.InsightAID, c.InsightBID = c.InsightBID, c.InsightAID
	}
	res, err := s.db.Exec(`INSERT INTO contradictions
		(insight_a_id, insight_b_id, contradiction_type, resolution_status, detected_by, similarity_score, description)
		VALUES (?,?,?,?,?,?,?)`,
		c.InsightAID, c.InsightBID, string(c.ContradictionType), string(c.ResolutionStatus),
		c.DetectedBy, c.SimilarityScore, c.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("store: insert contradiction: %w", err)
	}
	return res.LastInsertId()
}

// ListUnresolvedContradictions returns every contradiction still awaiting
// resolution.
func (s *Store) ListUnresolvedContradictions() ([]*model.Contradiction, error) {
	rows, err := s.db.Query(contradictionSelectCols() + ` WHERE resolution_status = 'unresolved'`)
	if err != nil {
		return nil, fmt.Errorf("store: list unresolved contradictions: %w", err)
	}
	defer rows.Close()
	return scanContradictionRows(rows)
}

func contradictionSelectCols() string {
	return `SELECT id, insight_a_id, insight_b_id, contradiction_type, resolution_status, detected_by, similarity_score, description FROM contradictions`
}

func scanContradictionRows(rows *sql.Rows) ([]*model.Contradiction, error) {
	var out []*model.Contradiction
	for rows.Next() {
		var c model.Contradiction
		var kind, status string
		if err := rows.Scan(&c.ID, &c.InsightAID, &c.InsightBID, &kind, &status, &c.DetectedBy, &c.SimilarityScore, &c.Description); err != nil {
			return nil, fmt.Errorf("store: scan contradiction: %w", err)
		}
		c.ContradictionType = model.ContradictionType(kind)
		c.ResolutionStatus = model.ContradictionStatus(status)
		out = append(out, &c)
	}
	return out, rows.Err()
}

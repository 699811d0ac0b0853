package store

import (
	"fmt"

	"cerno/internal/model"
)

func insertDerivation(x execer, d *model.Derivation) error {
	_, err := x.Exec(`INSERT INTO derivations (principle_id, insight_id, contribution_weight) VALUES (?,?,?)`,
		d.PrincipleID, d.InsightID, d.ContributionWeight)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: insert derivation: %w", err)
	}
	return nil
}

// EnsureDerivation records that insightID contributed to principleID,
// no-oping (ErrDuplicate) if that pair already exists. Used by the
// promoter's dedup paths to keep an insight from being lost even when it
// resolves to an existing principle.
func (s *Store) EnsureDerivation(principleID, insightID int64, weight float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := insertDerivation(s.db, &model.Derivation{PrincipleID: principleID, InsightID: insightID, ContributionWeight: weight})
	if err == ErrDuplicate {
		return nil
	}
	return err
}

// InsightHasDerivation reports whether an insight has already been
// promoted into any principle.
func (s *Store) InsightHasDerivation(insightID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM derivations WHERE insight_id = ?`, insightID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: check derivation: %w", err)
	}
	return count > 0, nil
}

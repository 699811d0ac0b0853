package store

import (
	"fmt"

	"cerno/internal/model"
)

// CreateLink inserts a principle link, normalizing source_id < target_id
// before the write so the (source,target,type) unique index dedups
// regardless of discovery order. A swap flips a directional link_type
// (generalizes/specializes) so the stored direction still matches what
// the caller intended; symmetric types pass through unchanged. A
// duplicate link is a no-op.
func (s *Store) CreateLink(l *model.PrincipleLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, b, kind := l.SourceID, l.TargetID, l.LinkType
	if a > b {
		a, b = b, a
		kind = flipDirectionalLinkType(kind)
	}

	_, err := s.db.Exec(`INSERT INTO principle_links (source_id, target_id, link_type, strength) VALUES (?,?,?,?)`,
		a, b, string(kind), l.Strength)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("store: insert link: %w", err)
	}
	return nil
}

// flipDirectionalLinkType reverses a generalizes/specializes link_type when
// its source and target are swapped to satisfy source_id < target_id.
// Symmetric types (reinforces, contradicts, related) are unaffected.
func flipDirectionalLinkType(kind model.PrincipleLinkType) model.PrincipleLinkType {
	switch kind {
	case model.LinkGeneralizes:
		return model.LinkSpecializes
	case model.LinkSpecializes:
		return model.LinkGeneralizes
	default:
		return kind
	}
}

// ListLinksForPrinciple returns every link touching a principle in
// either direction.
func (s *Store) ListLinksForPrinciple(id int64) ([]*model.PrincipleLink, error) {
	rows, err := s.db.Query(`SELECT id, source_id, target_id, link_type, strength FROM principle_links WHERE source_id = ? OR target_id = ?`, id, id)
	if err != nil {
		return nil, fmt.Errorf("store: list links: %w", err)
	}
	defer rows.Close()

	var out []*model.PrincipleLink
	for rows.Next() {
		var l model.PrincipleLink
		var kind string
		if err := rows.Scan(&l.ID, &l.SourceID, &l.TargetID, &kind, &l.Strength); err != nil {
			return nil, fmt.Errorf("store: scan link: %w", err)
		}
		l.LinkType = model.PrincipleLinkType(kind)
		out = append(out, &l)
	}
	return out, rows.Err()
}

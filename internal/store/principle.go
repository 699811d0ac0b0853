package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cerno/internal/model"
)

// CreatePrinciple inserts a new principle and its founding derivation in
// one transaction.
func (s *Store) CreatePrinciple(p *model.Principle, derivation *model.Derivation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	tagsJSON, _ := json.Marshal(p.Tags)
	domainsJSON, _ := json.Marshal(p.Domains)

	res, err := tx.Exec(`INSERT INTO principles
		(content, elaboration, content_hash, embedding, category, tags, domains, confidence, frequency, recency_score, source_quality, rank, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Content, p.Elaboration, p.ContentHash, encodeFloat32Slice(p.Embedding), string(p.Category),
		string(tagsJSON), string(domainsJSON), p.Confidence, p.Frequency, p.RecencyScore, p.SourceQuality, p.Rank, string(p.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("store: insert principle: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if derivation != nil {
		derivation.PrincipleID = id
		if err := insertDerivation(tx, derivation); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.upsertVecRow("vec_index_principles", id, p.Embedding)
	return id, nil
}

func principleSelectCols() string {
	return `SELECT id, content, elaboration, content_hash, embedding, category, tags, domains, confidence, frequency, recency_score, source_quality, rank, status FROM principles`
}

func (s *Store) scanPrincipleRow(row *sql.Row) (*model.Principle, error) {
	var p model.Principle
	var emb []byte
	var tagsJSON, domainsJSON, category, status string
	if err := row.Scan(&p.ID, &p.Content, &p.Elaboration, &p.ContentHash, &emb, &category, &tagsJSON, &domainsJSON,
		&p.Confidence, &p.Frequency, &p.RecencyScore, &p.SourceQuality, &p.Rank, &status); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: scan principle: %w", err)
	}
	p.Embedding = decodeFloat32Slice(emb)
	p.Category = model.PrincipleCategory(category)
	p.Status = model.PrincipleStatus(status)
	_ = json.Unmarshal([]byte(tagsJSON), &p.Tags)
	_ = json.Unmarshal([]byte(domainsJSON), &p.Domains)
	return &p, nil
}

func scanPrincipleRows(rows *sql.Rows) ([]*model.Principle, error) {
	var out []*model.Principle
	for rows.Next() {
		var p model.Principle
		var emb []byte
		var tagsJSON, domainsJSON, category, status string
		if err := rows.Scan(&p.ID, &p.Content, &p.Elaboration, &p.ContentHash, &emb, &category, &tagsJSON, &domainsJSON,
			&p.Confidence, &p.Frequency, &p.RecencyScore, &p.SourceQuality, &p.Rank, &status); err != nil {
			return nil, fmt.Errorf("store: scan principle row: %w", err)
		}
		p.Embedding = decodeFloat32Slice(emb)
		p.Category = model.PrincipleCategory(category)
		p.Status = model.PrincipleStatus(status)
		_ = json.Unmarshal([]byte(tagsJSON), &p.Tags)
		_ = json.Unmarshal([]byte(domainsJSON), &p.Domains)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// GetPrincipleByContentHash is the exact-dedup lookup used by the promoter.
func (s *Store) GetPrincipleByContentHash(hash string) (*model.Principle, error) {
	return s.scanPrincipleRow(s.db.QueryRow(principleSelectCols()+" WHERE content_hash = ?", hash))
}

// GetPrinciple fetches a single principle by id.
func (s *Store) GetPrinciple(id int64) (*model.Principle, error) {
	return s.scanPrincipleRow(s.db.QueryRow(principleSelectCols()+" WHERE id = ?", id))
}

// ListPrinciplesByStatus returns every principle in the given statuses.
func (s *Store) ListPrinciplesByStatus(statuses ...model.PrincipleStatus) ([]*model.Principle, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(statuses)
	rows, err := s.db.Query(principleSelectCols()+" WHERE status IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("store: list principles: %w", err)
	}
	defer rows.Close()
	return scanPrincipleRows(rows)
}

// ListActivePrinciplesWithEmbeddings returns active principles carrying an
// embedding, used by the retriever's hybrid search.
func (s *Store) ListActivePrinciplesWithEmbeddings() ([]*model.Principle, error) {
	rows, err := s.db.Query(principleSelectCols() + ` WHERE status = 'active' AND embedding IS NOT NULL AND length(embedding) > 0`)
	if err != nil {
		return nil, fmt.Errorf("store: list active principles: %w", err)
	}
	defer rows.Close()
	return scanPrincipleRows(rows)
}

// NearestPrinciples returns up to k principles nearest to query among
// active/decaying principles with embeddings.
func (s *Store) NearestPrinciples(query []float32, k int) ([]neighborResult, error) {
	if s.vectorExt {
		results, err := s.annNeighbors("vec_index_principles", query, k)
		if err == nil {
			return results, nil
		}
	}
	all, err := s.ListPrinciplesByStatus(model.PrincipleActive, model.PrincipleDecaying)
	if err != nil {
		return nil, err
	}
	candidates := make(map[int64][]float32, len(all))
	for _, p := range all {
		if len(p.Embedding) > 0 {
			candidates[p.ID] = p.Embedding
		}
	}
	return bruteForceNeighbors(query, candidates, k), nil
}

// UpdatePrincipleScores persists the recomputed confidence, recency_score,
// source_quality, and rank for a principle. It deliberately leaves
// updated_at untouched: the lifecycle decay/prune age checks read
// updated_at as "time since this principle last changed in substance"
// (created, reinforced, or status-transitioned), and a score-only write
// from the lifecycle pass itself is not such a change.
func (s *Store) UpdatePrincipleScores(id int64, confidence, recency, sourceQuality, rank float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE principles SET confidence = ?, recency_score = ?, source_quality = ?, rank = ? WHERE id = ?`,
		confidence, recency, sourceQuality, rank, id)
	if err != nil {
		return fmt.Errorf("store: update principle scores: %w", err)
	}
	return nil
}

// UpdatePrincipleStatus transitions a principle's lifecycle status.
func (s *Store) UpdatePrincipleStatus(id int64, status model.PrincipleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE principles SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("store: update principle status: %w", err)
	}
	if status == model.PrinciplePruned {
		s.deleteVecRow("vec_index_principles", id)
	}
	return nil
}

// BumpPrincipleFrequency increments frequency by delta (positive when an
// insight derives into an existing principle again).
func (s *Store) BumpPrincipleFrequency(id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE principles SET frequency = frequency + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("store: bump principle frequency: %w", err)
	}
	return nil
}

// GetPrincipleUpdatedAt returns a principle's updated_at timestamp, used
// by the lifecycle package's decay and prune/decay age checks.
func (s *Store) GetPrincipleUpdatedAt(id int64) (time.Time, error) {
	var updatedAt time.Time
	err := s.db.QueryRow(`SELECT updated_at FROM principles WHERE id = ?`, id).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: get principle updated_at: %w", err)
	}
	return updatedAt, nil
}

// SetPrincipleUpdatedAt backdates a principle's updated_at directly,
// bypassing the CURRENT_TIMESTAMP writes the status and frequency mutators use. Lifecycle
// age checks are staleness checks against this column, so tests exercising
// prune/decay thresholds need a way to seed an old value.
func (s *Store) SetPrincipleUpdatedAt(id int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE principles SET updated_at = ? WHERE id = ?`, t, id)
	if err != nil {
		return fmt.Errorf("store: set principle updated_at: %w", err)
	}
	return nil
}

// CountPrincipleLinks returns the number of links (either direction)
// touching a principle, used by the rank formula's link_norm term.
func (s *Store) CountPrincipleLinks(id int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM principle_links WHERE source_id = ? OR target_id = ?`, id, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count principle links: %w", err)
	}
	return count, nil
}

func inClause(statuses []model.PrincipleStatus) (string, []interface{}) {
	placeholders := ""
	args := make([]interface{}, len(statuses))
	for i, st := range statuses {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = string(st)
	}
	return placeholders, args
}

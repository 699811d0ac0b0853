package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cerno/internal/model"
)

// CreateInsight inserts a new insight and its first source, returning the
// assigned id. Both rows are written in one transaction so an insight
// never exists without provenance.
func (s *Store) CreateInsight(insight *model.Insight, source *model.InsightSource) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	tagsJSON, err := json.Marshal(insight.Tags)
	if err != nil {
		return 0, fmt.Errorf("store: marshal tags: %w", err)
	}

	res, err := tx.Exec(`INSERT INTO insights
		(content, content_hash, embedding, category, tags, domain, confidence, observation_count, first_seen_at, last_seen_at, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		insight.Content, insight.ContentHash, encodeFloat32Slice(insight.Embedding), string(insight.Category),
		string(tagsJSON), insight.Domain, insight.Confidence, insight.ObservationCount,
		insight.FirstSeenAt, insight.LastSeenAt, string(insight.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("store: insert insight: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if source != nil {
		source.InsightID = id
		if err := insertInsightSource(tx, source); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.upsertVecRow("vec_index_insights", id, insight.Embedding)
	return id, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertInsightSource(x execer, src *model.InsightSource) error {
	_, err := x.Exec(`INSERT INTO insight_sources
		(insight_id, fragment_id, source_path, source_project, section_heading, line_start, line_end, file_hash)
		VALUES (?,?,?,?,?,?,?,?)`,
		src.InsightID, src.FragmentID, src.SourcePath, src.SourceProject, src.SectionHeading,
		src.LineStart, src.LineEnd, src.FileHash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: insert insight_source: %w", err)
	}
	return nil
}

// AddInsightSource attaches an additional source (e.g. a reinforcing
// observation) to an existing insight.
func (s *Store) AddInsightSource(src *model.InsightSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertInsightSource(s.db, src)
}

// GetInsightByContentHash looks up an insight by its exact content hash,
// the dedup path's first step.
func (s *Store) GetInsightByContentHash(hash string) (*model.Insight, error) {
	return s.scanInsightRow(s.db.QueryRow(insightSelectCols()+" WHERE content_hash = ?", hash))
}

// GetInsight fetches a single insight by id.
func (s *Store) GetInsight(id int64) (*model.Insight, error) {
	return s.scanInsightRow(s.db.QueryRow(insightSelectCols()+" WHERE id = ?", id))
}

func insightSelectCols() string {
	return `SELECT id, content, content_hash, embedding, category, tags, domain, confidence, observation_count, first_seen_at, last_seen_at, status FROM insights`
}

func (s *Store) scanInsightRow(row *sql.Row) (*model.Insight, error) {
	var ins model.Insight
	var emb []byte
	var tagsJSON string
	var category, status string
	if err := row.Scan(&ins.ID, &ins.Content, &ins.ContentHash, &emb, &category, &tagsJSON, &ins.Domain,
		&ins.Confidence, &ins.ObservationCount, &ins.FirstSeenAt, &ins.LastSeenAt, &status); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: scan insight: %w", err)
	}
	ins.Embedding = decodeFloat32Slice(emb)
	ins.Category = model.InsightCategory(category)
	ins.Status = model.InsightStatus(status)
	_ = json.Unmarshal([]byte(tagsJSON), &ins.Tags)
	return &ins, nil
}

// ListActiveInsightsWithEmbeddings returns active insights that have a
// non-empty embedding, ordered by observation_count descending, capped
// at limit. Used by the clusterer to build its similarity graph.
func (s *Store) ListActiveInsightsWithEmbeddings(limit int) ([]*model.Insight, error) {
	rows, err := s.db.Query(insightSelectCols()+
		` WHERE status = 'active' AND embedding IS NOT NULL AND length(embedding) > 0
		  ORDER BY observation_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list active insights: %w", err)
	}
	defer rows.Close()
	return scanInsightRows(rows)
}

// ListActiveInsights returns active insights regardless of embedding
// presence, capped at limit. Used by confidence adjustment, which must
// revisit every active insight even ones that failed to embed.
func (s *Store) ListActiveInsights(limit int) ([]*model.Insight, error) {
	rows, err := s.db.Query(insightSelectCols()+` WHERE status = 'active' ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list active insights: %w", err)
	}
	defer rows.Close()
	return scanInsightRows(rows)
}

// ListPromotionCandidates returns active insights meeting the promotion
// gate (confidence, observation count, age) in SQL, capped at limit. The
// caller still must exclude insights with an unresolved contradiction or
// an existing Derivation, which need per-row lookups.
func (s *Store) ListPromotionCandidates(minConfidence float64, minObservations int, olderThan time.Time, limit int) ([]*model.Insight, error) {
	rows, err := s.db.Query(insightSelectCols()+
		` WHERE status = 'active' AND confidence >= ? AND observation_count >= ? AND first_seen_at <= ?
		  ORDER BY confidence DESC LIMIT ?`,
		minConfidence, minObservations, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list promotion candidates: %w", err)
	}
	defer rows.Close()
	return scanInsightRows(rows)
}

func scanInsightRows(rows *sql.Rows) ([]*model.Insight, error) {
	var out []*model.Insight
	for rows.Next() {
		var ins model.Insight
		var emb []byte
		var tagsJSON string
		var category, status string
		if err := rows.Scan(&ins.ID, &ins.Content, &ins.ContentHash, &emb, &category, &tagsJSON, &ins.Domain,
			&ins.Confidence, &ins.ObservationCount, &ins.FirstSeenAt, &ins.LastSeenAt, &status); err != nil {
			return nil, fmt.Errorf("store: scan insight row: %w", err)
		}
		ins.Embedding = decodeFloat32Slice(emb)
		ins.Category = model.InsightCategory(category)
		ins.Status = model.InsightStatus(status)
		_ = json.Unmarshal([]byte(tagsJSON), &ins.Tags)
		out = append(out, &ins)
	}
	return out, rows.Err()
}

// NearestInsights returns up to k insights nearest to query among active
// insights with embeddings, using the vector index when available.
func (s *Store) NearestInsights(query []float32, k int) ([]neighborResult, error) {
	if s.vectorExt {
		results, err := s.annNeighbors("vec_index_insights", query, k)
		if err == nil {
			return results, nil
		}
		// fall through to brute force on any index error
	}
	all, err := s.ListActiveInsightsWithEmbeddings(5000)
	if err != nil {
		return nil, err
	}
	candidates := make(map[int64][]float32, len(all))
	for _, ins := range all {
		candidates[ins.ID] = ins.Embedding
	}
	return bruteForceNeighbors(query, candidates, k), nil
}

// ReinforceInsight bumps observation_count and last_seen_at for an
// existing insight (the exact-duplicate path).
func (s *Store) ReinforceInsight(id int64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE insights SET observation_count = observation_count + 1, last_seen_at = ? WHERE id = ?`, seenAt, id)
	if err != nil {
		return fmt.Errorf("store: reinforce insight: %w", err)
	}
	return nil
}

// BumpInsightObservationCount adds delta to an insight's observation_count
// directly, without touching last_seen_at. Used when merging a duplicate
// insight's observation history into a surviving winner.
func (s *Store) BumpInsightObservationCount(id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE insights SET observation_count = observation_count + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("store: bump observation count: %w", err)
	}
	return nil
}

// TouchInsightLastSeen advances last_seen_at without affecting
// observation_count.
func (s *Store) TouchInsightLastSeen(id int64, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE insights SET last_seen_at = ? WHERE id = ?`, seenAt, id)
	if err != nil {
		return fmt.Errorf("store: touch insight last_seen_at: %w", err)
	}
	return nil
}

// UpdateInsightStatus transitions an insight's lifecycle status.
func (s *Store) UpdateInsightStatus(id int64, status model.InsightStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE insights SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("store: update insight status: %w", err)
	}
	if status != model.InsightActive {
		s.deleteVecRow("vec_index_insights", id)
	}
	return nil
}

// UpdateInsightConfidence persists a recomputed confidence score.
func (s *Store) UpdateInsightConfidence(id int64, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE insights SET confidence = ? WHERE id = ?`, confidence, id)
	if err != nil {
		return fmt.Errorf("store: update insight confidence: %w", err)
	}
	return nil
}

// CountDistinctSourceProjects returns the number of distinct
// source_project values among an insight's sources, used by the
// multi-project confidence boost.
func (s *Store) CountDistinctSourceProjects(insightID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT source_project) FROM insight_sources WHERE insight_id = ?`, insightID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count source projects: %w", err)
	}
	return count, nil
}

// InsightHasUnresolvedContradiction reports whether any unresolved
// contradiction references the given insight.
func (s *Store) InsightHasUnresolvedContradiction(insightID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM contradictions
		WHERE (insight_a_id = ? OR insight_b_id = ?) AND resolution_status = 'unresolved'`,
		insightID, insightID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: check contradiction: %w", err)
	}
	return count > 0, nil
}

// FindInsightByFragmentID looks up whether a fragment has already been
// ingested, keyed by the fragment's deterministic id.
func (s *Store) FindInsightByFragmentID(fragmentID string) (int64, error) {
	var insightID int64
	err := s.db.QueryRow(`SELECT insight_id FROM insight_sources WHERE fragment_id = ?`, fragmentID).Scan(&insightID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("store: find insight by fragment: %w", err)
	}
	return insightID, nil
}

package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"cerno/internal/embedding"
	"cerno/internal/logging"
)

// ensureVecIndexes creates the sqlite-vec virtual tables backing nearest-
// neighbor search over insight and principle embeddings. The table rowid
// is the entity's own primary key, so a nearest-neighbor query can join
// straight back to the owning row without an auxiliary id column.
func (s *Store) ensureVecIndexes(dim int) error {
	if dim <= 0 {
		return nil
	}
	stmts := []string{
		fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index_insights USING vec0(embedding float[%d])", dim),
		fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index_principles USING vec0(embedding float[%d])", dim),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			logging.StoreWarn("failed to create vector index: %v", err)
			return nil // fall back to brute force silently, matching the teacher's non-fatal probe
		}
	}
	logging.Store("vector indexes initialized (dimensions=%d)", dim)
	return nil
}

func encodeFloat32Slice(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

func decodeFloat32Slice(b []byte) []float32 {
	n := len(b) / 4
	vec := make([]float32, n)
	_ = binary.Read(bytes.NewReader(b), binary.LittleEndian, &vec)
	return vec
}

// upsertVecRow inserts or replaces a row's embedding in the given vec0
// table, keyed by rowid.
func (s *Store) upsertVecRow(table string, rowid int64, vec []float32) {
	if !s.vectorExt || len(vec) == 0 {
		return
	}
	_, err := s.db.Exec(fmt.Sprintf("INSERT OR REPLACE INTO %s(rowid, embedding) VALUES (?, ?)", table), rowid, encodeFloat32Slice(vec))
	if err != nil {
		logging.StoreWarn("vec index upsert into %s failed: %v", table, err)
	}
}

func (s *Store) deleteVecRow(table string, rowid int64) {
	if !s.vectorExt {
		return
	}
	_, _ = s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE rowid = ?", table), rowid)
}

// neighborResult is one nearest-neighbor hit, regardless of backend.
type neighborResult struct {
	ID         int64
	Similarity float64
}

// annNeighbors returns the k nearest rowids in table to query by cosine
// similarity, using sqlite-vec when available.
func (s *Store) annNeighbors(table string, query []float32, k int) ([]neighborResult, error) {
	rows, err := s.db.Query(
		fmt.Sprintf("SELECT rowid, vec_distance_cosine(embedding, ?) AS dist FROM %s ORDER BY dist ASC LIMIT ?", table),
		encodeFloat32Slice(query), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []neighborResult
	for rows.Next() {
		var id int64
		var dist float64
		if err := rows.Scan(&id, &dist); err != nil {
			return nil, err
		}
		out = append(out, neighborResult{ID: id, Similarity: 1 - dist})
	}
	return out, rows.Err()
}

// bruteForceNeighbors scans candidates in memory and returns the top k by
// cosine similarity to query. Used when the vec extension is unavailable.
func bruteForceNeighbors(query []float32, candidates map[int64][]float32, k int) []neighborResult {
	results := make([]neighborResult, 0, len(candidates))
	for id, emb := range candidates {
		if len(emb) == 0 {
			continue
		}
		sim, err := embedding.CosineSimilarity(query, emb)
		if err != nil {
			continue
		}
		results = append(results, neighborResult{ID: id, Similarity: sim})
	}
	// simple insertion sort descending by similarity; candidate sets here
	// are bounded by the caller's load caps, not worth a generic sort import
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j-1].Similarity < results[j].Similarity {
			results[j-1], results[j] = results[j], results[j-1]
			j--
		}
	}
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

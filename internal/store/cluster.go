package store

import (
	"fmt"

	"cerno/internal/model"
)

// ReplaceClusters atomically replaces every cluster with the given set,
// matching the clusterer's full-rebuild-per-reconciliation design: old
// clusters and their membership rows are deleted, then the new ones are
// inserted, all inside one transaction.
func (s *Store) ReplaceClusters(clusters []*model.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cluster_insights`); err != nil {
		return fmt.Errorf("store: clear cluster_insights: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM clusters`); err != nil {
		return fmt.Errorf("store: clear clusters: %w", err)
	}

	for _, c := range clusters {
		res, err := tx.Exec(`INSERT INTO clusters (name, centroid, coherence_score, insight_count) VALUES (?,?,?,?)`,
			c.Name, encodeFloat32Slice(c.Centroid), c.CoherenceScore, c.InsightCount)
		if err != nil {
			return fmt.Errorf("store: insert cluster: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = id
		for _, insightID := range c.InsightIDs {
			if _, err := tx.Exec(`INSERT INTO cluster_insights (cluster_id, insight_id) VALUES (?,?)`, id, insightID); err != nil {
				return fmt.Errorf("store: insert cluster membership: %w", err)
			}
		}
	}

	return tx.Commit()
}

// ListClusters returns every current cluster with its member ids.
func (s *Store) ListClusters() ([]*model.Cluster, error) {
	rows, err := s.db.Query(`SELECT id, name, centroid, coherence_score, insight_count FROM clusters`)
	if err != nil {
		return nil, fmt.Errorf("store: list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*model.Cluster
	for rows.Next() {
		var c model.Cluster
		var centroid []byte
		if err := rows.Scan(&c.ID, &c.Name, &centroid, &c.CoherenceScore, &c.InsightCount); err != nil {
			return nil, fmt.Errorf("store: scan cluster: %w", err)
		}
		c.Centroid = decodeFloat32Slice(centroid)
		clusters = append(clusters, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range clusters {
		ids, err := s.clusterMemberIDs(c.ID)
		if err != nil {
			return nil, err
		}
		c.InsightIDs = ids
	}
	return clusters, nil
}

func (s *Store) clusterMemberIDs(clusterID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT insight_id FROM cluster_insights WHERE cluster_id = ?`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("store: cluster members: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

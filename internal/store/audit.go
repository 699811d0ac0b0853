package store

import (
	"database/sql"
	"fmt"
	"time"

	"cerno/internal/model"
)

// CreateAccumulationRun records the start of a file-scan run.
func (s *Store) CreateAccumulationRun(sourcePath string, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`INSERT INTO accumulation_runs (source_path, status, started_at) VALUES (?,?,?)`,
		sourcePath, string(model.RunRunning), startedAt)
	if err != nil {
		return 0, fmt.Errorf("store: create accumulation run: %w", err)
	}
	return res.LastInsertId()
}

// CompleteAccumulationRun finalizes a run with its outcome counts.
func (s *Store) CompleteAccumulationRun(id int64, status model.RunStatus, finishedAt time.Time, fragmentsSeen, created, reinforced, contradictions int, runErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE accumulation_runs SET status=?, finished_at=?, fragments_seen=?, insights_created=?, insights_reinforced=?, contradictions_found=?, error=? WHERE id=?`,
		string(status), finishedAt, fragmentsSeen, created, reinforced, contradictions, runErr, id)
	if err != nil {
		return fmt.Errorf("store: complete accumulation run: %w", err)
	}
	return nil
}

// CreateResolutionRun records the start of a resolve invocation.
func (s *Store) CreateResolutionRun(targetPath, agent string, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`INSERT INTO resolution_runs (target_path, agent, status, started_at) VALUES (?,?,?,?)`,
		targetPath, agent, string(model.RunRunning), startedAt)
	if err != nil {
		return 0, fmt.Errorf("store: create resolution run: %w", err)
	}
	return res.LastInsertId()
}

// CompleteResolutionRun finalizes a resolve run.
func (s *Store) CompleteResolutionRun(id int64, status model.RunStatus, finishedAt time.Time, retrieved, injected int, runErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE resolution_runs SET status=?, finished_at=?, principles_retrieved=?, principles_injected=?, error=? WHERE id=?`,
		string(status), finishedAt, retrieved, injected, runErr, id)
	if err != nil {
		return fmt.Errorf("store: complete resolution run: %w", err)
	}
	return nil
}

// ListAccumulationRuns returns the most recent accumulation runs, newest first.
func (s *Store) ListAccumulationRuns(limit int) ([]*model.AccumulationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, source_path, status, started_at, finished_at,
		fragments_seen, insights_created, insights_reinforced, contradictions_found, error
		FROM accumulation_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list accumulation runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.AccumulationRun
	for rows.Next() {
		var r model.AccumulationRun
		var status string
		var finishedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.SourcePath, &status, &r.StartedAt, &finishedAt,
			&r.FragmentsSeen, &r.InsightsCreated, &r.InsightsReinforced, &r.ContradictionsFound, &r.Error); err != nil {
			return nil, fmt.Errorf("store: scan accumulation run: %w", err)
		}
		r.Status = model.RunStatus(status)
		if finishedAt.Valid {
			r.FinishedAt = finishedAt.Time
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// ListResolutionRuns returns the most recent resolution runs, newest first.
func (s *Store) ListResolutionRuns(limit int) ([]*model.ResolutionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, target_path, agent, status, started_at, finished_at,
		principles_retrieved, principles_injected, error
		FROM resolution_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list resolution runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.ResolutionRun
	for rows.Next() {
		var r model.ResolutionRun
		var status string
		var finishedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.TargetPath, &r.Agent, &status, &r.StartedAt, &finishedAt,
			&r.PrinciplesRetrieved, &r.PrinciplesInjected, &r.Error); err != nil {
			return nil, fmt.Errorf("store: scan resolution run: %w", err)
		}
		r.Status = model.RunStatus(status)
		if finishedAt.Valid {
			r.FinishedAt = finishedAt.Time
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// UpsertWatchedProject records or refreshes a project root being scanned.
func (s *Store) UpsertWatchedProject(wp *model.WatchedProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO watched_projects (name, path, last_scanned_at, file_hash, active)
		VALUES (?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET last_scanned_at=excluded.last_scanned_at, file_hash=excluded.file_hash, active=excluded.active`,
		wp.Name, wp.Path, wp.LastScannedAt, wp.FileHash, boolToInt(wp.Active))
	if err != nil {
		return fmt.Errorf("store: upsert watched project: %w", err)
	}
	return nil
}

// GetWatchedProject looks up a watched project by path.
func (s *Store) GetWatchedProject(path string) (*model.WatchedProject, error) {
	var wp model.WatchedProject
	var active int
	err := s.db.QueryRow(`SELECT id, name, path, last_scanned_at, file_hash, active FROM watched_projects WHERE path = ?`, path).
		Scan(&wp.ID, &wp.Name, &wp.Path, &wp.LastScannedAt, &wp.FileHash, &active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get watched project: %w", err)
	}
	wp.Active = active != 0
	return &wp, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

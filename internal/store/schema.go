package store

// createTableStatements are executed in order at startup; each is
// idempotent via IF NOT EXISTS, mirroring the teacher's initialize().
var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS insights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		embedding BLOB,
		category TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		domain TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0.5,
		observation_count INTEGER NOT NULL DEFAULT 1,
		first_seen_at DATETIME NOT NULL,
		last_seen_at DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_status ON insights(status)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_content_hash ON insights(content_hash)`,

	`CREATE TABLE IF NOT EXISTS insight_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		insight_id INTEGER NOT NULL REFERENCES insights(id),
		fragment_id TEXT NOT NULL UNIQUE,
		source_path TEXT NOT NULL,
		source_project TEXT NOT NULL,
		section_heading TEXT NOT NULL DEFAULT '',
		line_start INTEGER NOT NULL DEFAULT 0,
		line_end INTEGER NOT NULL DEFAULT 0,
		file_hash TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_insight_sources_insight_id ON insight_sources(insight_id)`,

	`CREATE TABLE IF NOT EXISTS contradictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		insight_a_id INTEGER NOT NULL,
		insight_b_id INTEGER NOT NULL,
		contradiction_type TEXT NOT NULL,
		resolution_status TEXT NOT NULL DEFAULT 'unresolved',
		detected_by TEXT NOT NULL DEFAULT '',
		similarity_score REAL NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		UNIQUE(insight_a_id, insight_b_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contradictions_a ON contradictions(insight_a_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contradictions_b ON contradictions(insight_b_id)`,

	`CREATE TABLE IF NOT EXISTS clusters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		centroid BLOB,
		coherence_score REAL NOT NULL DEFAULT 0,
		insight_count INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS cluster_insights (
		cluster_id INTEGER NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
		insight_id INTEGER NOT NULL REFERENCES insights(id),
		PRIMARY KEY (cluster_id, insight_id)
	)`,

	`CREATE TABLE IF NOT EXISTS principles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		elaboration TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL UNIQUE,
		embedding BLOB,
		category TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		domains TEXT NOT NULL DEFAULT '[]',
		confidence REAL NOT NULL DEFAULT 0,
		frequency INTEGER NOT NULL DEFAULT 0,
		recency_score REAL NOT NULL DEFAULT 1,
		source_quality REAL NOT NULL DEFAULT 0.5,
		rank REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_principles_status ON principles(status)`,
	`CREATE INDEX IF NOT EXISTS idx_principles_content_hash ON principles(content_hash)`,

	`CREATE TABLE IF NOT EXISTS derivations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		principle_id INTEGER NOT NULL REFERENCES principles(id),
		insight_id INTEGER NOT NULL REFERENCES insights(id),
		contribution_weight REAL NOT NULL DEFAULT 1.0,
		UNIQUE(principle_id, insight_id)
	)`,

	`CREATE TABLE IF NOT EXISTS principle_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER NOT NULL REFERENCES principles(id),
		target_id INTEGER NOT NULL REFERENCES principles(id),
		link_type TEXT NOT NULL,
		strength REAL NOT NULL DEFAULT 0,
		UNIQUE(source_id, target_id, link_type)
	)`,

	`CREATE TABLE IF NOT EXISTS accumulation_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_path TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		fragments_seen INTEGER NOT NULL DEFAULT 0,
		insights_created INTEGER NOT NULL DEFAULT 0,
		insights_reinforced INTEGER NOT NULL DEFAULT 0,
		contradictions_found INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS resolution_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_path TEXT NOT NULL,
		agent TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'running',
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		principles_retrieved INTEGER NOT NULL DEFAULT 0,
		principles_injected INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS watched_projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		path TEXT NOT NULL UNIQUE,
		last_scanned_at DATETIME,
		file_hash TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	)`,
}

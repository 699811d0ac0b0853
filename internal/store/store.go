// Package store is Cerno's persistence layer: a single SQLite database
// holding insights, principles, contradictions, clusters, derivations,
// links, and audit runs, with similarity search backed by sqlite-vec
// when the extension is available and a brute-force fallback otherwise.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"cerno/internal/embedding"
	"cerno/internal/logging"
)

// Store wraps a *sql.DB with the schema, migrations, and vector-index
// bookkeeping Cerno's processors depend on.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex

	engine    embedding.EmbeddingEngine
	vectorExt bool
}

// NewStore opens (creating if necessary) the SQLite database at path,
// applies PRAGMAs for a single-writer WAL workload, runs the schema and
// migrations, and probes for the sqlite-vec extension.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// A single shared connection avoids SQLITE_BUSY storms under WAL;
	// the teacher's LocalStore uses the same one-writer pattern.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	s.detectVecExtension()

	logging.Store("opened store at %s (vector_ext=%v)", path, s.vectorExt)
	return s, nil
}

func (s *Store) initialize() error {
	for _, stmt := range createTableStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: schema: %w", err)
		}
	}
	return RunMigrations(s.db)
}

// detectVecExtension probes whether the vec_distance_cosine function
// registered by sqlite-vec (via the sqlite_vec build tag) is available.
// When absent, similarity search falls back to a brute-force scan.
func (s *Store) detectVecExtension() {
	var dummy float64
	err := s.db.QueryRow("SELECT vec_distance_cosine(X'00000000', X'00000000')").Scan(&dummy)
	// A malformed-argument error still proves the function exists; only
	// "no such function" proves the extension was never registered.
	s.vectorExt = !isNoSuchFunction(err)
}

func isNoSuchFunction(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsFold(msg, "no such function")
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	ls, lsub := toLower(s), toLower(substr)
	n := len(ls) - len(lsub)
	for i := 0; i <= n; i++ {
		if ls[i:i+len(lsub)] == lsub {
			return i
		}
	}
	return -1
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// SetEmbeddingEngine records the active embedding engine's dimension so
// vector-index virtual tables can be created lazily with the right width.
func (s *Store) SetEmbeddingEngine(e embedding.EmbeddingEngine) error {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
	if !s.vectorExt {
		return nil
	}
	return s.ensureVecIndexes(e.Dimensions())
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats summarizes row counts across the entity tables, surfaced by the
// `cerno status` command.
type Stats struct {
	Insights      int
	Principles    int
	Contradictions int
	Clusters      int
	WatchedFiles  int
	VectorIndex   bool
}

// GetStats returns row counts across the store's entity tables.
func (s *Store) GetStats() (Stats, error) {
	var st Stats
	st.VectorIndex = s.vectorExt
	counts := []struct {
		table string
		dest  *int
	}{
		{"insights", &st.Insights},
		{"principles", &st.Principles},
		{"contradictions", &st.Contradictions},
		{"clusters", &st.Clusters},
		{"watched_projects", &st.WatchedFiles},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)).Scan(c.dest); err != nil {
			return st, fmt.Errorf("store: stats %s: %w", c.table, err)
		}
	}
	return st, nil
}

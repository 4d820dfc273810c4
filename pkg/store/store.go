package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// Store is the SQLite-backed persistence layer for chunks, interactions,
// feedback, analysis runs, knowledge gaps and golden answers.
// Writes are single-row and last-writer-wins; no transaction spans an
// analysis run.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path and creates the schema if needed
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			doc_title TEXT NOT NULL DEFAULT '',
			source_locator TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			module TEXT NOT NULL DEFAULT '',
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_module ON chunks(module)`,

		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			module TEXT NOT NULL DEFAULT '',
			embedding BLOB,
			top_similarity REAL NOT NULL DEFAULT 0,
			not_found INTEGER NOT NULL DEFAULT 0,
			rating INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,

		`CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			urgency TEXT NOT NULL DEFAULT 'normal',
			message TEXT NOT NULL,
			dismissed INTEGER NOT NULL DEFAULT 0,
			embedding BLOB,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at)`,

		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			period_start INTEGER NOT NULL,
			period_end INTEGER NOT NULL,
			status TEXT NOT NULL,
			total_signals INTEGER NOT NULL DEFAULT 0,
			gaps_found INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			finished_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS knowledge_gaps (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			sample_signals TEXT NOT NULL,
			signal_count INTEGER NOT NULL,
			suggested_module TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			status TEXT NOT NULL,
			sop_draft TEXT,
			sop_draft_generated_at INTEGER,
			resolved_at INTEGER,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gaps_status ON knowledge_gaps(status)`,

		`CREATE TABLE IF NOT EXISTS golden_answers (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			module TEXT NOT NULL DEFAULT '',
			embedding BLOB NOT NULL,
			interaction_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}

	// databases created before chunks were grouped by document
	if err := s.addColumnIfMissing("chunks", "path", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path)`); err != nil {
		return fmt.Errorf("creating chunk path index: %w", err)
	}
	return nil
}

func (s *Store) addColumnIfMissing(table, column, decl string) error {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column); err != nil {
		return fmt.Errorf("inspecting %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("adding %s.%s: %w", table, column, err)
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// encodeVector stores a vector as little-endian float32s
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector: %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// Times are stored as UTC unix nanoseconds so range queries compare integers
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

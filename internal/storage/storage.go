package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"phylotree/internal/models"
	"phylotree/internal/tree"
)

// Storage persists the index tree and build history
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage creates a new Storage
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Current schema version
const schemaVersion = 2

// migrations defines all schema migrations
// Each migration should be idempotent (safe to run multiple times)
var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
	{
		version:     2,
		description: "Add label and length columns to genomes",
		up: `
			ALTER TABLE genomes ADD COLUMN label TEXT DEFAULT '';
			ALTER TABLE genomes ADD COLUMN length INTEGER DEFAULT 0;
			CREATE INDEX IF NOT EXISTS idx_genomes_label ON genomes(label);
		`,
	},
}

// Timestamps are stored with a fixed width so they sort as text
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Meta keys
const (
	MetaNextID    = "next_id"
	MetaKmerSize  = "kmer_size"
	MetaKmerCount = "kmer_count"
)

// init creates the database schema
func (s *Storage) init() error {
	// Create schema_version table first
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Create base schema
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY,
		kind INTEGER NOT NULL,
		children TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS genomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node_id INTEGER NOT NULL,
		slot INTEGER NOT NULL,
		source TEXT NOT NULL,
		kmers TEXT NOT NULL,
		best_distance INTEGER,
		UNIQUE(node_id, slot)
	);

	CREATE INDEX IF NOT EXISTS idx_genomes_source ON genomes(source);

	CREATE TABLE IF NOT EXISTS build_runs (
		id TEXT PRIMARY KEY,
		folder TEXT NOT NULL,
		started_at TEXT NOT NULL,
		inserted INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		pairs INTEGER NOT NULL,
		siblings INTEGER NOT NULL,
		buckets INTEGER NOT NULL,
		total INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err = s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrate runs pending schema migrations
func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion || m.up == "" {
			continue
		}

		// Check if migration is needed (column might already exist)
		if m.version == 2 {
			if s.columnExists("genomes", "label") {
				s.setSchemaVersion(m.version)
				continue
			}
		}

		// Execute migration
		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}

		s.setSchemaVersion(m.version)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

// setSchemaVersion records a migration as applied
func (s *Storage) setSchemaVersion(version int) {
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
}

// columnExists checks if a column exists in a table
func (s *Storage) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.dbPath
}

// SaveSnapshot replaces the stored tree with the current state of ix
func (s *Storage) SaveSnapshot(ix *tree.Index) error {
	snap := ix.Snapshot()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM genomes"); err != nil {
		return fmt.Errorf("failed to clear genomes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	nodeStmt, err := tx.Prepare("INSERT INTO nodes (id, kind, children) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer nodeStmt.Close()

	genomeStmt, err := tx.Prepare(`
		INSERT INTO genomes (node_id, slot, source, label, length, kmers, best_distance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer genomeStmt.Close()

	for _, n := range snap.Nodes {
		children, err := json.Marshal(nonNil(n.Children))
		if err != nil {
			return fmt.Errorf("failed to encode children of node %d: %w", n.ID, err)
		}
		if _, err := nodeStmt.Exec(n.ID, int(n.Kind), string(children)); err != nil {
			return fmt.Errorf("failed to insert node %d: %w", n.ID, err)
		}

		for slot, g := range n.Items {
			kmers, err := json.Marshal(nonNil(g.Kmers))
			if err != nil {
				return fmt.Errorf("failed to encode kmers of %s: %w", g.Source, err)
			}
			var best sql.NullInt64
			if g.HasDistance() {
				best = sql.NullInt64{Int64: int64(g.BestDistance), Valid: true}
			}
			if _, err := genomeStmt.Exec(n.ID, slot, g.Source, g.Label, g.Length, string(kmers), best); err != nil {
				return fmt.Errorf("failed to insert genome %s: %w", g.Source, err)
			}
		}
	}

	if err := setMeta(tx, MetaNextID, strconv.FormatUint(uint64(snap.NextID), 10)); err != nil {
		return err
	}

	return tx.Commit()
}

// LoadSnapshot rebuilds the stored tree. An empty database yields an empty
// index.
func (s *Storage) LoadSnapshot(seqs tree.Sequences, cfg *tree.Config, opts ...tree.Option) (*tree.Index, error) {
	nextID, ok, err := s.GetMeta(MetaNextID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return tree.New(seqs, cfg, opts...), nil
	}
	next, err := strconv.ParseUint(nextID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to parse next id %q: %w", nextID, err)
	}

	snap := &tree.Snapshot{NextID: tree.NodeID(next)}
	byID := make(map[tree.NodeID]int)

	rows, err := s.db.Query("SELECT id, kind, children FROM nodes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			kind     int
			children string
		)
		if err := rows.Scan(&id, &kind, &children); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sn := tree.SnapshotNode{ID: tree.NodeID(id), Kind: tree.Kind(kind)}
		if err := json.Unmarshal([]byte(children), &sn.Children); err != nil {
			return nil, fmt.Errorf("failed to decode children of node %d: %w", id, err)
		}
		byID[sn.ID] = len(snap.Nodes)
		snap.Nodes = append(snap.Nodes, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}

	if err := s.loadGenomes(snap, byID); err != nil {
		return nil, err
	}

	ix, err := tree.Restore(seqs, cfg, snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore tree: %w", err)
	}
	return ix, nil
}

func (s *Storage) loadGenomes(snap *tree.Snapshot, byID map[tree.NodeID]int) error {
	rows, err := s.db.Query(`
		SELECT node_id, slot, source, label, length, kmers, best_distance
		FROM genomes
		ORDER BY node_id, slot
	`)
	if err != nil {
		return fmt.Errorf("failed to query genomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			nodeID int64
			slot   int
			kmers  string
			label  sql.NullString
			length sql.NullInt64
			best   sql.NullInt64
			g      = models.NewGenome("", nil)
		)
		if err := rows.Scan(&nodeID, &slot, &g.Source, &label, &length, &kmers, &best); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(kmers), &g.Kmers); err != nil {
			return fmt.Errorf("failed to decode kmers of %s: %w", g.Source, err)
		}
		g.Label = label.String
		g.Length = int(length.Int64)
		if best.Valid {
			g.BestDistance = int(best.Int64)
		}

		i, ok := byID[tree.NodeID(nodeID)]
		if !ok {
			return fmt.Errorf("%w: genome %s stored in missing node %d", tree.ErrCorruptPath, g.Source, nodeID)
		}
		if slot != len(snap.Nodes[i].Items) {
			return fmt.Errorf("%w: genome %s stored in slot %d of node %d", tree.ErrCorruptPath, g.Source, slot, nodeID)
		}
		snap.Nodes[i].Items = append(snap.Nodes[i].Items, g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read genomes: %w", err)
	}
	return nil
}

// GenomeCount returns the number of stored genomes
func (s *Storage) GenomeCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM genomes").Scan(&count)
	return count, err
}

// HasSource reports whether a genome read from source is stored
func (s *Storage) HasSource(source string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM genomes WHERE source = ?", source).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetMeta returns the value stored under key
func (s *Storage) GetMeta(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, true, nil
}

// SetMeta stores value under key
func (s *Storage) SetMeta(key, value string) error {
	return setMeta(s.db, key, value)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setMeta(db execer, key, value string) error {
	_, err := db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// RecordRun records a build run in history, assigning it an id if it has none
func (s *Storage) RecordRun(run *models.BuildRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO build_runs (id, folder, started_at, inserted, failed, pairs, siblings, buckets, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Folder, run.StartedAt.UTC().Format(timeFormat),
		run.Inserted, run.Failed, run.Pairs, run.Siblings, run.Buckets, run.Total)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// GetRuns returns the most recent build runs, newest first. A limit of zero
// or less returns all of them.
func (s *Storage) GetRuns(limit int) ([]*models.BuildRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, folder, started_at, inserted, failed, pairs, siblings, buckets, total
		FROM build_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BuildRun
	for rows.Next() {
		run := &models.BuildRun{}
		var startedAt string
		err := rows.Scan(
			&run.ID,
			&run.Folder,
			&startedAt,
			&run.Inserted,
			&run.Failed,
			&run.Pairs,
			&run.Siblings,
			&run.Buckets,
			&run.Total,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.StartedAt, err = time.Parse(timeFormat, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start time of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	return runs, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

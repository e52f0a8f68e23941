package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded per snapshot
const (
	ActionDelete   = "DELETE"
	ActionDryRun   = "DRY_RUN"
	ActionExcluded = "EXCLUDED"
	ActionSkip     = "SKIP"
	ActionError    = "ERROR"
)

// HistoryDB manages the SQLite database for run and deletion history
type HistoryDB struct {
	db  *sql.DB
	now func() time.Time
}

// RunInfo describes a run when it starts
type RunInfo struct {
	Pool      string
	Cutoff    time.Time
	Label     string
	BatchSize int
	DryRun    bool
}

// RunSummary is written when a run reaches a terminal state
type RunSummary struct {
	State            string
	Queued           int
	Excluded         int
	Malformed        int
	BatchesTotal     int
	BatchesCompleted int
	ErrorMessage     string
}

// RunRecord is a stored run
type RunRecord struct {
	ID         string
	Pool       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Cutoff     time.Time
	Label      string
	BatchSize  int
	DryRun     bool
	RunSummary
}

// Event is one snapshot outcome within a run
type Event struct {
	Action       string
	Name         string
	Dataset      string
	Label        string
	SnapshotTime *time.Time // nil for names that did not parse
	Batch        int        // 1-based, 0 when not part of a batch
	Reason       string
	ErrorMessage string
}

// EventRecord is a stored event
type EventRecord struct {
	ID        int64
	RunID     string
	Timestamp time.Time
	Event
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A query instead of Ping() makes sure the file gets created
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db, now: time.Now}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}
	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		pool TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		cutoff DATETIME NOT NULL,
		label TEXT,
		batch_size INTEGER NOT NULL,
		dry_run INTEGER NOT NULL,

		state TEXT NOT NULL DEFAULT 'running',
		queued INTEGER NOT NULL DEFAULT 0,
		excluded INTEGER NOT NULL DEFAULT 0,
		malformed INTEGER NOT NULL DEFAULT 0,
		batches_total INTEGER NOT NULL DEFAULT 0,
		batches_completed INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS snapshot_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		name TEXT NOT NULL,
		dataset TEXT,
		label TEXT,
		snapshot_time DATETIME,
		batch INTEGER NOT NULL DEFAULT 0,
		reason TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_events_run ON snapshot_events(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_action ON snapshot_events(action);
	CREATE INDEX IF NOT EXISTS idx_events_name ON snapshot_events(name);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// BeginRun stores a new run and returns its id
func (d *HistoryDB) BeginRun(info RunInfo) (string, error) {
	id := uuid.NewString()
	_, err := d.db.Exec(`
	INSERT INTO runs (id, pool, started_at, cutoff, label, batch_size, dry_run)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, info.Pool, d.now(), info.Cutoff, info.Label, info.BatchSize, info.DryRun)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordEvent inserts a snapshot outcome for a run
func (d *HistoryDB) RecordEvent(runID string, ev Event) error {
	_, err := d.db.Exec(`
	INSERT INTO snapshot_events (
		run_id, timestamp, action, name, dataset, label,
		snapshot_time, batch, reason, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		d.now(),
		ev.Action,
		ev.Name,
		ev.Dataset,
		ev.Label,
		ev.SnapshotTime,
		ev.Batch,
		ev.Reason,
		ev.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FinishRun stores the terminal state of a run
func (d *HistoryDB) FinishRun(runID string, s RunSummary) error {
	res, err := d.db.Exec(`
	UPDATE runs SET
		finished_at = ?, state = ?, queued = ?, excluded = ?, malformed = ?,
		batches_total = ?, batches_completed = ?, error_message = ?
	WHERE id = ?
	`, d.now(), s.State, s.Queued, s.Excluded, s.Malformed,
		s.BatchesTotal, s.BatchesCompleted, s.ErrorMessage, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: %w: %s", sql.ErrNoRows, runID)
	}
	return nil
}

// Close closes the database connection
func (d *HistoryDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *HistoryDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/w3c/speccheck/internal/model"
)

// HistoryDB provides SQLite-based storage for crawl and study runs.
// It manages connection pooling and provides methods for saving runs and
// querying history.
//
// Design decision: We use a single database file for all runs rather than
// one file per run. This simplifies cross-run queries (a spec's anomaly
// trend) and backup/restore operations.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "speccheck.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple connections buy nothing here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Runs store one crawl or study execution with the full file as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		crawled INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		studied INTEGER NOT NULL DEFAULT 0,
		file_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Per-spec summary rows of study runs, for trend queries
	CREATE TABLE IF NOT EXISTS spec_findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		shortname TEXT NOT NULL,
		url TEXT NOT NULL,
		anomaly_count INTEGER NOT NULL DEFAULT 0,
		ok INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON spec_findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_shortname ON spec_findings(shortname);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawl stores a crawl run and returns its database id.
func (hdb *HistoryDB) SaveCrawl(ctx context.Context, file *model.CrawlFile) (int64, error) {
	fileJSON, err := json.Marshal(file)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize crawl file: %w", err)
	}

	query := `
	INSERT INTO runs (kind, crawled, errors, file_json)
	VALUES (?, ?, ?, ?)
	`
	result, err := hdb.db.ExecContext(ctx, query,
		model.FileTypeCrawl,
		file.Stats.Crawled,
		file.Stats.Errors,
		string(fileJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save crawl run: %w", err)
	}
	return result.LastInsertId()
}

// SaveStudy stores a study run with its per-spec summary rows and returns
// the run's database id.
func (hdb *HistoryDB) SaveStudy(ctx context.Context, file *model.StudyFile) (int64, error) {
	fileJSON, err := json.Marshal(file)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize study file: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (kind, crawled, errors, studied, file_json)
	VALUES (?, ?, ?, ?, ?)
	`,
		model.FileTypeStudy,
		file.Stats.Crawled,
		file.Stats.Errors,
		file.Stats.Studied,
		string(fileJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save study run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, entry := range file.Results {
		ok := 0
		if entry.Report.OK {
			ok = 1
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO spec_findings (run_id, shortname, url, anomaly_count, ok, error)
		VALUES (?, ?, ?, ?, ?, ?)
		`,
			runID,
			entry.Shortname,
			entry.URL,
			entry.Report.AnomalyCount(),
			ok,
			entry.Report.Error,
		); err != nil {
			return 0, fmt.Errorf("failed to save spec findings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit study run: %w", err)
	}
	return runID, nil
}

// GetLatestStudy retrieves the most recent study run, or nil when the
// database holds none.
func (hdb *HistoryDB) GetLatestStudy(ctx context.Context) (*model.StudyFile, error) {
	query := `
	SELECT file_json FROM runs
	WHERE kind = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var fileJSON string
	err := hdb.db.QueryRowContext(ctx, query, model.FileTypeStudy).Scan(&fileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study run: %w", err)
	}

	var file model.StudyFile
	if err := json.Unmarshal([]byte(fileJSON), &file); err != nil {
		return nil, fmt.Errorf("failed to parse study file: %w", err)
	}
	return &file, nil
}

// GetLatestCrawl retrieves the most recent crawl run, or nil when the
// database holds none.
func (hdb *HistoryDB) GetLatestCrawl(ctx context.Context) (*model.CrawlFile, error) {
	query := `
	SELECT file_json FROM runs
	WHERE kind = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var fileJSON string
	err := hdb.db.QueryRowContext(ctx, query, model.FileTypeCrawl).Scan(&fileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	var file model.CrawlFile
	if err := json.Unmarshal([]byte(fileJSON), &file); err != nil {
		return nil, fmt.Errorf("failed to parse crawl file: %w", err)
	}
	return &file, nil
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full file.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Kind is the run kind, "crawl" or "study".
	Kind string

	// Timestamp is when the run was saved.
	Timestamp time.Time

	// Crawled, Errors, and Studied mirror the run's stats block.
	Crawled int
	Errors  int
	Studied int
}

// ListRuns retrieves run metadata, newest first. When kind is non-empty,
// only runs of that kind are returned.
func (hdb *HistoryDB) ListRuns(ctx context.Context, kind string) ([]RunMetadata, error) {
	query := `
	SELECT id, kind, timestamp, crawled, errors, studied
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		if err := rows.Scan(&meta.ID, &meta.Kind, &timestamp, &meta.Crawled, &meta.Errors, &meta.Studied); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}
	return results, rows.Err()
}

// SpecTrendEntry is one study run's summary for a single spec.
type SpecTrendEntry struct {
	// RunID identifies the study run this entry belongs to.
	RunID int64

	// Timestamp is when the run was saved.
	Timestamp time.Time

	// AnomalyCount is the number of findings against the spec in that run.
	AnomalyCount int

	// OK reports whether the spec passed every check in that run.
	OK bool

	// Error carries the crawl error of that run, when any.
	Error string
}

// SpecTrend retrieves a spec's per-run summaries across all study runs,
// newest first. This is the query the database exists for: watching a
// spec's anomaly count move over time.
func (hdb *HistoryDB) SpecTrend(ctx context.Context, shortname string) ([]SpecTrendEntry, error) {
	query := `
	SELECT f.run_id, r.timestamp, f.anomaly_count, f.ok, COALESCE(f.error, '')
	FROM spec_findings f
	JOIN runs r ON r.id = f.run_id
	WHERE f.shortname = ?
	ORDER BY r.timestamp DESC, f.run_id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, shortname)
	if err != nil {
		return nil, fmt.Errorf("failed to query spec trend: %w", err)
	}
	defer rows.Close()

	var results []SpecTrendEntry
	for rows.Next() {
		var entry SpecTrendEntry
		var timestamp string
		var ok int
		if err := rows.Scan(&entry.RunID, &timestamp, &entry.AnomalyCount, &ok, &entry.Error); err != nil {
			return nil, fmt.Errorf("failed to scan trend entry: %w", err)
		}
		entry.Timestamp = parseTimestamp(timestamp)
		entry.OK = ok != 0
		results = append(results, entry)
	}
	return results, rows.Err()
}

// GetStudyByID retrieves a study run by its database id, or nil when the id
// is unknown or denotes a crawl run.
func (hdb *HistoryDB) GetStudyByID(ctx context.Context, id int64) (*model.StudyFile, error) {
	query := `
	SELECT file_json FROM runs
	WHERE id = ? AND kind = ?
	`

	var fileJSON string
	err := hdb.db.QueryRowContext(ctx, query, id, model.FileTypeStudy).Scan(&fileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study run: %w", err)
	}

	var file model.StudyFile
	if err := json.Unmarshal([]byte(fileJSON), &file); err != nil {
		return nil, fmt.Errorf("failed to parse study file: %w", err)
	}
	return &file, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

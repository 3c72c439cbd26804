package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calcifer-3118/yt-neural-miner/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the journal database to adopt the new schema.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Status is a stage's terminal state within one run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCached    Status = "cached"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// StageRecord is one journal row.
type StageRecord struct {
	RunKey       string
	Stage        string
	Status       Status
	ArtifactPath string
	Checksum     string
	Detail       string
	UpdatedAt    time.Time
}

// Store persists per-stage terminal states in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.OutputDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record upserts one stage's terminal state.
func (s *Store) Record(ctx context.Context, rec StageRecord) error {
	if rec.RunKey == "" || rec.Stage == "" {
		return errors.New("journal record requires run key and stage")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_records (run_key, stage, status, artifact_path, checksum, detail, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (run_key, stage) DO UPDATE SET
             status = excluded.status,
             artifact_path = excluded.artifact_path,
             checksum = excluded.checksum,
             detail = excluded.detail,
             updated_at = excluded.updated_at`,
		rec.RunKey, rec.Stage, string(rec.Status),
		nullableString(rec.ArtifactPath), nullableString(rec.Checksum), nullableString(rec.Detail),
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("record stage state: %w", err)
	}
	return nil
}

// ListRun returns the journal rows for one run in update order.
func (s *Store) ListRun(ctx context.Context, runKey string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_key, stage, status, artifact_path, checksum, detail, updated_at
         FROM stage_records WHERE run_key = ? ORDER BY updated_at`, runKey)
	if err != nil {
		return nil, fmt.Errorf("query stage records: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var rec StageRecord
		var status, updated string
		var artifact, checksum, detail sql.NullString
		if err := rows.Scan(&rec.RunKey, &rec.Stage, &status, &artifact, &checksum, &detail, &updated); err != nil {
			return nil, fmt.Errorf("scan stage record: %w", err)
		}
		rec.Status = Status(status)
		rec.ArtifactPath = artifact.String
		rec.Checksum = checksum.String
		rec.Detail = detail.String
		if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			rec.UpdatedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

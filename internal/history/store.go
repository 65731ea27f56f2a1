// Package history keeps a SQLite record of finished export runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/util"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode    = 5
	busyRetryAttempts = 5
	busyRetryBackoff  = 10 * time.Millisecond
)

// Entry is one recorded run.
type Entry struct {
	ID         string
	Source     string
	Output     string
	Stage      model.Stage
	Progress   int
	ErrorKind  errs.Kind
	ErrorStage model.Stage
	ErrorMsg   string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the run took.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store persists entries.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	s := &Store{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		return tx.Commit()
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)", ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Record stores a terminal run, replacing any earlier row with its id.
func (s *Store) Record(ctx context.Context, run model.PipelineRun) error {
	e := Entry{
		ID:         run.ID,
		Source:     run.Source,
		Output:     run.Output,
		Stage:      run.Stage,
		Progress:   run.Progress,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if run.Err != nil {
		e.ErrorKind = errs.KindOf(run.Err)
		e.ErrorStage = errs.StageOf(run.Err)
		e.ErrorMsg = firstLine(run.Err.Error())
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
			(id, source, output, stage, progress, error_kind, error_stage, error_msg, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Source, e.Output, string(e.Stage), e.Progress,
			string(e.ErrorKind), string(e.ErrorStage), e.ErrorMsg,
			e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli())
		return err
	})
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, source, output, stage, progress, error_kind, error_stage, error_msg, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                     Entry
			stage, kind, errStage string
			startedMs, finishedMs int64
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Output, &stage, &e.Progress, &kind, &errStage, &e.ErrorMsg, &startedMs, &finishedMs); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Stage = model.Stage(stage)
		e.ErrorKind = errs.Kind(kind)
		e.ErrorStage = model.Stage(errStage)
		e.StartedAt = time.UnixMilli(startedMs)
		e.FinishedAt = time.UnixMilli(finishedMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries that finished before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE finished_at < ?", cutoff.UnixMilli())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func isSQLiteBusy(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryBackoff
	var err error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		if err = op(); err == nil || !isSQLiteBusy(err) {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages batch history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
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

// Record persists one finished batch along with its per-file rows.
func (s *Store) Record(ctx context.Context, batch Batch) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(batch.BatchID) == "" {
		return errors.New("batch id is empty")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin batch tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO batches (batch_id, format, quality, outcome, total_files, converted, failed, skipped, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			batch.BatchID,
			batch.Format,
			batch.Quality,
			string(batch.Outcome),
			batch.TotalFiles,
			batch.Converted,
			batch.Failed,
			batch.Skipped,
			batch.StartedAt.UTC().Format(time.RFC3339Nano),
			batch.FinishedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}

		for _, file := range batch.Files {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO batch_files (batch_id, source_path, output_path, disposition, detail)
				VALUES (?, ?, ?, ?, ?)`,
				batch.BatchID,
				file.SourcePath,
				file.OutputPath,
				string(file.Disposition),
				file.Detail,
			)
			if err != nil {
				return fmt.Errorf("insert batch file: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		return nil
	})
}

// List returns the most recent batches, newest first, without per-file rows.
// A limit of zero or less returns every batch.
func (s *Store) List(ctx context.Context, limit int) ([]Batch, error) {
	ctx = ensureContext(ctx)
	query := `
		SELECT batch_id, format, quality, outcome, total_files, converted, failed, skipped, started_at, finished_at
		FROM batches
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []Batch
	for rows.Next() {
		var (
			batch      Batch
			outcome    string
			startedAt  string
			finishedAt string
		)
		if err := rows.Scan(
			&batch.BatchID,
			&batch.Format,
			&batch.Quality,
			&outcome,
			&batch.TotalFiles,
			&batch.Converted,
			&batch.Failed,
			&batch.Skipped,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batch.Outcome = Outcome(outcome)
		batch.StartedAt = parseTimestamp(startedAt)
		batch.FinishedAt = parseTimestamp(finishedAt)
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// Files returns the per-file rows for one batch in insertion order.
func (s *Store) Files(ctx context.Context, batchID string) ([]FileRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_path, output_path, disposition, detail
		FROM batch_files
		WHERE batch_id = ?
		ORDER BY id ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []FileRecord
	for rows.Next() {
		var (
			file        FileRecord
			disposition string
		)
		if err := rows.Scan(&file.SourcePath, &file.OutputPath, &disposition, &file.Detail); err != nil {
			return nil, fmt.Errorf("scan batch file: %w", err)
		}
		file.Disposition = Disposition(disposition)
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch files: %w", err)
	}
	return files, nil
}

// Prune deletes batches older than the cutoff and returns how many were
// removed. Per-file rows follow through the foreign key cascade.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			"DELETE FROM batches WHERE started_at < ?",
			cutoff.UTC().Format(time.RFC3339Nano),
		)
		if execErr != nil {
			return execErr
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune batches: %w", err)
	}
	return removed, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"subforge/internal/batch"
	"subforge/internal/services"
)

// Store records batches in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

var _ batch.Recorder = (*Store)(nil)

// Open creates or opens the history database at path and applies migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "history", "open", "history database path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "history", "open", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

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
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginBatch inserts the batch row.
func (s *Store) BeginBatch(ctx context.Context, id string, opts batch.Options, videos int, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, format, font_mode, videos, output_dir, fonts_root, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		opts.Format,
		string(opts.FontMode),
		videos,
		nullableString(opts.OutputDir),
		nullableString(opts.FontsRoot),
		started.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// RecordOutcome appends one video outcome.
func (s *Store) RecordOutcome(ctx context.Context, batchID string, outcome batch.VideoOutcome) error {
	outputs := outcome.Outputs()
	if outputs == nil {
		outputs = []string{}
	}
	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	var kind, message sql.NullString
	if err := outcome.FirstErr(); err != nil {
		kind = sql.NullString{String: string(services.Classify(err)), Valid: true}
		message = sql.NullString{String: err.Error(), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcomes (batch_id, seq, video, status, outputs_json, error_kind, error_message, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batchID,
		outcome.Seq,
		outcome.Video,
		string(outcome.Status),
		string(outputsJSON),
		kind,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// FinishBatch stores the final counts and merge result.
func (s *Store) FinishBatch(ctx context.Context, summary batch.Summary) error {
	counts := summary.Counts()
	var groups, failed sql.NullInt64
	if summary.Merge != nil {
		groups = sql.NullInt64{Int64: int64(len(summary.Merge.Groups)), Valid: true}
		failed = sql.NullInt64{Int64: int64(len(summary.Merge.Failed())), Valid: true}
	}
	var mergeErr sql.NullString
	if summary.MergeErr != nil {
		mergeErr = sql.NullString{String: summary.MergeErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET finished_at = ?, fonts_root = ?, success = ?, partial = ?, failed = ?,
            merge_groups = ?, merge_failed = ?, merge_error = ?
         WHERE id = ?`,
		summary.Finished.UTC().Format(time.RFC3339Nano),
		nullableString(summary.FontsRoot),
		counts[batch.StatusSuccess],
		counts[batch.StatusPartial],
		counts[batch.StatusFail],
		groups,
		failed,
		mergeErr,
		summary.BatchID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update batch %s: %w", summary.BatchID, sql.ErrNoRows)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

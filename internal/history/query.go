package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// BatchRecord is one stored batch.
type BatchRecord struct {
	ID          string
	Format      string
	FontMode    string
	Videos      int
	OutputDir   string
	FontsRoot   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     int
	Partial     int
	Failed      int
	MergeGroups int
	MergeFailed int
	MergeError  string
}

// Finished reports whether FinishBatch was recorded.
func (b BatchRecord) Finished() bool {
	return !b.FinishedAt.IsZero()
}

// OutcomeRecord is one stored video outcome.
type OutcomeRecord struct {
	Seq          int
	Video        string
	Status       string
	Outputs      []string
	ErrorKind    string
	ErrorMessage string
	RecordedAt   time.Time
}

// Recent returns up to limit batches, newest first. limit <= 0 means 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, format, font_mode, videos, output_dir, fonts_root, started_at, finished_at,
                success, partial, failed, merge_groups, merge_failed, merge_error
         FROM batches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		var (
			rec                            BatchRecord
			outputDir, fontsRoot, mergeErr sql.NullString
			started                        string
			finished                       sql.NullString
			mergeGroups, mergeFailed       sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Format, &rec.FontMode, &rec.Videos, &outputDir, &fontsRoot,
			&started, &finished, &rec.Success, &rec.Partial, &rec.Failed, &mergeGroups, &mergeFailed, &mergeErr); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		rec.OutputDir = outputDir.String
		rec.FontsRoot = fontsRoot.String
		rec.MergeError = mergeErr.String
		rec.MergeGroups = int(mergeGroups.Int64)
		rec.MergeFailed = int(mergeFailed.Int64)
		rec.StartedAt = parseTime(started)
		if finished.Valid {
			rec.FinishedAt = parseTime(finished.String)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return out, nil
}

// Outcomes returns the outcomes of a batch in sequence order.
func (s *Store) Outcomes(ctx context.Context, batchID string) ([]OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, video, status, outputs_json, error_kind, error_message, recorded_at
         FROM outcomes WHERE batch_id = ? ORDER BY seq, id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var (
			rec           OutcomeRecord
			outputsJSON   string
			kind, message sql.NullString
			recorded      string
		)
		if err := rows.Scan(&rec.Seq, &rec.Video, &rec.Status, &outputsJSON, &kind, &message, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if err := json.Unmarshal([]byte(outputsJSON), &rec.Outputs); err != nil {
			return nil, fmt.Errorf("decode outputs: %w", err)
		}
		rec.ErrorKind = kind.String
		rec.ErrorMessage = message.String
		rec.RecordedAt = parseTime(recorded)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

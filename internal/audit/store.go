// Package audit implements an operator-facing history of sync passes: a
// local SQLite database recording each pass's summary counts and any
// conflict-skips it logged. This is ambient tooling only — sync-algorithm.md
// §6 "Persisted state" is explicit that the reconciliation core persists
// nothing to disk; nothing here ever feeds back into a Scheduler's
// in-memory Snapshot. Grounded on the teacher's internal/sync/baseline.go
// (SQLite-via-modernc, WAL pragmas, sole-writer pattern, goose migrations),
// scaled from the teacher's live reconciliation ledger down to a simple
// append-only history a `status`/`conflicts` CLI command reads back.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/arnecode/dropsync/internal/model"
)

const (
	sqlInsertRun = `INSERT INTO runs
		(id, started_at, duration_ms, uploads, downloads, remote_deletes,
		 local_deletes, conflict_skips, debug_skipped, failed, error_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlInsertConflict = `INSERT INTO conflicts (id, run_id, path, reason, detected_at)
		VALUES (?, ?, ?, ?, ?)`

	sqlListRuns = `SELECT id, started_at, duration_ms, uploads, downloads,
		remote_deletes, local_deletes, conflict_skips, debug_skipped, failed, error_summary
		FROM runs ORDER BY started_at DESC LIMIT ?`

	sqlListConflicts = `SELECT id, run_id, path, reason, detected_at
		FROM conflicts ORDER BY detected_at DESC LIMIT ?`
)

// RunSummary is the subset of a scheduler.Report an audit entry records.
// Defined independently of the scheduler package so audit has no
// dependency on it — callers convert at the call site.
type RunSummary struct {
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	Uploads       int           `json:"uploads"`
	Downloads     int           `json:"downloads"`
	RemoteDeletes int           `json:"remote_deletes"`
	LocalDeletes  int           `json:"local_deletes"`
	ConflictSkips int           `json:"conflict_skips"`
	DebugSkipped  int           `json:"debug_skipped"`
	Failed        int           `json:"failed"`
	ErrorSummary  string        `json:"error_summary,omitempty"`
}

// ConflictEntry is one conflict-skip observed during a pass, keyed by the
// structured reason code the reconciler attached (§7 "Conflict").
type ConflictEntry struct {
	Path   string
	Reason model.ConflictReason
}

// RunRecord is one row read back from the runs table.
type RunRecord struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	RunSummary   RunSummary `json:"summary"`
	ErrorSummary string    `json:"error_summary,omitempty"`
}

// ConflictRecord is one row read back from the conflicts table.
type ConflictRecord struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Path       string    `json:"path"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}

// Store is the sole writer to the audit database (mirrors the teacher's
// BaselineManager sole-writer pattern via SetMaxOpenConns(1)).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the SQLite database at dbPath, runs
// pending migrations, and returns a ready-to-use Store.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()

		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts one completed pass's summary and its conflict-skips,
// all within a single transaction, and returns the generated run ID.
func (s *Store) RecordRun(ctx context.Context, summary RunSummary, conflicts []ConflictEntry) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("audit: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	_, err = tx.ExecContext(ctx, sqlInsertRun,
		runID, summary.StartedAt.Unix(), summary.Duration.Milliseconds(),
		summary.Uploads, summary.Downloads, summary.RemoteDeletes, summary.LocalDeletes,
		summary.ConflictSkips, summary.DebugSkipped, summary.Failed, nullableString(summary.ErrorSummary))
	if err != nil {
		return "", fmt.Errorf("audit: inserting run: %w", err)
	}

	for _, c := range conflicts {
		_, err = tx.ExecContext(ctx, sqlInsertConflict,
			uuid.NewString(), runID, c.Path, string(c.Reason), summary.StartedAt.Unix())
		if err != nil {
			return "", fmt.Errorf("audit: inserting conflict for %s: %w", c.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("audit: committing run %s: %w", runID, err)
	}

	return runID, nil
}

// ListRuns returns the most recent limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqlListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord

	for rows.Next() {
		var (
			r            RunRecord
			startedAt    int64
			durationMs   int64
			errorSummary sql.NullString
		)

		if err := rows.Scan(&r.ID, &startedAt, &durationMs,
			&r.RunSummary.Uploads, &r.RunSummary.Downloads, &r.RunSummary.RemoteDeletes,
			&r.RunSummary.LocalDeletes, &r.RunSummary.ConflictSkips, &r.RunSummary.DebugSkipped,
			&r.RunSummary.Failed, &errorSummary); err != nil {
			return nil, fmt.Errorf("audit: scanning run row: %w", err)
		}

		r.StartedAt = time.Unix(startedAt, 0).UTC()
		r.RunSummary.StartedAt = r.StartedAt
		r.RunSummary.Duration = time.Duration(durationMs) * time.Millisecond
		r.ErrorSummary = errorSummary.String

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterating run rows: %w", err)
	}

	return out, nil
}

// ListConflicts returns the most recent limit conflict-skips, newest first.
func (s *Store) ListConflicts(ctx context.Context, limit int) ([]ConflictRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqlListConflicts, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: listing conflicts: %w", err)
	}
	defer rows.Close()

	var out []ConflictRecord

	for rows.Next() {
		var (
			c          ConflictRecord
			detectedAt int64
		)

		if err := rows.Scan(&c.ID, &c.RunID, &c.Path, &c.Reason, &detectedAt); err != nil {
			return nil, fmt.Errorf("audit: scanning conflict row: %w", err)
		}

		c.DetectedAt = time.Unix(detectedAt, 0).UTC()
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterating conflict rows: %w", err)
	}

	return out, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

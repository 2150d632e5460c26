/*
Package sqlite provides a SQLite-backed archive of refresh runs.

PURPOSE:
  Implements generic.RunStore and keeps, per refresh run that produced a new
  ledger version, a copy of the summaries that version produced. The archive
  is history only: the live ledger is always recomputed from the CSV and is
  never read back from here.

APPEND-ONLY ENFORCEMENT:
  - refresh_runs rows are inserted once, never updated or deleted
  - ledger_summaries rows are inserted in one transaction per run

KEY TABLES:
  refresh_runs:      One row per refresh trigger
  ledger_summaries:  Summaries of a run, in ledger order (seq)

CONCURRENCY:
  Uses sync.RWMutex plus a single open connection, so ":memory:" databases
  behave like files across calls.

WAL MODE:
  Opened with WAL so readers (the refresh-run endpoints) do not block the
  scheduler's writes.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: RunStore interface
  - generic/store/memory.go: In-memory RunStore
  - api/scheduler.go: Writes runs and archives
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

// Store implements generic.RunStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS refresh_runs (
		id TEXT PRIMARY KEY,
		trigger TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 0,
		summary_count INTEGER NOT NULL DEFAULT 0,
		daily_count INTEGER NOT NULL DEFAULT 0,
		skipped_rows INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refresh_runs_started_at
		ON refresh_runs(started_at);

	CREATE TABLE IF NOT EXISTS ledger_summaries (
		run_id TEXT NOT NULL REFERENCES refresh_runs(id),
		seq INTEGER NOT NULL,
		document_id TEXT NOT NULL,
		applicant TEXT NOT NULL,
		department TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		points_value TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		reason TEXT NOT NULL,
		remaining_value TEXT NOT NULL,
		corrected INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_summaries_applicant
		ON ledger_summaries(applicant);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUN STORE (generic.RunStore interface)
// =============================================================================

// SaveRefreshRun appends a run.
func (s *Store) SaveRefreshRun(ctx context.Context, run generic.RefreshRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO refresh_runs
		(id, trigger, version, status, request_count, summary_count, daily_count,
		 skipped_rows, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Trigger, run.Version, run.Status,
		run.RequestCount, run.SummaryCount, run.DailyCount, run.SkippedRows,
		run.Error, run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh run: %w", err)
	}
	return nil
}

const runColumns = `id, trigger, version, status, request_count, summary_count,
	daily_count, skipped_rows, error, started_at, finished_at`

// ListRefreshRuns returns the newest runs first; limit <= 0 means all.
func (s *Store) ListRefreshRuns(ctx context.Context, limit int) ([]generic.RefreshRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM refresh_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]generic.RefreshRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRefreshRun returns generic.ErrRunNotFound for unknown IDs.
func (s *Store) GetRefreshRun(ctx context.Context, id generic.RunID) (*generic.RefreshRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM refresh_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (generic.RefreshRun, error) {
	var (
		run                 generic.RefreshRun
		startedAt, finished int64
	)
	err := row.Scan(
		&run.ID, &run.Trigger, &run.Version, &run.Status,
		&run.RequestCount, &run.SummaryCount, &run.DailyCount, &run.SkippedRows,
		&run.Error, &startedAt, &finished,
	)
	if err != nil {
		return run, err
	}
	run.StartedAt = time.Unix(0, startedAt).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()
	return run, nil
}

// =============================================================================
// LEDGER ARCHIVE
// =============================================================================

// ArchiveLedger stores the summaries a run produced, atomically.
// The run must already be saved.
func (s *Store) ArchiveLedger(ctx context.Context, runID generic.RunID, summaries []timeoff.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_summaries
		(run_id, seq, document_id, applicant, department, start_date, end_date,
		 points_value, leave_type, reason, remaining_value, corrected, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for i, sm := range summaries {
		_, err := stmt.ExecContext(ctx,
			runID, i, sm.DocumentID, sm.Applicant, sm.Department,
			sm.StartDate.String(), sm.EndDate.String(),
			sm.Points.Value.String(), sm.LeaveType, sm.Reason,
			sm.Remaining.Value.String(), sm.Corrected, sm.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to archive summary %d of run %s: %w", i, runID, err)
		}
	}

	return tx.Commit()
}

// ArchivedSummaries returns the summaries archived for a run, in ledger order.
func (s *Store) ArchivedSummaries(ctx context.Context, runID generic.RunID) ([]timeoff.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, applicant, department, start_date, end_date,
			points_value, leave_type, reason, remaining_value, corrected, status
		FROM ledger_summaries
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]timeoff.Summary, 0)
	for rows.Next() {
		var (
			sm                   timeoff.Summary
			start, end           string
			pointsVal, remaining string
		)
		if err := rows.Scan(
			&sm.DocumentID, &sm.Applicant, &sm.Department, &start, &end,
			&pointsVal, &sm.LeaveType, &sm.Reason, &remaining, &sm.Corrected, &sm.Status,
		); err != nil {
			return nil, err
		}
		sm.StartDate, _ = generic.ParseDay(start)
		sm.EndDate, _ = generic.ParseDay(end)
		sm.Points = parseAmount(pointsVal)
		sm.Remaining = parseAmount(remaining)
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Helper functions

func parseAmount(value string) generic.Amount {
	return generic.Amount{
		Value: generic.MustParseDecimal(value),
		Unit:  generic.UnitPoints,
	}
}

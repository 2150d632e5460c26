/*
store.go - Persistence interface for refresh runs

PURPOSE:
  Defines the interface between the refresh scheduler and whatever records
  its history. The ledger itself is never persisted as mutable state: every
  refresh recomputes it from the CSV. What IS kept is an append-only log of
  refresh runs (and, optionally, the tables each run produced) so operators
  can answer "when did the numbers last change, and why?".

KEY INTERFACES:
  RunStore: Append and query refresh runs

APPEND-ONLY CONTRACT:
  - SaveRefreshRun(): Single record write
  - NO Update() or Delete() methods exist

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite-backed archive
  - generic/store/memory.go: In-memory for tests and archive-less runs

SEE ALSO:
  - api/scheduler.go: Writes one RefreshRun per trigger
*/
package generic

import "context"

// =============================================================================
// RUN STORE - Interface for refresh run history (append-only)
// =============================================================================

type RunStore interface {
	// SaveRefreshRun appends a run record.
	SaveRefreshRun(ctx context.Context, run RefreshRun) error

	// ListRefreshRuns returns the newest runs first, at most limit (0 = all).
	ListRefreshRuns(ctx context.Context, limit int) ([]RefreshRun, error)

	// GetRefreshRun returns ErrRunNotFound for unknown IDs.
	GetRefreshRun(ctx context.Context, id RunID) (*RefreshRun, error)
}

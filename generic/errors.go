/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Source errors - The CSV extract is missing or unreadable
  2. Row errors - A single malformed row (recovered locally, never fatal)
  3. Validation errors - Bad periods or config
  4. Store errors - Run archive lookups

USAGE:
  snap, err := source.Snapshot(ctx)
  if errors.Is(err, generic.ErrSourceMissing) {
      // degrade to empty tables
  }

SEE ALSO:
  - timeoff/source.go: Wraps I/O failures in SourceError
  - timeoff/parse.go: Collects RowError issues
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSourceMissing is returned when the CSV extract does not exist.
	// Callers degrade every output to its empty/zero default.
	ErrSourceMissing = errors.New("source file missing")

	// ErrEmptyHeader is returned when the CSV has no header row.
	ErrEmptyHeader = errors.New("csv has no header row")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("required column missing")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrRunNotFound is returned when a refresh run ID is unknown.
	ErrRunNotFound = errors.New("refresh run not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SourceError wraps a failure to read the extract at Path.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// RowError describes one malformed CSV row. These are collected as issues
// alongside the parsed rows; the row itself is excluded.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: column %q: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSourceMissing) ||
		errors.Is(err, ErrRunNotFound)
}

/*
source.go - Versioned, memoized view of the CSV extract

PURPOSE:
  Binds a file path to the parser and the ledger. Each call stats the file,
  derives a version key from its modification time and size, and returns the
  Snapshot computed for that version. The CSV is re-read and the ledger
  recomputed only when the version changes.

CACHE POLICY:
  generic.VersionCache holds exactly one Snapshot. A new version replaces the
  old one; nothing stale is retained. A missing file invalidates the cache so
  a re-created file with an old timestamp is never served from memory.

ERRORS:
  - File missing: SourceError wrapping generic.ErrSourceMissing. Callers
    degrade every output to its empty default.
  - Unreadable file, missing header or required column: SourceError.
  - Bad rows never fail a load; they surface as Snapshot.Issues.

SEE ALSO:
  - timeoff/parse.go: Parser
  - timeoff/ledger.go: Allocate
  - api/scheduler.go: Refreshes the source on a timer and on file events
*/
package timeoff

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/warp/leave-ledger/generic"
)

// Snapshot is the ledger computed from one version of the extract.
// Snapshots are shared between callers and must be treated as read-only.
type Snapshot struct {
	Version   string
	LoadedAt  time.Time
	Requests  []LeaveRequest
	Summaries []Summary
	Daily     []DailyAllocation
	Issues    []generic.RowError
	Rows      int // data rows in the file
	Rejected  int // rows dropped for status
}

// Skipped is the number of rows that did not make it into the summaries:
// unreadable records, bad amounts, bad dates and weekend-only spans.
// Rejected rows are counted separately.
func (s *Snapshot) Skipped() int {
	excluded := make(map[int]struct{})
	for _, is := range s.Issues {
		// an issue without a column is a record the CSV reader could not split
		if is.Column == "" || is.Column == columnLabels[colPoints] || is.Column == columnLabels[colRemaining] {
			excluded[is.Line] = struct{}{}
		}
	}
	return len(excluded) + len(s.Requests) - len(s.Summaries)
}

// Source is a memoized view of one CSV file.
type Source struct {
	path   string
	parser *Parser
	cache  *generic.VersionCache[*Snapshot]
	now    func() time.Time
}

func NewSource(path string, parser *Parser) *Source {
	if parser == nil {
		parser = NewParser(DefaultParserConfig())
	}
	return &Source{
		path:   path,
		parser: parser,
		cache:  generic.NewVersionCache[*Snapshot](),
		now:    time.Now,
	}
}

func (s *Source) Path() string { return s.path }

// Version returns the current version key of the file without loading it.
func (s *Source) Version() (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &generic.SourceError{Path: s.path, Err: generic.ErrSourceMissing}
		}
		return "", &generic.SourceError{Path: s.path, Err: err}
	}
	return versionKey(info), nil
}

func versionKey(info fs.FileInfo) string {
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size())
}

// Snapshot returns the ledger for the file's current version.
func (s *Source) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, _, err := s.Load(ctx)
	return snap, err
}

// Load is Snapshot plus whether the result came from the cache.
func (s *Source) Load(ctx context.Context) (*Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	version, err := s.Version()
	if err != nil {
		if errors.Is(err, generic.ErrSourceMissing) {
			s.cache.Invalidate()
		}
		return nil, false, err
	}

	return s.cache.GetOrLoad(version, func() (*Snapshot, error) {
		return s.build(version)
	})
}

// Invalidate forces the next load to re-read the file.
func (s *Source) Invalidate() { s.cache.Invalidate() }

// CacheStats reports cache hits and misses.
func (s *Source) CacheStats() (hits, misses uint64) { return s.cache.Stats() }

func (s *Source) build(version string) (*Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = generic.ErrSourceMissing
		}
		return nil, &generic.SourceError{Path: s.path, Err: err}
	}
	defer f.Close()

	parsed, err := s.parser.Parse(f)
	if err != nil {
		return nil, &generic.SourceError{Path: s.path, Err: err}
	}

	summaries, daily := Allocate(parsed.Requests)
	return &Snapshot{
		Version:   version,
		LoadedAt:  s.now(),
		Requests:  parsed.Requests,
		Summaries: summaries,
		Daily:     daily,
		Issues:    parsed.Issues,
		Rows:      parsed.Rows,
		Rejected:  parsed.Rejected,
	}, nil
}

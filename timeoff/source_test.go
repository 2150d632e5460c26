package timeoff_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/timeoff"
)

const sampleCSV = "\ufeff" + koreanHeader +
	"1,A,기술개발팀,2024-03-04(월),2024-03-08(금),5,연차,여행,10,완료\n" +
	"1,B,UI-UX팀,2024-04-01(월),2024-04-02(화),2,연차,,8,완료\n" +
	"2,B,UI-UX팀,2024-04-10(수),2024-04-10(수),1,연차,,6,완료\n" +
	"3,B,UI-UX팀,2024-04-13(토),2024-04-14(일),1,연차,,5,완료\n" +
	"4,C,인사팀,2024-05-02(목),2024-05-02(목),0.5,연차,병원,3,반려\n"

func writeCSV(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leave.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSource_Snapshot_EndToEnd(t *testing.T) {
	// GIVEN: An extract with a weekend-only request and a rejected request
	// WHEN: Taking a snapshot
	// THEN: The ledger reflects only approved, business-day requests

	path := writeCSV(t, t.TempDir(), sampleCSV)
	src := timeoff.NewSource(path, nil)

	snap, err := src.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Rows)
	assert.Equal(t, 1, snap.Rejected)
	assert.Len(t, snap.Requests, 4)
	require.Len(t, snap.Summaries, 3)
	assert.Len(t, snap.Daily, 5+2+1)
	assert.Equal(t, 1, snap.Skipped(), "weekend-only doc 3")

	b, ok := timeoff.FinalBalance(snap.Summaries, "B")
	require.True(t, ok)
	assert.Equal(t, timeoff.DocumentID("2"), b.DocumentID)
	assert.True(t, b.Remaining.EqualFloat(5))
	assert.Equal(t, "퍼블리싱", b.Department)
}

func TestSnapshot_Skipped_CountsEveryExcludedLine(t *testing.T) {
	// GIVEN: One unreadable record, one row with two bad amounts, and one
	//        approved request the ledger dropped
	// WHEN: Counting skipped rows
	// THEN: Each excluded line counts once

	snap := &timeoff.Snapshot{
		Requests: make([]timeoff.LeaveRequest, 1),
		Issues: []generic.RowError{
			{Line: 3, Err: csv.ErrQuote},
			{Line: 5, Column: "requested_points", Value: "abc", Err: errors.New("bad amount")},
			{Line: 5, Column: "remaining_points", Value: "x", Err: errors.New("bad amount")},
		},
	}

	assert.Equal(t, 3, snap.Skipped())
}

func TestSource_Snapshot_CachedPerVersion(t *testing.T) {
	// GIVEN: A loaded source
	// WHEN: Loading again without touching the file, then after rewriting it
	// THEN: The second load is a cache hit, the third recomputes

	dir := t.TempDir()
	path := writeCSV(t, dir, sampleCSV)
	src := timeoff.NewSource(path, nil)
	ctx := context.Background()

	first, hit, err := src.Load(ctx)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := src.Load(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, second)

	writeCSV(t, dir, sampleCSV+"5,D,인사팀,2024-06-03,2024-06-03,1,연차,,2,완료\n")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	third, hit, err := src.Load(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotEqual(t, first.Version, third.Version)
	assert.Len(t, third.Summaries, 4)

	hits, misses := src.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestSource_Snapshot_MissingFile(t *testing.T) {
	// GIVEN: A path that does not exist
	// WHEN: Taking a snapshot
	// THEN: ErrSourceMissing wrapped in a SourceError

	src := timeoff.NewSource(filepath.Join(t.TempDir(), "nope.csv"), nil)

	snap, err := src.Snapshot(context.Background())

	assert.Nil(t, snap)
	require.ErrorIs(t, err, generic.ErrSourceMissing)
	var srcErr *generic.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Contains(t, srcErr.Path, "nope.csv")
	assert.True(t, generic.IsNotFound(err))
}

func TestSource_Snapshot_FileRemovedAfterLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, sampleCSV)
	src := timeoff.NewSource(path, nil)
	ctx := context.Background()

	_, err := src.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	_, err = src.Snapshot(ctx)
	assert.ErrorIs(t, err, generic.ErrSourceMissing)
}

func TestSource_Snapshot_BadHeaderNotCached(t *testing.T) {
	// GIVEN: A file missing a required column
	// WHEN: Loading, fixing the file, loading again
	// THEN: First load fails with ErrMissingColumn, second succeeds

	dir := t.TempDir()
	path := writeCSV(t, dir, "document_id,applicant\n1,a\n")
	src := timeoff.NewSource(path, nil)
	ctx := context.Background()

	_, err := src.Snapshot(ctx)
	require.ErrorIs(t, err, generic.ErrMissingColumn)

	writeCSV(t, dir, sampleCSV)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Summaries)
}

func TestSource_Snapshot_CanceledContext(t *testing.T) {
	path := writeCSV(t, t.TempDir(), sampleCSV)
	src := timeoff.NewSource(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package generic_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/generic"
)

func TestVersionCache_OneEntry(t *testing.T) {
	// GIVEN: A cache holding version "v1"
	// WHEN: Storing "v2"
	// THEN: "v1" is gone; only the current key hits

	c := generic.NewVersionCache[int]()
	c.Put("v1", 1)

	got, ok := c.Get("v1")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	c.Put("v2", 2)
	_, ok = c.Get("v1")
	assert.False(t, ok, "old version evicted")
	got, ok = c.Get("v2")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, "v2", c.Key())

	c.Invalidate()
	_, ok = c.Get("v2")
	assert.False(t, ok)
	assert.Equal(t, "", c.Key())
}

func TestVersionCache_GetOrLoad_ComputesOncePerKey(t *testing.T) {
	c := generic.NewVersionCache[string]()
	calls := 0
	load := func() (string, error) {
		calls++
		return "ledger", nil
	}

	v, hit, err := c.GetOrLoad("v1", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ledger", v)

	_, hit, err = c.GetOrLoad("v1", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	_, hit, _ = c.GetOrLoad("v2", load)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestVersionCache_ErrorsNotCached(t *testing.T) {
	c := generic.NewVersionCache[string]()
	boom := errors.New("boom")

	_, _, err := c.GetOrLoad("v1", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "", c.Key())

	v, hit, err := c.GetOrLoad("v1", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.False(t, hit, "retried after the error")
	assert.Equal(t, "ok", v)
}

func TestVersionCache_ConcurrentLoadersShareOneComputation(t *testing.T) {
	c := generic.NewVersionCache[int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.GetOrLoad("v1", func() (int, error) {
				calls.Add(1)
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

package cache_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasad8686/agentcore/internal/cache"
	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/testutil"
	"github.com/rasad8686/agentcore/types"
)

func newCache(t *testing.T) (*cache.Workflows, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := cache.New(testutil.TestContext(t), cache.Config{
		Addr: mr.Addr(),
		TTL:  time.Minute,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	c, _ := newCache(t)

	w := &store.Workflow{
		ID:       "wf-1",
		Name:     "cached",
		Topology: types.TopologyParallel,
		Agents:   []types.AgentBinding{{AgentID: "a"}},
	}
	c.Set(ctx, w)

	got, ok := c.Get(ctx, "wf-1")
	require.True(t, ok)
	assert.Equal(t, "cached", got.Name)
	assert.Equal(t, types.TopologyParallel, got.Topology)
	require.Len(t, got.Agents, 1)
}

func TestCacheMiss(t *testing.T) {
	t.Parallel()
	c, _ := newCache(t)
	_, ok := c.Get(testutil.TestContext(t), "absent")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	c, _ := newCache(t)

	c.Set(ctx, &store.Workflow{ID: "wf-1", Name: "x"})
	c.Invalidate(ctx, "wf-1")

	_, ok := c.Get(ctx, "wf-1")
	assert.False(t, ok)
}

func TestCacheEntriesExpire(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	c, mr := newCache(t)

	c.Set(ctx, &store.Workflow{ID: "wf-1", Name: "x"})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "wf-1")
	assert.False(t, ok)
}

func TestCorruptEntryIsDropped(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	c, mr := newCache(t)

	require.NoError(t, mr.Set("agentcore:workflow:wf-1", "{not json"))
	_, ok := c.Get(ctx, "wf-1")
	assert.False(t, ok)
	// The corrupt entry is removed so it cannot keep failing.
	assert.False(t, mr.Exists("agentcore:workflow:wf-1"))
}

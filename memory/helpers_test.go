package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasad8686/agentcore/memory"
	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/testutil"
	"github.com/rasad8686/agentcore/types"
)

func TestCreateEpisodeImportanceByOutcome(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	m, _ := newMemory(t, memory.Config{})

	ok, err := m.CreateEpisode(ctx, "task-1", memory.Episode{
		Summary: "resolved ticket", Outcome: "success",
	})
	require.NoError(t, err)
	assert.Equal(t, int(types.ImportanceMedium), ok.Importance)
	assert.Equal(t, types.MemoryEpisodic, ok.Type)
	assert.Contains(t, ok.Tags, "episode")
	assert.Contains(t, ok.Tags, "success")

	failed, err := m.CreateEpisode(ctx, "task-2", memory.Episode{
		Summary: "deploy rolled back", Outcome: "failure",
		Learnings: []string{"check migrations first"},
	})
	require.NoError(t, err)
	assert.Equal(t, int(types.ImportanceHigh), failed.Importance)
}

func TestProcedureVersioning(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	m, _ := newMemory(t, memory.Config{})

	_, err := m.StoreProcedure(ctx, "deploy", []string{"build", "test", "ship"})
	require.NoError(t, err)
	_, err = m.StoreProcedure(ctx, "deploy", []string{"build", "test", "canary", "ship"})
	require.NoError(t, err)

	proc, err := m.GetProcedure(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, 2, proc.Version)
	assert.Equal(t, []string{"build", "test", "canary", "ship"}, proc.Steps)

	_, err = m.GetProcedure(ctx, "unknown")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))

	_, err = m.StoreProcedure(ctx, "", nil)
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestFactsQueryBySubject(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	m, _ := newMemory(t, memory.Config{})

	_, err := m.StoreFact(ctx, memory.Fact{Subject: "tenant-7", Predicate: "plan", Object: "enterprise"})
	require.NoError(t, err)
	_, err = m.StoreFact(ctx, memory.Fact{Subject: "tenant-7", Predicate: "region", Object: "eu", Confidence: 0.8})
	require.NoError(t, err)
	_, err = m.StoreFact(ctx, memory.Fact{Subject: "tenant-9", Predicate: "plan", Object: "free"})
	require.NoError(t, err)

	facts, err := m.QueryFacts(ctx, "tenant-7")
	require.NoError(t, err)
	require.Len(t, facts, 2)
	for _, f := range facts {
		assert.Equal(t, "tenant-7", f.Subject)
	}

	// A zero confidence defaults to full confidence at storage time.
	found := false
	for _, f := range facts {
		if f.Predicate == "plan" {
			assert.InDelta(t, 1.0, f.Confidence, 1e-9)
			found = true
		}
	}
	assert.True(t, found)

	_, err = m.StoreFact(ctx, memory.Fact{Predicate: "plan"})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestForgetPrunesOldLowValueRecords(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	m, st := newMemory(t, memory.Config{})

	stale, err := m.Store(ctx, "stale detail", memory.StoreOptions{Importance: types.ImportanceLow})
	require.NoError(t, err)
	keeper, err := m.Store(ctx, "important detail", memory.StoreOptions{Importance: types.ImportanceCritical})
	require.NoError(t, err)

	// Age the records beyond the cutoff.
	old := time.Now().AddDate(0, 0, -60)
	require.NoError(t, st.DB().Model(&store.MemoryRecord{}).
		Where("id IN ?", []string{stale.ID, keeper.ID}).
		Update("created_at", old).Error)

	deleted, err := m.Forget(ctx, memory.ForgetOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = st.GetMemory(ctx, stale.ID)
	assert.True(t, types.IsNotFound(err))
	_, err = st.GetMemory(ctx, keeper.ID)
	assert.NoError(t, err)
}

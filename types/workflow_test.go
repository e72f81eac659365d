package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rasad8686/agentcore/types"
)

func TestTopologyTypeValid(t *testing.T) {
	t.Parallel()

	for _, tt := range []types.TopologyType{
		types.TopologySequential,
		types.TopologyParallel,
		types.TopologyConditional,
		types.TopologyMixed,
	} {
		assert.True(t, tt.Valid(), string(tt))
	}
	assert.False(t, types.TopologyType("").Valid())
	assert.False(t, types.TopologyType("ring").Valid())
}

func TestExecutionStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, types.ExecutionRunning.Terminal())
	assert.False(t, types.ExecutionPaused.Terminal())
	assert.True(t, types.ExecutionCompleted.Terminal())
	assert.True(t, types.ExecutionFailed.Terminal())
	assert.True(t, types.ExecutionCancelled.Terminal())
}

func TestMemoryTypeValid(t *testing.T) {
	t.Parallel()

	for _, mt := range []types.MemoryType{
		types.MemoryShortTerm,
		types.MemoryLongTerm,
		types.MemoryEpisodic,
		types.MemorySemantic,
		types.MemoryProcedural,
	} {
		assert.True(t, mt.Valid(), string(mt))
	}
	assert.False(t, types.MemoryType("eidetic").Valid())
}

func TestImportance(t *testing.T) {
	t.Parallel()

	assert.True(t, types.ImportanceLow.Valid())
	assert.True(t, types.ImportanceCritical.Valid())
	assert.False(t, types.Importance(0).Valid())
	assert.False(t, types.Importance(5).Valid())

	assert.Equal(t, "low", types.ImportanceLow.String())
	assert.Equal(t, "critical", types.ImportanceCritical.String())
	assert.Equal(t, "unknown", types.Importance(9).String())
}

package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasad8686/agentcore/testutil"
	"github.com/rasad8686/agentcore/workflow"
)

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	first := testutil.Echo("a", "one", 1)
	second := testutil.Echo("a", "two", 1)

	assert.True(t, reg.Register(first))
	assert.False(t, reg.Register(second))
	assert.Equal(t, 1, reg.Len())

	// The first registration wins.
	got, ok := reg.Resolve("a")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	_, ok := reg.Resolve("absent")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

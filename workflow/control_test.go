package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasad8686/agentcore/testutil"
	"github.com/rasad8686/agentcore/workflow"
)

func TestControllerGatePassesWhenRunning(t *testing.T) {
	t.Parallel()
	ctrl := workflow.NewController()
	require.NoError(t, ctrl.Gate(context.Background()))
}

func TestControllerPauseBlocksUntilResume(t *testing.T) {
	t.Parallel()
	ctrl := workflow.NewController()
	ctrl.Pause()

	released := make(chan error, 1)
	go func() {
		released <- ctrl.Gate(context.Background())
	}()

	select {
	case <-released:
		t.Fatal("gate released while paused")
	case <-time.After(50 * time.Millisecond):
	}

	ctrl.Resume()
	select {
	case err := <-released:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("gate did not release after resume")
	}
}

func TestControllerCancelReleasesGate(t *testing.T) {
	t.Parallel()
	ctrl := workflow.NewController()
	ctrl.Pause()

	released := make(chan error, 1)
	go func() {
		released <- ctrl.Gate(context.Background())
	}()

	ctrl.Cancel()
	select {
	case err := <-released:
		require.ErrorIs(t, err, workflow.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("gate did not release after cancel")
	}
	assert.True(t, ctrl.IsCancelled())
}

func TestControllerCancelIsIdempotent(t *testing.T) {
	t.Parallel()
	ctrl := workflow.NewController()
	ctrl.Cancel()
	ctrl.Cancel()
	assert.True(t, ctrl.IsCancelled())
}

func TestControllerGateHonorsContext(t *testing.T) {
	t.Parallel()
	ctrl := workflow.NewController()
	ctrl.Pause()
	err := ctrl.Gate(testutil.CancelledContext())
	require.ErrorIs(t, err, context.Canceled)
}

func TestControllerBind(t *testing.T) {
	t.Parallel()
	ctrl := workflow.NewController()
	assert.Equal(t, "", ctrl.ExecutionID())

	ctrl.Bind("exec-1")
	ctrl.Bind("exec-2")

	select {
	case <-ctrl.Bound():
	default:
		t.Fatal("Bound channel not closed after Bind")
	}
	assert.Equal(t, "exec-1", ctrl.ExecutionID())
}

package orchestrator_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasad8686/agentcore/orchestrator"
	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/testutil"
	"github.com/rasad8686/agentcore/types"
	"github.com/rasad8686/agentcore/workflow"
)

// blockingAgent holds every Execute call until released.
type blockingAgent struct {
	id      string
	release chan struct{}
}

func newBlockingAgent(id string) *blockingAgent {
	return &blockingAgent{id: id, release: make(chan struct{})}
}

func (a *blockingAgent) Spec() types.AgentSpec { return types.AgentSpec{ID: a.id, Name: a.id} }

func (a *blockingAgent) Execute(ctx context.Context, input any, ec *types.ExecutionContext) (*types.AgentResult, error) {
	select {
	case <-a.release:
		return &types.AgentResult{Success: true, Output: "released", TokensUsed: 1}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func fastOrchestratorConfig() orchestrator.Config {
	cfg := orchestrator.DefaultConfig()
	cfg.Engine.RetryDelay = time.Millisecond
	return cfg
}

func newOrchestrator(t *testing.T, loader types.AgentLoader, cfg orchestrator.Config) (*orchestrator.Orchestrator, *store.Store) {
	t.Helper()
	st := testutil.NewTestStore(t)
	return orchestrator.New(st, loader, cfg, nil), st
}

func TestCreateWorkflowValidation(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	o, _ := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	err := o.CreateWorkflow(ctx, &store.Workflow{})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
	assert.Contains(t, err.Error(), "Workflow name is required")

	err = o.CreateWorkflow(ctx, &store.Workflow{Name: "x", Topology: "ring"})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestCreateWorkflowDefaults(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	o, st := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	w := &store.Workflow{Name: "bare"}
	require.NoError(t, o.CreateWorkflow(ctx, w))

	got, err := st.GetWorkflow(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TopologySequential, got.Topology)
	assert.NotNil(t, got.Agents)
	assert.Empty(t, got.Agents)
	assert.Equal(t, "draft", got.Status)
}

func TestListWorkflowsByOwner(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	o, _ := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	require.NoError(t, o.CreateWorkflow(ctx, &store.Workflow{Name: "mine", OwnerID: "tenant-1"}))
	require.NoError(t, o.CreateWorkflow(ctx, &store.Workflow{Name: "theirs", OwnerID: "tenant-2"}))

	list, err := o.ListWorkflows(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Name)
}

func TestExecuteWorkflowEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)

	agent := testutil.Echo("solo", "done", 7)
	o, _ := newOrchestrator(t, testutil.NewLoader(agent), fastOrchestratorConfig())

	w := &store.Workflow{
		Name:     "single",
		Topology: types.TopologySequential,
		Agents:   []types.AgentBinding{{AgentID: "solo"}},
	}
	require.NoError(t, o.CreateWorkflow(ctx, w))

	res, err := o.ExecuteWorkflow(ctx, w.ID, "in", "tenant-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "done", res.Output)
	assert.Equal(t, 0, o.ActiveExecutions())
}

func TestConcurrencyCapRejectsExcessExecutions(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)

	agent := newBlockingAgent("slow")
	cfg := fastOrchestratorConfig()
	cfg.MaxConcurrentExecutions = 5
	o, _ := newOrchestrator(t, testutil.NewLoader(agent), cfg)

	w := &store.Workflow{
		Name:     "slow",
		Topology: types.TopologySequential,
		Agents:   []types.AgentBinding{{AgentID: "slow"}},
	}
	require.NoError(t, o.CreateWorkflow(ctx, w))

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id, err := o.StartWorkflow(ctx, w.ID, "in", "tenant-1")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, 5, o.ActiveExecutions())

	// The sixth concurrent execution is refused.
	_, err := o.StartWorkflow(ctx, w.ID, "in", "tenant-1")
	require.Error(t, err)
	assert.True(t, types.IsConcurrencyLimit(err))
	assert.Contains(t, err.Error(), "Maximum concurrent workflows reached")

	close(agent.release)
	require.Eventually(t, func() bool {
		return o.ActiveExecutions() == 0
	}, 5*time.Second, 10*time.Millisecond)

	// Capacity is reusable after completion.
	_, err = o.ExecuteWorkflow(ctx, w.ID, "in", "tenant-1")
	require.NoError(t, err)
	_ = ids
}

func TestFailedAdmissionsDoNotLeakGoroutines(t *testing.T) {
	ctx := testutil.TestContext(t)
	o, _ := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		_, err := o.ExecuteWorkflow(ctx, "no-such-workflow", "in", "tenant-1")
		require.Error(t, err)
		assert.True(t, types.IsNotFound(err))
	}
	assert.Equal(t, 0, o.ActiveExecutions())

	// Admissions that never bind must leave nothing running behind.
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+5
	}, 5*time.Second, 10*time.Millisecond)
}

func TestListExecutionsForWorkflow(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)

	agent := testutil.Echo("solo", "done", 1)
	o, _ := newOrchestrator(t, testutil.NewLoader(agent), fastOrchestratorConfig())

	w := &store.Workflow{
		Name:     "repeat",
		Topology: types.TopologySequential,
		Agents:   []types.AgentBinding{{AgentID: "solo"}},
	}
	require.NoError(t, o.CreateWorkflow(ctx, w))

	for i := 0; i < 2; i++ {
		_, err := o.ExecuteWorkflow(ctx, w.ID, "in", "tenant-1")
		require.NoError(t, err)
	}

	execs, err := o.ListExecutions(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, execs, 2)
	for _, ex := range execs {
		assert.Equal(t, types.ExecutionCompleted, ex.Status)
	}
}

func TestPauseResumeCancelUnknownExecution(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	o, _ := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	for _, op := range []func(context.Context, string) error{
		o.PauseExecution, o.ResumeExecution, o.CancelExecution,
	} {
		err := op(ctx, "no-such-exec")
		require.Error(t, err)
		assert.True(t, types.IsNotFound(err))
		assert.Contains(t, err.Error(), "Execution not found")
	}
}

func TestCancelRunningExecution(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)

	agent := newBlockingAgent("slow")
	o, st := newOrchestrator(t, testutil.NewLoader(agent), fastOrchestratorConfig())

	w := &store.Workflow{
		Name:     "cancellable",
		Topology: types.TopologySequential,
		Agents:   []types.AgentBinding{{AgentID: "slow"}},
	}
	require.NoError(t, o.CreateWorkflow(ctx, w))

	execID, err := o.StartWorkflow(ctx, w.ID, "in", "tenant-1")
	require.NoError(t, err)

	require.NoError(t, o.CancelExecution(ctx, execID))
	close(agent.release)

	require.Eventually(t, func() bool {
		return o.ActiveExecutions() == 0
	}, 5*time.Second, 10*time.Millisecond)

	got, err := st.GetExecution(ctx, execID)
	require.NoError(t, err)
	assert.Equal(t, types.ExecutionCancelled, got.Status)
}

func TestPauseHoldsNextStep(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)

	first := newBlockingAgent("first")
	second := testutil.Echo("second", "end", 1)
	o, st := newOrchestrator(t, testutil.NewLoader(first, second), fastOrchestratorConfig())

	w := &store.Workflow{
		Name:     "pausable",
		Topology: types.TopologySequential,
		Agents:   []types.AgentBinding{{AgentID: "first"}, {AgentID: "second"}},
	}
	require.NoError(t, o.CreateWorkflow(ctx, w))

	execID, err := o.StartWorkflow(ctx, w.ID, "in", "tenant-1")
	require.NoError(t, err)

	require.NoError(t, o.PauseExecution(ctx, execID))
	got, err := st.GetExecution(ctx, execID)
	require.NoError(t, err)
	assert.Equal(t, types.ExecutionPaused, got.Status)

	// The first step finishes but the paused gate blocks the second.
	close(first.release)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, second.Calls())

	require.NoError(t, o.ResumeExecution(ctx, execID))
	require.Eventually(t, func() bool {
		return o.ActiveExecutions() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, second.Calls())

	final, err := st.GetExecution(ctx, execID)
	require.NoError(t, err)
	assert.Equal(t, types.ExecutionCompleted, final.Status)
}

func TestAgentPoolAndMessaging(t *testing.T) {
	t.Parallel()
	o, _ := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	a := testutil.Echo("a", "x", 1)
	b := testutil.Echo("b", "y", 1)
	added := o.InitializeAgents(a, b)
	assert.Equal(t, 2, added)

	// Re-initialization is idempotent.
	assert.Equal(t, 0, o.InitializeAgents(a, b))
	assert.Equal(t, 2, o.PoolSize())

	msg, err := o.SendAgentMessage("a", "b", "please review")
	require.NoError(t, err)
	assert.Equal(t, "sent", msg.Status)
	assert.NotEmpty(t, msg.ID)

	msgs := o.GetAgentMessages("b")
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].From)
	assert.Equal(t, "please review", msgs[0].Content)
	assert.Empty(t, o.GetAgentMessages("a"))
}

func TestSendAgentMessageIsUnconditional(t *testing.T) {
	t.Parallel()
	o, _ := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	// The queue is append-only; neither side needs to be pooled.
	msg, err := o.SendAgentMessage("a", "ghost", "hello")
	require.NoError(t, err)
	assert.Equal(t, "sent", msg.Status)

	msgs := o.GetAgentMessages("ghost")
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestHandoffRequiresPooledAgents(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	o, _ := newOrchestrator(t, testutil.NewLoader(), fastOrchestratorConfig())

	o.InitializeAgents(testutil.Echo("a", "x", 1))

	_, err := o.HandoffToAgent(ctx, "a", "ghost", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "One or both agents not found in pool")

	o.InitializeAgents(testutil.Echo("b", "y", 1))
	h, err := o.HandoffToAgent(ctx, "a", "b", map[string]any{"ticket": "T-1"})
	require.NoError(t, err)
	assert.Equal(t, "pending", h.Status)
	assert.Equal(t, "a", h.FromAgentID)
	assert.Equal(t, "b", h.ToAgentID)
}

func TestEventBusReceivesEngineEvents(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)

	agent := testutil.Echo("solo", "done", 1)
	o, _ := newOrchestrator(t, testutil.NewLoader(agent), fastOrchestratorConfig())

	done := make(chan workflow.Event, 1)
	o.Bus().On(workflow.EventExecutionComplete, func(ev workflow.Event) {
		done <- ev
	})

	w := &store.Workflow{
		Name:     "evented",
		Topology: types.TopologySequential,
		Agents:   []types.AgentBinding{{AgentID: "solo"}},
	}
	require.NoError(t, o.CreateWorkflow(ctx, w))
	res, err := o.ExecuteWorkflow(ctx, w.ID, "in", "tenant-1")
	require.NoError(t, err)

	select {
	case ev := <-done:
		assert.Equal(t, res.ExecutionID, ev.ExecutionID)
	case <-time.After(time.Second):
		t.Fatal("no completion event received")
	}
}

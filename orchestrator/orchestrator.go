package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/internal/cache"
	"github.com/rasad8686/agentcore/internal/metrics"
	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
	"github.com/rasad8686/agentcore/workflow"
)

// Config tunes the orchestrator.
type Config struct {
	// MaxConcurrentExecutions caps executions admitted at the same time.
	MaxConcurrentExecutions int `yaml:"max_concurrent_executions" json:"max_concurrent_executions" env:"MAX_CONCURRENT_EXECUTIONS"`

	// StartTimeout bounds how long an async start waits for the engine to
	// create the execution record.
	StartTimeout time.Duration `yaml:"start_timeout" json:"start_timeout" env:"START_TIMEOUT"`

	Engine workflow.Config `yaml:"engine" json:"engine" env:"ENGINE"`
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentExecutions: 5,
		StartTimeout:            10 * time.Second,
		Engine:                  workflow.DefaultConfig(),
	}
}

// Orchestrator coordinates workflow definitions, their executions, and the
// agent pool.
type Orchestrator struct {
	store  *store.Store
	engine *workflow.Engine
	bus    *EventBus
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*workflow.Controller

	pool  *workflow.Registry
	post  *postOffice
	wfCch *cache.Workflows
}

// New creates an orchestrator over the durable store. The loader resolves
// workflow agent bindings at execution time; pooled agents registered via
// InitializeAgents take precedence over it.
func New(st *store.Store, loader types.AgentLoader, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxConcurrentExecutions <= 0 {
		cfg.MaxConcurrentExecutions = DefaultConfig().MaxConcurrentExecutions
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = DefaultConfig().StartTimeout
	}

	o := &Orchestrator{
		store:  st,
		bus:    NewEventBus(logger),
		cfg:    cfg,
		logger: logger.With(zap.String("component", "orchestrator")),
		active: make(map[string]*workflow.Controller),
		pool:   workflow.NewRegistry(),
		post:   newPostOffice(),
	}
	o.engine = workflow.NewEngine(st, &pooledLoader{pool: o.pool, fallback: loader}, cfg.Engine, logger)
	o.engine.SetEventSink(o.bus)
	return o
}

// Bus returns the lifecycle event bus for subscriptions.
func (o *Orchestrator) Bus() *EventBus { return o.bus }

// SetMetrics installs a metrics collector on the underlying engine.
func (o *Orchestrator) SetMetrics(c *metrics.Collector) { o.engine.SetMetrics(c) }

// SetWorkflowCache enables the read cache for workflow definitions.
func (o *Orchestrator) SetWorkflowCache(c *cache.Workflows) { o.wfCch = c }

// GetWorkflow reads a workflow definition, cache-aside when a cache is
// configured.
func (o *Orchestrator) GetWorkflow(ctx context.Context, workflowID string) (*store.Workflow, error) {
	if o.wfCch != nil {
		if w, ok := o.wfCch.Get(ctx, workflowID); ok {
			return w, nil
		}
	}
	w, err := o.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if o.wfCch != nil {
		o.wfCch.Set(ctx, w)
	}
	return w, nil
}

// ListWorkflows returns the workflows owned by ownerID, newest first.
func (o *Orchestrator) ListWorkflows(ctx context.Context, ownerID string) ([]store.Workflow, error) {
	return o.store.ListWorkflows(ctx, ownerID)
}

// CreateWorkflow validates and persists a workflow definition. Missing
// collections default to empty rather than failing.
func (o *Orchestrator) CreateWorkflow(ctx context.Context, w *store.Workflow) error {
	if w.Name == "" {
		return types.NewError(types.ErrCodeValidation, "Workflow name is required")
	}
	if w.Topology == "" {
		w.Topology = types.TopologySequential
	}
	if !w.Topology.Valid() {
		return types.NewErrorf(types.ErrCodeValidation, "invalid topology: %s", w.Topology)
	}
	if w.Agents == nil {
		w.Agents = []types.AgentBinding{}
	}
	if w.Status == "" {
		w.Status = "draft"
	}

	if err := o.store.CreateWorkflow(ctx, w); err != nil {
		return err
	}
	o.logger.Info("workflow created",
		zap.String("workflow_id", w.ID),
		zap.String("name", w.Name),
		zap.String("topology", string(w.Topology)),
	)
	return nil
}

// UpdateWorkflowStatus changes a definition's status and drops its cached
// copy.
func (o *Orchestrator) UpdateWorkflowStatus(ctx context.Context, workflowID, status string) error {
	if err := o.store.UpdateWorkflowStatus(ctx, workflowID, status); err != nil {
		return err
	}
	if o.wfCch != nil {
		o.wfCch.Invalidate(ctx, workflowID)
	}
	return nil
}

// DeleteWorkflow removes a definition and drops its cached copy.
func (o *Orchestrator) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if err := o.store.DeleteWorkflow(ctx, workflowID); err != nil {
		return err
	}
	if o.wfCch != nil {
		o.wfCch.Invalidate(ctx, workflowID)
	}
	return nil
}

// ExecuteWorkflow runs a workflow to completion, counting against the
// concurrency cap for its whole duration.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, workflowID string, input any, ownerID string) (*workflow.ExecutionResult, error) {
	ctrl := workflow.NewController()
	release, err := o.admit(ctrl)
	if err != nil {
		return nil, err
	}
	defer release()

	return o.engine.ExecuteControlled(ctx, workflowID, input, ownerID, ctrl)
}

// StartWorkflow launches a workflow asynchronously and returns its execution
// id once the execution record exists. The execution can then be paused,
// resumed, or cancelled by id while it runs.
func (o *Orchestrator) StartWorkflow(ctx context.Context, workflowID string, input any, ownerID string) (string, error) {
	ctrl := workflow.NewController()
	release, err := o.admit(ctrl)
	if err != nil {
		return "", err
	}

	go func() {
		defer release()
		runCtx := context.WithoutCancel(ctx)
		if _, err := o.engine.ExecuteControlled(runCtx, workflowID, input, ownerID, ctrl); err != nil {
			o.logger.Warn("async execution ended with error",
				zap.String("workflow_id", workflowID),
				zap.Error(err),
			)
		}
	}()

	select {
	case <-ctrl.Bound():
		return ctrl.ExecutionID(), nil
	case <-time.After(o.cfg.StartTimeout):
		ctrl.Cancel()
		return "", types.NewError(types.ErrCodeStepExecution, "execution did not start in time")
	case <-ctx.Done():
		ctrl.Cancel()
		return "", ctx.Err()
	}
}

// admit reserves a concurrency slot and tracks the controller. The returned
// release both frees the slot and deregisters the controller.
func (o *Orchestrator) admit(ctrl *workflow.Controller) (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.active) >= o.cfg.MaxConcurrentExecutions {
		return nil, types.NewError(types.ErrCodeConcurrencyLimit, "Maximum concurrent workflows reached")
	}

	// The execution id is unknown until the engine binds the controller, so
	// track under a placeholder; controller() re-keys on first lookup. No
	// goroutine waits on the bind: admissions that never bind (unknown
	// workflow, store error) leave nothing behind once released.
	placeholder := "pending:" + uuid.NewString()
	o.active[placeholder] = ctrl

	var once sync.Once
	release := func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.active, placeholder)
			if id := ctrl.ExecutionID(); id != "" {
				delete(o.active, id)
			}
			o.mu.Unlock()
		})
	}
	return release, nil
}

// PauseExecution freezes step dispatch of a running execution.
func (o *Orchestrator) PauseExecution(ctx context.Context, executionID string) error {
	ctrl, err := o.controller(executionID)
	if err != nil {
		return err
	}
	if err := o.store.UpdateExecutionStatus(ctx, executionID, types.ExecutionPaused); err != nil {
		return err
	}
	ctrl.Pause()
	o.logger.Info("execution paused", zap.String("execution_id", executionID))
	return nil
}

// ResumeExecution releases a paused execution.
func (o *Orchestrator) ResumeExecution(ctx context.Context, executionID string) error {
	ctrl, err := o.controller(executionID)
	if err != nil {
		return err
	}
	if err := o.store.UpdateExecutionStatus(ctx, executionID, types.ExecutionRunning); err != nil {
		return err
	}
	ctrl.Resume()
	o.logger.Info("execution resumed", zap.String("execution_id", executionID))
	return nil
}

// CancelExecution stops a running execution permanently. The cancelled
// status is persisted here; the engine observes the cancellation and stops
// dispatching steps without overwriting it.
func (o *Orchestrator) CancelExecution(ctx context.Context, executionID string) error {
	ctrl, err := o.controller(executionID)
	if err != nil {
		return err
	}
	if err := o.store.UpdateExecutionStatus(ctx, executionID, types.ExecutionCancelled); err != nil {
		return err
	}
	ctrl.Resume()
	ctrl.Cancel()
	o.logger.Info("execution cancelled", zap.String("execution_id", executionID))
	return nil
}

// GetExecution returns the persisted state of one execution.
func (o *Orchestrator) GetExecution(ctx context.Context, executionID string) (*store.WorkflowExecution, error) {
	return o.store.GetExecution(ctx, executionID)
}

// ListExecutions returns the persisted executions of a workflow, newest
// first.
func (o *Orchestrator) ListExecutions(ctx context.Context, workflowID string) ([]store.WorkflowExecution, error) {
	return o.store.ListExecutions(ctx, workflowID)
}

// ActiveExecutions returns the number of executions currently admitted.
func (o *Orchestrator) ActiveExecutions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

func (o *Orchestrator) controller(executionID string) (*workflow.Controller, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ctrl, ok := o.active[executionID]; ok {
		return ctrl, nil
	}
	// Bound controllers still sit under their admission placeholder until
	// first lookup; match on the bound id and re-key in place.
	for key, ctrl := range o.active {
		if ctrl.ExecutionID() == executionID {
			delete(o.active, key)
			o.active[executionID] = ctrl
			return ctrl, nil
		}
	}
	return nil, types.NewError(types.ErrCodeNotFound, "Execution not found")
}

package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rasad8686/agentcore/executor"
	"github.com/rasad8686/agentcore/internal/metrics"
	"github.com/rasad8686/agentcore/memory"
	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
)

// Config tunes the engine.
type Config struct {
	// MaxRetries is the total number of attempts per step.
	MaxRetries int `yaml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`

	// RetryDelay separates attempts unless a recovery directive supplies a
	// better wait (rate-limit waits, for example).
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" env:"RETRY_DELAY"`

	// TokenUnitPrice is the cost per 1000 tokens used in breakdowns.
	TokenUnitPrice float64 `yaml:"token_unit_price" json:"token_unit_price" env:"TOKEN_UNIT_PRICE"`

	// StepRateLimit caps agent invocations per second across the engine.
	// Zero disables the limiter.
	StepRateLimit float64 `yaml:"step_rate_limit" json:"step_rate_limit" env:"STEP_RATE_LIMIT"`
	StepRateBurst int     `yaml:"step_rate_burst" json:"step_rate_burst" env:"STEP_RATE_BURST"`

	// MaxTransitions bounds conditional routing against rule cycles.
	MaxTransitions int `yaml:"max_transitions" json:"max_transitions" env:"MAX_TRANSITIONS"`

	// MemoryEnabled lets agents consult their tiered memory before a step.
	MemoryEnabled bool          `yaml:"memory_enabled" json:"memory_enabled" env:"MEMORY_ENABLED"`
	Memory        memory.Config `yaml:"memory" json:"memory" env:"MEMORY"`

	Executor executor.Config `yaml:"executor" json:"executor" env:"EXECUTOR"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		RetryDelay:     time.Second,
		TokenUnitPrice: 0.002,
		MaxTransitions: 50,
		Memory:         memory.DefaultConfig(),
		Executor:       executor.DefaultConfig(),
	}
}

// Engine executes workflow definitions against their bound agents.
type Engine struct {
	store   *store.Store
	loader  types.AgentLoader
	events  EventSink
	metrics *metrics.Collector
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEngine creates an engine over the durable store and agent loader.
func NewEngine(st *store.Store, loader types.AgentLoader, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.TokenUnitPrice <= 0 {
		cfg.TokenUnitPrice = def.TokenUnitPrice
	}
	if cfg.MaxTransitions <= 0 {
		cfg.MaxTransitions = def.MaxTransitions
	}

	e := &Engine{
		store:  st,
		loader: loader,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "workflow_engine")),
	}
	if cfg.StepRateLimit > 0 {
		burst := cfg.StepRateBurst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.StepRateLimit), burst)
	}
	return e
}

// SetEventSink installs the lifecycle event sink. Nil disables emission.
func (e *Engine) SetEventSink(sink EventSink) { e.events = sink }

// SetMetrics installs the metrics collector. Nil disables collection.
func (e *Engine) SetMetrics(c *metrics.Collector) { e.metrics = c }

// run is the engine-private state of one execution.
type run struct {
	execID     string
	workflowID string
	wf         *store.Workflow
	ec         *types.ExecutionContext
	ctrl       *Controller
	agents     []*boundAgent
	byID       map[string]*boundAgent

	mu          sync.Mutex
	totalTokens int
	nextOrder   int
	usage       []*AgentUsage
	usageByID   map[string]*AgentUsage
}

// boundAgent is one resolved binding plus its execution-scoped context.
type boundAgent struct {
	binding types.AgentBinding
	agent   types.Agent
	exec    *executor.TaskExecutor
	mem     *memory.AgentMemory
}

func (r *run) allocOrder() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	order := r.nextOrder
	r.nextOrder++
	return order
}

func (r *run) addUsage(agentID string, tokens int, durationMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalTokens += tokens
	u, ok := r.usageByID[agentID]
	if !ok {
		u = &AgentUsage{AgentID: agentID}
		r.usageByID[agentID] = u
		r.usage = append(r.usage, u)
	}
	u.TokensUsed += tokens
	u.DurationMs += durationMs
}

func (r *run) tokens() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalTokens
}

func (r *run) breakdown(unitPrice float64) []AgentUsage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AgentUsage, 0, len(r.usage))
	for _, u := range r.usage {
		c := *u
		c.Cost = float64(c.TokensUsed) / 1000 * unitPrice
		out = append(out, c)
	}
	return out
}

// Execute runs a workflow to completion with a private controller.
func (e *Engine) Execute(ctx context.Context, workflowID string, input any, ownerID string) (*ExecutionResult, error) {
	return e.ExecuteControlled(ctx, workflowID, input, ownerID, NewController())
}

// ExecuteControlled runs a workflow under an externally owned controller,
// letting the caller pause, resume, or cancel step dispatch.
func (e *Engine) ExecuteControlled(ctx context.Context, workflowID string, input any, ownerID string, ctrl *Controller) (*ExecutionResult, error) {
	wf, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !wf.Topology.Valid() {
		return nil, types.NewErrorf(types.ErrCodeValidation, "invalid topology: %s", wf.Topology)
	}

	exec := &store.WorkflowExecution{
		WorkflowID: wf.ID,
		OwnerID:    ownerID,
		Status:     types.ExecutionRunning,
		Input:      input,
	}
	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return nil, err
	}
	ctrl.Bind(exec.ID)

	r := &run{
		execID:     exec.ID,
		workflowID: wf.ID,
		wf:         wf,
		ec:         types.NewExecutionContext(exec.ID, wf.ID),
		ctrl:       ctrl,
		byID:       make(map[string]*boundAgent),
		usageByID:  make(map[string]*AgentUsage),
	}

	start := time.Now()
	if err := e.resolveAgents(ctx, r); err != nil {
		return e.finishFailed(ctx, r, start, err)
	}
	if len(r.agents) == 0 {
		return e.finishFailed(ctx, r, start,
			types.NewError(types.ErrCodeValidation, "workflow has no executable agents"))
	}

	e.metrics.ExecutionStarted()
	e.emit(EventExecutionStart, exec.ID, wf.ID, "", "", map[string]any{"input": input})
	e.logger.Info("execution started",
		zap.String("execution_id", exec.ID),
		zap.String("workflow_id", wf.ID),
		zap.String("topology", string(wf.Topology)),
	)

	var output any
	switch wf.Topology {
	case types.TopologySequential:
		output, err = e.runSequential(ctx, r, input, r.agents)
	case types.TopologyParallel:
		output, err = e.runParallel(ctx, r, input, r.agents)
	case types.TopologyConditional:
		output, err = e.runConditional(ctx, r, input)
	case types.TopologyMixed:
		output, err = e.runMixed(ctx, r, input)
	}
	if err != nil {
		return e.finishFailed(ctx, r, start, err)
	}

	duration := time.Since(start)
	totalTokens := r.tokens()
	if err := e.store.CompleteExecution(ctx, exec.ID, output, totalTokens, duration); err != nil {
		// A cancel can land between the last step and completion; the guarded
		// UPDATE then refuses the terminal row. Keep the cancelled status
		// instead of reporting a failure.
		if cur, gerr := e.store.GetExecution(ctx, exec.ID); gerr == nil && cur.Status == types.ExecutionCancelled {
			return e.finishFailed(ctx, r, start, ErrCancelled)
		}
		return e.finishFailed(ctx, r, start, err)
	}

	breakdown := r.breakdown(e.cfg.TokenUnitPrice)
	e.emit(EventExecutionComplete, exec.ID, wf.ID, "", "", map[string]any{
		"output":       output,
		"total_tokens": totalTokens,
		"duration_ms":  duration.Milliseconds(),
		"breakdown":    breakdown,
	})
	e.metrics.ExecutionFinished(string(types.ExecutionCompleted), totalTokens)
	e.logger.Info("execution completed",
		zap.String("execution_id", exec.ID),
		zap.Int("total_tokens", totalTokens),
		zap.Duration("duration", duration),
	)

	return &ExecutionResult{
		ExecutionID:     exec.ID,
		WorkflowID:      wf.ID,
		Success:         true,
		Output:          output,
		TotalTokens:     totalTokens,
		Duration:        duration,
		Breakdown:       breakdown,
		ContextSnapshot: r.ec.Snapshot(),
	}, nil
}

// resolveAgents loads every bound agent into the run. Bindings whose agent
// no longer exists are skipped with a warning, not fatal.
func (e *Engine) resolveAgents(ctx context.Context, r *run) error {
	bindings := append([]types.AgentBinding(nil), r.wf.Agents...)
	if r.wf.Topology == types.TopologyMixed && r.wf.Flow != nil {
		for _, stage := range r.wf.Flow.Stages {
			bindings = append(bindings, stage.Agents...)
		}
	}

	for _, b := range bindings {
		if _, ok := r.byID[b.AgentID]; ok {
			continue
		}
		agent, err := e.loader.LoadAgent(ctx, b.AgentID)
		if err != nil {
			if types.IsNotFound(err) {
				e.logger.Warn("skipping binding, agent no longer exists",
					zap.String("agent_id", b.AgentID),
					zap.String("workflow_id", r.workflowID),
				)
				continue
			}
			return err
		}

		ba := &boundAgent{
			binding: b,
			agent:   agent,
			exec:    executor.New(b.AgentID, r.execID, e.store, e.cfg.Executor, e.logger),
		}
		if e.cfg.MemoryEnabled {
			ba.mem = memory.New(b.AgentID, e.store, e.cfg.Memory, e.logger)
		}
		r.agents = append(r.agents, ba)
		r.byID[b.AgentID] = ba
	}
	return nil
}

// finishFailed persists and emits an execution failure. Cancelled
// executions keep the status the canceller persisted; everything else is
// marked failed. The returned result always carries the context snapshot.
func (e *Engine) finishFailed(ctx context.Context, r *run, start time.Time, runErr error) (*ExecutionResult, error) {
	duration := time.Since(start)
	totalTokens := r.tokens()
	cancelled := errors.Is(runErr, ErrCancelled)

	if !cancelled {
		if err := e.store.FailExecution(ctx, r.execID, runErr.Error(), totalTokens, duration); err != nil {
			e.logger.Error("failed to persist execution failure",
				zap.String("execution_id", r.execID),
				zap.Error(err),
			)
		}
		e.emit(EventExecutionError, r.execID, r.workflowID, "", "", map[string]any{
			"error":       runErr.Error(),
			"duration_ms": duration.Milliseconds(),
		})
	}

	status := types.ExecutionFailed
	if cancelled {
		status = types.ExecutionCancelled
	}
	e.metrics.ExecutionFinished(string(status), totalTokens)
	e.logger.Warn("execution did not complete",
		zap.String("execution_id", r.execID),
		zap.String("status", string(status)),
		zap.Error(runErr),
	)

	return &ExecutionResult{
		ExecutionID:     r.execID,
		WorkflowID:      r.workflowID,
		Success:         false,
		Error:           runErr.Error(),
		TotalTokens:     totalTokens,
		Duration:        duration,
		ContextSnapshot: r.ec.Snapshot(),
	}, runErr
}

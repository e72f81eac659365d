package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rasad8686/agentcore/internal/database"
	"github.com/rasad8686/agentcore/types"
)

// Store is the gorm-backed durable store for workflows, executions, steps,
// memory records, handoffs, and executor state. It is the system of record;
// in-process caches elsewhere are performance-only.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New wraps a gorm database handle. The caller owns the handle's lifecycle.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "store")),
	}
}

// AutoMigrate creates or updates the schema for all store-owned models.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&Workflow{},
		&WorkflowExecution{},
		&ExecutionStep{},
		&MemoryRecord{},
		&Handoff{},
		&ExecutorState{},
	)
}

// DB exposes the underlying handle for transactional callers.
func (s *Store) DB() *gorm.DB { return s.db }

// =============================================================================
// Workflows
// =============================================================================

// CreateWorkflow persists a workflow definition, assigning an id when absent.
func (s *Store) CreateWorkflow(ctx context.Context, w *Workflow) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Agents == nil {
		w.Agents = []types.AgentBinding{}
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to create workflow").WithCause(err)
	}
	return nil
}

// GetWorkflow loads a workflow by id.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var w Workflow
	err := s.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrCodeNotFound, "Workflow not found")
	}
	if err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to load workflow").WithCause(err)
	}
	return &w, nil
}

// ListWorkflows returns the workflows owned by ownerID, newest first.
func (s *Store) ListWorkflows(ctx context.Context, ownerID string) ([]Workflow, error) {
	var out []Workflow
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to list workflows").WithCause(err)
	}
	return out, nil
}

// UpdateWorkflowStatus sets the definition-level status field.
func (s *Store) UpdateWorkflowStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).Model(&Workflow{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to update workflow status").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrCodeNotFound, "Workflow not found")
	}
	return nil
}

// DeleteWorkflow removes a workflow definition.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Workflow{}, "id = ?", id)
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to delete workflow").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrCodeNotFound, "Workflow not found")
	}
	return nil
}

// =============================================================================
// Executions
// =============================================================================

// CreateExecution persists a new execution row, assigning an id when absent.
func (s *Store) CreateExecution(ctx context.Context, e *WorkflowExecution) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = types.ExecutionRunning
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to create execution").WithCause(err)
	}
	return nil
}

// GetExecution loads an execution by id.
func (s *Store) GetExecution(ctx context.Context, id string) (*WorkflowExecution, error) {
	var e WorkflowExecution
	err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrCodeNotFound, "Execution not found")
	}
	if err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to load execution").WithCause(err)
	}
	return &e, nil
}

// UpdateExecutionStatus transitions a non-terminal execution to status.
// The non-terminal guard runs inside the UPDATE so a terminal row can never
// be mutated, even under concurrent transitions.
func (s *Store) UpdateExecutionStatus(ctx context.Context, id string, status types.ExecutionStatus) error {
	res := s.db.WithContext(ctx).Model(&WorkflowExecution{}).
		Where("id = ? AND status IN ?", id, []types.ExecutionStatus{types.ExecutionRunning, types.ExecutionPaused}).
		Update("status", status)
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to update execution status").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrCodeNotFound, "Execution not found")
	}
	return nil
}

// CompleteExecution marks an execution completed with its final output.
func (s *Store) CompleteExecution(ctx context.Context, id string, output any, totalTokens int, duration time.Duration) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&WorkflowExecution{}).
		Where("id = ? AND status IN ?", id, []types.ExecutionStatus{types.ExecutionRunning, types.ExecutionPaused}).
		Updates(map[string]any{
			"status":       types.ExecutionCompleted,
			"output":       output,
			"total_tokens": totalTokens,
			"duration_ms":  duration.Milliseconds(),
			"completed_at": &now,
		})
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to complete execution").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrCodeNotFound, "Execution not found")
	}
	return nil
}

// FailExecution marks an execution failed with the error message.
func (s *Store) FailExecution(ctx context.Context, id, errMsg string, totalTokens int, duration time.Duration) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&WorkflowExecution{}).
		Where("id = ? AND status IN ?", id, []types.ExecutionStatus{types.ExecutionRunning, types.ExecutionPaused}).
		Updates(map[string]any{
			"status":       types.ExecutionFailed,
			"error":        errMsg,
			"total_tokens": totalTokens,
			"duration_ms":  duration.Milliseconds(),
			"completed_at": &now,
		})
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to fail execution").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrCodeNotFound, "Execution not found")
	}
	return nil
}

// ListExecutions returns the executions of a workflow, newest first.
func (s *Store) ListExecutions(ctx context.Context, workflowID string) ([]WorkflowExecution, error) {
	var out []WorkflowExecution
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to list executions").WithCause(err)
	}
	return out, nil
}

// =============================================================================
// Steps
// =============================================================================

// CreateStep persists a new step row, assigning an id when absent.
func (s *Store) CreateStep(ctx context.Context, st *ExecutionStep) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Status == "" {
		st.Status = types.StepPending
	}
	if err := s.db.WithContext(ctx).Create(st).Error; err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to create step").WithCause(err)
	}
	return nil
}

// CompleteStep marks a step completed exactly once.
func (s *Store) CompleteStep(ctx context.Context, id string, output any, tokensUsed int, durationMs int64, attempts int) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&ExecutionStep{}).
		Where("id = ? AND status IN ?", id, []types.StepStatus{types.StepPending, types.StepRunning}).
		Updates(map[string]any{
			"status":       types.StepCompleted,
			"output":       output,
			"tokens_used":  tokensUsed,
			"duration_ms":  durationMs,
			"attempts":     attempts,
			"completed_at": &now,
		})
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to complete step").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrCodeNotFound, "Step not found")
	}
	return nil
}

// FailStep marks a step failed exactly once.
func (s *Store) FailStep(ctx context.Context, id, errMsg string, tokensUsed int, durationMs int64, attempts int) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&ExecutionStep{}).
		Where("id = ? AND status IN ?", id, []types.StepStatus{types.StepPending, types.StepRunning}).
		Updates(map[string]any{
			"status":       types.StepFailed,
			"error":        errMsg,
			"tokens_used":  tokensUsed,
			"duration_ms":  durationMs,
			"attempts":     attempts,
			"completed_at": &now,
		})
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to fail step").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrCodeNotFound, "Step not found")
	}
	return nil
}

// MarkStepRunning flips a pending step to running.
func (s *Store) MarkStepRunning(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&ExecutionStep{}).
		Where("id = ? AND status = ?", id, types.StepPending).
		Update("status", types.StepRunning)
	if res.Error != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to mark step running").WithCause(res.Error)
	}
	return nil
}

// ListSteps returns the steps of an execution in invocation order.
func (s *Store) ListSteps(ctx context.Context, executionID string) ([]ExecutionStep, error) {
	var out []ExecutionStep
	err := s.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("step_order ASC").
		Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to list steps").WithCause(err)
	}
	return out, nil
}

// =============================================================================
// Handoffs & executor state
// =============================================================================

// CreateHandoff persists a handoff record, assigning an id when absent.
func (s *Store) CreateHandoff(ctx context.Context, h *Handoff) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Status == "" {
		h.Status = "pending"
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to create handoff").WithCause(err)
	}
	return nil
}

// SaveExecutorState upserts the serialized working memory of one executor.
// The read-then-write runs in one transaction, retried on write contention,
// so concurrent saves for the same executor never race into duplicate rows.
func (s *Store) SaveExecutorState(ctx context.Context, executionID, agentID, state string) error {
	err := database.WithTransactionRetry(ctx, s.db, 3, s.logger, func(tx *gorm.DB) error {
		var existing ExecutorState
		err := tx.First(&existing, "execution_id = ? AND agent_id = ?", executionID, agentID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&ExecutorState{
				ID:          uuid.NewString(),
				ExecutionID: executionID,
				AgentID:     agentID,
				State:       state,
			}).Error
		case err != nil:
			return err
		}
		return tx.Model(&ExecutorState{}).
			Where("id = ?", existing.ID).
			Update("state", state).Error
	})
	if err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to save executor state").WithCause(err)
	}
	return nil
}

// LoadExecutorState loads the serialized working memory of one executor.
func (s *Store) LoadExecutorState(ctx context.Context, executionID, agentID string) (string, error) {
	var rec ExecutorState
	err := s.db.WithContext(ctx).
		First(&rec, "execution_id = ? AND agent_id = ?", executionID, agentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", types.NewError(types.ErrCodeNotFound, "Executor state not found")
	}
	if err != nil {
		return "", types.NewError(types.ErrCodeGeneric, "failed to load executor state").WithCause(err)
	}
	return rec.State, nil
}

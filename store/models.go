package store

import (
	"time"

	"github.com/rasad8686/agentcore/types"
)

// Workflow is a persisted workflow definition. Immutable once an execution
// has started; owned by its creator.
type Workflow struct {
	ID       string                 `gorm:"primaryKey;size:36" json:"id"`
	OwnerID  string                 `gorm:"size:36;index" json:"owner_id"`
	Name     string                 `gorm:"size:255;not null" json:"name"`
	Topology types.TopologyType     `gorm:"size:32;not null;default:sequential" json:"topology"`
	Agents   []types.AgentBinding   `gorm:"serializer:json" json:"agents"`
	Flow     *types.FlowConfig      `gorm:"serializer:json" json:"flow,omitempty"`
	Settings types.WorkflowSettings `gorm:"serializer:json" json:"settings"`
	Status   string                 `gorm:"size:32;not null;default:draft" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowExecution is one run of a Workflow. Mutated only by the engine
// and the orchestrator; terminal once completed, failed, or cancelled.
type WorkflowExecution struct {
	ID          string                `gorm:"primaryKey;size:36" json:"id"`
	WorkflowID  string                `gorm:"size:36;not null;index" json:"workflow_id"`
	OwnerID     string                `gorm:"size:36;index" json:"owner_id"`
	Status      types.ExecutionStatus `gorm:"size:32;not null;index" json:"status"`
	Input       any                   `gorm:"serializer:json" json:"input,omitempty"`
	Output      any                   `gorm:"serializer:json" json:"output,omitempty"`
	TotalTokens int                   `gorm:"default:0" json:"total_tokens"`
	DurationMs  int64                 `gorm:"default:0" json:"duration_ms"`
	Error       string                `gorm:"type:text" json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ExecutionStep is one agent invocation within an execution, including its
// retries. StepOrder is unique and monotonic within an execution; retries
// mutate Attempts, they never create new rows.
type ExecutionStep struct {
	ID          string                `gorm:"primaryKey;size:36" json:"id"`
	ExecutionID string                `gorm:"size:36;not null;uniqueIndex:idx_exec_step_order,priority:1;index" json:"execution_id"`
	AgentID     string                `gorm:"size:36;not null" json:"agent_id"`
	StepOrder   int                   `gorm:"not null;uniqueIndex:idx_exec_step_order,priority:2" json:"step_order"`
	Status      types.StepStatus      `gorm:"size:32;not null" json:"status"`
	Input       any                   `gorm:"serializer:json" json:"input,omitempty"`
	Output      any                   `gorm:"serializer:json" json:"output,omitempty"`
	Error       string                `gorm:"type:text" json:"error,omitempty"`
	TokensUsed  int                   `gorm:"default:0" json:"tokens_used"`
	DurationMs  int64                 `gorm:"default:0" json:"duration_ms"`
	Attempts    int                   `gorm:"default:0" json:"attempts"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MemoryRecord is one tiered memory entry owned by an agent. Content is
// always stored as a string; structured values are JSON-serialized at the
// memory layer before storage.
type MemoryRecord struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	AgentID     string           `gorm:"size:36;not null;index:idx_memory_agent_type,priority:1" json:"agent_id"`
	Type        types.MemoryType `gorm:"size:32;not null;index:idx_memory_agent_type,priority:2" json:"type"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	Importance  int              `gorm:"not null;default:2" json:"importance"`
	Tags        []string         `gorm:"serializer:json" json:"tags,omitempty"`
	Metadata    map[string]any   `gorm:"serializer:json" json:"metadata,omitempty"`
	Embedding   []float64        `gorm:"serializer:json" json:"embedding,omitempty"`
	AccessCount int              `gorm:"default:0" json:"access_count"`

	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Handoff records a transfer of control/context from one agent to another.
// The orchestrator persists the record; acting on it is a caller
// responsibility.
type Handoff struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	FromAgentID string         `gorm:"size:36;not null;index" json:"from_agent_id"`
	ToAgentID   string         `gorm:"size:36;not null;index" json:"to_agent_id"`
	Payload     map[string]any `gorm:"serializer:json" json:"payload,omitempty"`
	Status      string         `gorm:"size:32;not null;default:pending" json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

// ExecutorState is the serialized working memory of one TaskExecutor,
// persisted for resuming or auditing long-running executions.
type ExecutorState struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	ExecutionID string `gorm:"size:36;not null;uniqueIndex:idx_executor_state,priority:1" json:"execution_id"`
	AgentID     string `gorm:"size:36;not null;uniqueIndex:idx_executor_state,priority:2" json:"agent_id"`
	State       string `gorm:"type:text" json:"state"`

	UpdatedAt time.Time `json:"updated_at"`
}

package workflow

import (
	"encoding/json"
	"time"
)

// ParallelResultsKey is the combined-output key of parallel topologies and
// parallel stages: one entry per agent, in binding order.
const ParallelResultsKey = "parallelResults"

// StepResult is the outcome of one agent step, including its retries.
type StepResult struct {
	StepID     string `json:"step_id"`
	AgentID    string `json:"agent_id"`
	Success    bool   `json:"success"`
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	TokensUsed int    `json:"tokens_used"`
	DurationMs int64  `json:"duration_ms"`
	Attempts   int    `json:"attempts"`
}

// AgentUsage is the per-agent cost/duration/token breakdown attached to
// completion events.
type AgentUsage struct {
	AgentID    string  `json:"agent_id"`
	TokensUsed int     `json:"tokens_used"`
	DurationMs int64   `json:"duration_ms"`
	Cost       float64 `json:"cost"`
}

// ExecutionResult is the outcome of one workflow execution. The context
// snapshot is always present, success or not, for diagnostics.
type ExecutionResult struct {
	ExecutionID     string          `json:"execution_id"`
	WorkflowID      string          `json:"workflow_id"`
	Success         bool            `json:"success"`
	Output          any             `json:"output,omitempty"`
	Error           string          `json:"error,omitempty"`
	TotalTokens     int             `json:"total_tokens"`
	Duration        time.Duration   `json:"duration"`
	Breakdown       []AgentUsage    `json:"breakdown,omitempty"`
	ContextSnapshot json.RawMessage `json:"context_snapshot,omitempty"`
}

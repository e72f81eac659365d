package types

// TopologyType defines the execution shape of a workflow.
type TopologyType string

const (
	TopologySequential  TopologyType = "sequential"
	TopologyParallel    TopologyType = "parallel"
	TopologyConditional TopologyType = "conditional"
	TopologyMixed       TopologyType = "mixed"
)

// Valid reports whether t is one of the four defined topologies.
func (t TopologyType) Valid() bool {
	switch t {
	case TopologySequential, TopologyParallel, TopologyConditional, TopologyMixed:
		return true
	}
	return false
}

// ExecutionStatus is the lifecycle status of a WorkflowExecution.
// Valid transitions: running → paused ⇄ running → {completed|failed|cancelled}.
// Terminal statuses are immutable.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionPaused    ExecutionStatus = "paused"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	}
	return false
}

// StepStatus is the lifecycle status of an ExecutionStep.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// AgentBinding binds an agent into a workflow definition, optionally with
// per-binding invocation configuration. The engine surfaces a non-empty
// Config to the agent through the execution context under
// "config:<agent_id>" before each of its steps.
type AgentBinding struct {
	AgentID string         `json:"agent_id"`
	Config  map[string]any `json:"config,omitempty"`
}

// StageMode tags a mixed-topology stage as sequential or parallel.
type StageMode string

const (
	StageSequential StageMode = "sequential"
	StageParallel   StageMode = "parallel"
)

// Stage is one ordered group of agents within a mixed workflow. The
// combined output of a stage feeds the next stage's input.
type Stage struct {
	Name   string         `json:"name,omitempty"`
	Mode   StageMode      `json:"mode"`
	Agents []AgentBinding `json:"agents"`
}

// ConditionType identifies a structured routing condition.
type ConditionType string

const (
	ConditionEquals   ConditionType = "equals"
	ConditionContains ConditionType = "contains"
	ConditionDefault  ConditionType = "default"
)

// Condition gates a routing rule. A nil Condition always matches. When
// Match is set (and Type is empty) the condition is a case-sensitive
// substring test against the stringified step output. Otherwise Type/
// Field/Value describe a structured test against a named output field.
type Condition struct {
	Match string        `json:"match,omitempty"`
	Type  ConditionType `json:"type,omitempty"`
	Field string        `json:"field,omitempty"`
	Value any           `json:"value,omitempty"`
}

// RoutingRule routes a conditional workflow from one agent to the next.
// Rules are scanned in order; the first matching rule wins.
type RoutingRule struct {
	FromAgent   string     `json:"from_agent"`
	TargetAgent string     `json:"target_agent"`
	Condition   *Condition `json:"condition,omitempty"`
}

// FlowConfig carries the non-sequential flow configuration of a workflow:
// routing rules for conditional topologies, staged groups for mixed ones.
type FlowConfig struct {
	EntryAgent string        `json:"entry_agent,omitempty"`
	Rules      []RoutingRule `json:"rules,omitempty"`
	Stages     []Stage       `json:"stages,omitempty"`
}

// WorkflowSettings holds execution tunables persisted with the workflow.
// Zero values fall back to engine configuration defaults.
type WorkflowSettings struct {
	MaxRetries   int            `json:"max_retries,omitempty"`
	RetryDelayMs int            `json:"retry_delay_ms,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

package types

import (
	"encoding/json"
	"sync"
	"time"
)

// ExecutionContext is the transient, execution-scoped working state shared
// by the steps of one workflow execution: a key/value store, the current
// agent, and accumulated per-agent outputs. It lives only for the duration
// of one execution and is never shared across executions.
//
// All methods are safe for concurrent use; parallel stages read and write
// the context from multiple goroutines.
type ExecutionContext struct {
	mu           sync.RWMutex
	executionID  string
	workflowID   string
	values       map[string]any
	currentAgent string
	outputs      map[string]any
	startedAt    time.Time
}

// NewExecutionContext creates an empty context for one execution.
func NewExecutionContext(executionID, workflowID string) *ExecutionContext {
	return &ExecutionContext{
		executionID: executionID,
		workflowID:  workflowID,
		values:      make(map[string]any),
		outputs:     make(map[string]any),
		startedAt:   time.Now(),
	}
}

// ExecutionID returns the owning execution id.
func (ec *ExecutionContext) ExecutionID() string { return ec.executionID }

// WorkflowID returns the executed workflow id.
func (ec *ExecutionContext) WorkflowID() string { return ec.workflowID }

// Set stores a value under key.
func (ec *ExecutionContext) Set(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.values[key] = value
}

// Get retrieves a value by key.
func (ec *ExecutionContext) Get(key string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.values[key]
	return v, ok
}

// SetCurrentAgent records the agent whose step is currently running.
// Meaningful for strictly ordered topologies; parallel stages record only
// per-agent outputs.
func (ec *ExecutionContext) SetCurrentAgent(agentID string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.currentAgent = agentID
}

// CurrentAgent returns the agent recorded by SetCurrentAgent.
func (ec *ExecutionContext) CurrentAgent() string {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.currentAgent
}

// RecordOutput accumulates an agent's step output.
func (ec *ExecutionContext) RecordOutput(agentID string, output any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.outputs[agentID] = output
}

// Output returns the recorded output for an agent.
func (ec *ExecutionContext) Output(agentID string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.outputs[agentID]
	return v, ok
}

// contextSnapshot is the serialized form of an ExecutionContext.
type contextSnapshot struct {
	ExecutionID  string         `json:"execution_id"`
	WorkflowID   string         `json:"workflow_id"`
	CurrentAgent string         `json:"current_agent,omitempty"`
	Values       map[string]any `json:"values,omitempty"`
	Outputs      map[string]any `json:"outputs,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
}

// Snapshot returns a JSON-serializable copy of the context, used for error
// reporting and resume. Values that cannot be marshalled are replaced by
// their string form so a snapshot never fails outright.
func (ec *ExecutionContext) Snapshot() json.RawMessage {
	ec.mu.RLock()
	snap := contextSnapshot{
		ExecutionID:  ec.executionID,
		WorkflowID:   ec.workflowID,
		CurrentAgent: ec.currentAgent,
		Values:       cloneJSONSafe(ec.values),
		Outputs:      cloneJSONSafe(ec.outputs),
		StartedAt:    ec.startedAt,
	}
	ec.mu.RUnlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		raw, _ = json.Marshal(contextSnapshot{
			ExecutionID: snap.ExecutionID,
			WorkflowID:  snap.WorkflowID,
			StartedAt:   snap.StartedAt,
		})
	}
	return raw
}

func cloneJSONSafe(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if _, err := json.Marshal(v); err != nil {
			out[k] = Stringify(v)
			continue
		}
		out[k] = v
	}
	return out
}

// Stringify renders an arbitrary value as a string: strings pass through,
// everything else is JSON-encoded (falling back to fmt-style rendering for
// unmarshalable values).
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "<unserializable>"
	}
	return string(raw)
}

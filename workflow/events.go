package workflow

import "time"

// EventType identifies a workflow lifecycle event.
type EventType string

const (
	EventExecutionStart    EventType = "execution_start"
	EventExecutionComplete EventType = "execution_complete"
	EventExecutionError    EventType = "execution_error"
	EventStepStart         EventType = "step_start"
	EventStepComplete      EventType = "step_complete"
	EventStepFailed        EventType = "step_failed"
)

// Event carries the fixed payload of one lifecycle event. Step events for
// concurrently running agents may interleave across agents but never
// within a single agent's own step.
type Event struct {
	Type        EventType      `json:"type"`
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	AgentID     string         `json:"agent_id,omitempty"`
	StepID      string         `json:"step_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// EventSink receives lifecycle events. A nil sink turns all emission into
// no-ops. Implementations must isolate their own subscriber failures; the
// engine never handles them.
type EventSink interface {
	Emit(event Event)
}

// emit sends an event through the sink when one is configured.
func (e *Engine) emit(eventType EventType, executionID, workflowID, agentID, stepID string, payload map[string]any) {
	if e.events == nil {
		return
	}
	e.events.Emit(Event{
		Type:        eventType,
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		AgentID:     agentID,
		StepID:      stepID,
		Payload:     payload,
		Timestamp:   time.Now(),
	})
}

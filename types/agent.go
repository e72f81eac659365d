package types

import "context"

// AgentSpec is the binding-time view of an agent: identity plus
// provider-agnostic invocation parameters. The engine treats the agent
// itself as an opaque capability behind the Agent interface.
type AgentSpec struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         string   `json:"role,omitempty"`
	Temperature  float64  `json:"temperature,omitempty"`
	MaxSteps     int      `json:"max_steps,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// AgentResult is the uniform outcome of one agent invocation.
type AgentResult struct {
	Success    bool   `json:"success"`
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// Agent is the capability contract supplied per agent binding. The engine
// only sequences, retries, and remembers; it never generates text itself.
type Agent interface {
	// Spec returns the agent's binding-time view.
	Spec() AgentSpec

	// Execute performs one unit of agent work. A nil result with a nil
	// error is treated as a failed invocation.
	Execute(ctx context.Context, input any, ec *ExecutionContext) (*AgentResult, error)
}

// AgentLoader resolves agent ids to live capabilities. Supplied by the
// surrounding application; agents that no longer exist return a NOT_FOUND
// error.
type AgentLoader interface {
	LoadAgent(ctx context.Context, agentID string) (Agent, error)
}

package testutil

import (
	"context"
	"sync"

	"github.com/rasad8686/agentcore/types"
)

// ScriptStep is one scripted response of a ScriptedAgent. Steps are
// consumed in order; the last step repeats once the script runs out.
type ScriptStep struct {
	Output any
	Err    error
	// Fail makes the agent return an unsuccessful result with Error.
	Fail   bool
	Error  string
	Tokens int
}

// ScriptedAgent is a deterministic agent for tests. It records every input
// it sees and replays its scripted steps.
type ScriptedAgent struct {
	spec  types.AgentSpec
	steps []ScriptStep

	mu     sync.Mutex
	calls  int
	inputs []any
}

// NewScriptedAgent creates an agent with the given id and script.
func NewScriptedAgent(id string, steps ...ScriptStep) *ScriptedAgent {
	if len(steps) == 0 {
		steps = []ScriptStep{{Output: "ok", Tokens: 10}}
	}
	return &ScriptedAgent{
		spec:  types.AgentSpec{ID: id, Name: id, Role: "test"},
		steps: steps,
	}
}

// Echo creates an agent that succeeds and returns output with tokens used.
func Echo(id string, output any, tokens int) *ScriptedAgent {
	return NewScriptedAgent(id, ScriptStep{Output: output, Tokens: tokens})
}

// Spec implements types.Agent.
func (a *ScriptedAgent) Spec() types.AgentSpec { return a.spec }

// Execute implements types.Agent.
func (a *ScriptedAgent) Execute(ctx context.Context, input any, ec *types.ExecutionContext) (*types.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	idx := a.calls
	if idx >= len(a.steps) {
		idx = len(a.steps) - 1
	}
	step := a.steps[idx]
	a.calls++
	a.inputs = append(a.inputs, input)
	a.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}
	if step.Fail {
		return &types.AgentResult{Success: false, Error: step.Error, TokensUsed: step.Tokens}, nil
	}
	return &types.AgentResult{Success: true, Output: step.Output, TokensUsed: step.Tokens}, nil
}

// Calls returns how many times the agent was executed.
func (a *ScriptedAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Inputs returns a copy of every input the agent received, in order.
func (a *ScriptedAgent) Inputs() []any {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]any, len(a.inputs))
	copy(out, a.inputs)
	return out
}

// Loader is an in-memory types.AgentLoader over a fixed agent set.
type Loader struct {
	mu     sync.RWMutex
	agents map[string]types.Agent
}

// NewLoader creates a loader over the given agents.
func NewLoader(agents ...types.Agent) *Loader {
	l := &Loader{agents: make(map[string]types.Agent)}
	for _, a := range agents {
		l.agents[a.Spec().ID] = a
	}
	return l
}

// Add registers another agent.
func (l *Loader) Add(agent types.Agent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.agents[agent.Spec().ID] = agent
}

// LoadAgent implements types.AgentLoader.
func (l *Loader) LoadAgent(ctx context.Context, agentID string) (types.Agent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.agents[agentID]
	if !ok {
		return nil, types.NewErrorf(types.ErrCodeNotFound, "agent %s not found", agentID)
	}
	return a, nil
}

package workflow

import (
	"sync"

	"github.com/rasad8686/agentcore/types"
)

// Registry is a concurrency-safe capability registry: live agents keyed by
// agent id. The orchestrator pools initialized agents in one so workflow
// bindings resolve without a loader round trip.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]types.Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]types.Agent)}
}

// Register adds an agent under its spec id. Idempotent: returns false when
// an agent is already registered under that id.
func (r *Registry) Register(agent types.Agent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := agent.Spec().ID
	if _, ok := r.agents[id]; ok {
		return false
	}
	r.agents[id] = agent
	return true
}

// Resolve returns the registered agent for an id.
func (r *Registry) Resolve(agentID string) (types.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	return a, ok
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

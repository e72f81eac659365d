package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
	"github.com/rasad8686/agentcore/workflow"
)

// pooledLoader resolves pooled agents without a round trip; missing pool
// entries defer to the fallback loader.
type pooledLoader struct {
	pool     *workflow.Registry
	fallback types.AgentLoader
}

func (l *pooledLoader) LoadAgent(ctx context.Context, agentID string) (types.Agent, error) {
	if a, ok := l.pool.Resolve(agentID); ok {
		return a, nil
	}
	if l.fallback != nil {
		return l.fallback.LoadAgent(ctx, agentID)
	}
	return nil, types.NewErrorf(types.ErrCodeNotFound, "agent %s not found", agentID)
}

// InitializeAgents registers agents into the pool. Already-registered ids
// are left untouched; the count of newly registered agents is returned.
func (o *Orchestrator) InitializeAgents(agents ...types.Agent) int {
	added := 0
	for _, a := range agents {
		if a == nil {
			continue
		}
		if o.pool.Register(a) {
			added++
		}
	}
	o.logger.Info("agents initialized",
		zap.Int("added", added),
		zap.Int("pool_size", o.pool.Len()),
	)
	return added
}

// PoolSize returns the number of pooled agents.
func (o *Orchestrator) PoolSize() int { return o.pool.Len() }

// AgentMessage is one message between agents.
type AgentMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   any       `json:"content"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// postOffice queues messages per recipient, in arrival order.
type postOffice struct {
	mu     sync.Mutex
	queues map[string][]AgentMessage
}

func newPostOffice() *postOffice {
	return &postOffice{queues: make(map[string][]AgentMessage)}
}

// SendAgentMessage appends a message to the recipient's queue and returns
// it. Sender and recipient need not be pooled; the queue is append-only.
func (o *Orchestrator) SendAgentMessage(from, to string, content any) (*AgentMessage, error) {
	msg := AgentMessage{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Content:   content,
		Status:    "sent",
		Timestamp: time.Now(),
	}
	o.post.mu.Lock()
	o.post.queues[to] = append(o.post.queues[to], msg)
	o.post.mu.Unlock()

	o.logger.Debug("agent message queued",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("message_id", msg.ID),
	)
	return &msg, nil
}

// GetAgentMessages returns a copy of the recipient's queued messages, oldest
// first. The queue is not drained.
func (o *Orchestrator) GetAgentMessages(agentID string) []AgentMessage {
	o.post.mu.Lock()
	defer o.post.mu.Unlock()
	queue := o.post.queues[agentID]
	out := make([]AgentMessage, len(queue))
	copy(out, queue)
	return out
}

// HandoffToAgent records a durable transfer of control between two pooled
// agents. Both must be in the pool; the persisted record starts pending.
func (o *Orchestrator) HandoffToAgent(ctx context.Context, fromAgent, toAgent string, payload map[string]any) (*store.Handoff, error) {
	_, fromOK := o.pool.Resolve(fromAgent)
	_, toOK := o.pool.Resolve(toAgent)
	if !fromOK || !toOK {
		return nil, types.NewError(types.ErrCodeNotFound, "One or both agents not found in pool")
	}

	h := &store.Handoff{
		FromAgentID: fromAgent,
		ToAgentID:   toAgent,
		Payload:     payload,
	}
	if err := o.store.CreateHandoff(ctx, h); err != nil {
		return nil, err
	}
	o.logger.Info("agent handoff recorded",
		zap.String("from", fromAgent),
		zap.String("to", toAgent),
		zap.String("handoff_id", h.ID),
	)
	return h, nil
}

package executor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rasad8686/agentcore/types"
)

// RelevantContext is the assembled context an agent consults before acting.
type RelevantContext struct {
	RecentHistory    []MemoryEntry  `json:"recent_history,omitempty"`
	RelevantLongTerm map[string]any `json:"relevant_long_term,omitempty"`
	WorkingMemory    map[string]any `json:"working_memory,omitempty"`
}

// recentHistorySize is the short-term tail returned by GetRelevantContext.
const recentHistorySize = 5

// GetRelevantContext returns the recent short-term tail, the long-term
// entries whose key or value textually matches query, and a copy of the
// working memory.
func (e *TaskExecutor) GetRelevantContext(query string) RelevantContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	tail := e.shortTerm
	if len(tail) > recentHistorySize {
		tail = tail[len(tail)-recentHistorySize:]
	}
	recent := make([]MemoryEntry, len(tail))
	copy(recent, tail)

	relevant := make(map[string]any)
	for key, ent := range e.longTerm {
		if query == "" {
			continue
		}
		if strings.Contains(key, query) || strings.Contains(types.Stringify(ent.Value), query) {
			ent.AccessCount++
			relevant[key] = ent.Value
		}
	}

	working := make(map[string]any, len(e.working))
	for k, v := range e.working {
		working[k] = v
	}

	return RelevantContext{
		RecentHistory:    recent,
		RelevantLongTerm: relevant,
		WorkingMemory:    working,
	}
}

// persistedState is the serialized form of the executor's durable context.
type persistedState struct {
	ShortTerm []MemoryEntry             `json:"short_term"`
	LongTerm  map[string]*longTermEntry `json:"long_term"`
}

// PersistMemory serializes the short-term list and long-term map to the
// execution's durable store, for resuming or auditing long runs.
func (e *TaskExecutor) PersistMemory(ctx context.Context) error {
	if e.store == nil {
		return types.NewError(types.ErrCodeValidation, "executor has no store configured")
	}

	e.mu.Lock()
	state := persistedState{
		ShortTerm: append([]MemoryEntry(nil), e.shortTerm...),
		LongTerm:  make(map[string]*longTermEntry, len(e.longTerm)),
	}
	for k, v := range e.longTerm {
		entry := *v
		state.LongTerm[k] = &entry
	}
	e.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to serialize executor state").WithCause(err)
	}
	return e.store.SaveExecutorState(ctx, e.executionID, e.agentID, string(raw))
}

// LoadMemory restores the short-term list and long-term map from the
// durable store, replacing the in-process state.
func (e *TaskExecutor) LoadMemory(ctx context.Context) error {
	if e.store == nil {
		return types.NewError(types.ErrCodeValidation, "executor has no store configured")
	}

	raw, err := e.store.LoadExecutorState(ctx, e.executionID, e.agentID)
	if err != nil {
		return err
	}

	var state persistedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to deserialize executor state").WithCause(err)
	}

	e.mu.Lock()
	e.shortTerm = state.ShortTerm
	if state.LongTerm != nil {
		e.longTerm = state.LongTerm
	} else {
		e.longTerm = make(map[string]*longTermEntry)
	}
	e.mu.Unlock()
	return nil
}

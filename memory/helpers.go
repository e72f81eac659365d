package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
)

// Episode summarizes one completed task for episodic recall.
type Episode struct {
	TaskID    string   `json:"task_id"`
	Summary   string   `json:"summary"`
	Steps     []string `json:"steps,omitempty"`
	Outcome   string   `json:"outcome"`
	Learnings []string `json:"learnings,omitempty"`
}

// CreateEpisode stores an episodic record tagged with the episode marker
// and its outcome. Failure outcomes are stored at high importance so they
// outlive routine successes.
func (m *AgentMemory) CreateEpisode(ctx context.Context, taskID string, ep Episode) (*store.MemoryRecord, error) {
	ep.TaskID = taskID

	importance := types.ImportanceMedium
	if ep.Outcome == "failure" || ep.Outcome == "failed" {
		importance = types.ImportanceHigh
	}

	return m.Store(ctx, ep, StoreOptions{
		Type:       types.MemoryEpisodic,
		Importance: importance,
		Tags:       []string{"episode", ep.Outcome},
		Metadata:   map[string]any{"task_id": taskID},
	})
}

// Procedure is a named, versioned step sequence.
type Procedure struct {
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Steps   []string `json:"steps"`
}

// StoreProcedure stores a procedure as a procedural record, always at high
// importance. Storing under an existing name creates a new version; the
// highest version wins on lookup.
func (m *AgentMemory) StoreProcedure(ctx context.Context, name string, steps []string) (*store.MemoryRecord, error) {
	if name == "" {
		return nil, types.NewError(types.ErrCodeValidation, "procedure name is required")
	}

	latest, err := m.GetProcedure(ctx, name)
	version := 1
	if err == nil && latest != nil {
		version = latest.Version + 1
	} else if err != nil && !types.IsNotFound(err) {
		return nil, err
	}

	proc := Procedure{Name: name, Version: version, Steps: steps}
	return m.Store(ctx, proc, StoreOptions{
		Type:       types.MemoryProcedural,
		Importance: types.ImportanceHigh,
		Tags:       []string{"procedure", name},
		Metadata:   map[string]any{"name": name, "version": version},
	})
}

// GetProcedure returns the latest version of a named procedure.
func (m *AgentMemory) GetProcedure(ctx context.Context, name string) (*Procedure, error) {
	records, err := m.store.SearchMemory(ctx, m.agentID, store.MemoryQuery{
		Type: types.MemoryProcedural,
		Tags: []string{"procedure", name},
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, types.NewErrorf(types.ErrCodeNotFound, "procedure %q not found", name)
	}

	var latest *Procedure
	for _, rec := range records {
		var proc Procedure
		if err := json.Unmarshal([]byte(rec.Content), &proc); err != nil {
			continue
		}
		if latest == nil || proc.Version > latest.Version {
			p := proc
			latest = &p
		}
	}
	if latest == nil {
		return nil, types.NewErrorf(types.ErrCodeNotFound, "procedure %q not found", name)
	}
	return latest, nil
}

// Fact is a subject/predicate/object triple with a confidence score.
type Fact struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// StoreFact stores a fact triple as a semantic record tagged by subject.
func (m *AgentMemory) StoreFact(ctx context.Context, fact Fact) (*store.MemoryRecord, error) {
	if fact.Subject == "" {
		return nil, types.NewError(types.ErrCodeValidation, "fact subject is required")
	}
	if fact.Confidence == 0 {
		fact.Confidence = 1
	}

	return m.Store(ctx, fact, StoreOptions{
		Type:       types.MemorySemantic,
		Importance: types.ImportanceMedium,
		Tags:       []string{"fact", fact.Subject},
		Metadata:   map[string]any{"confidence": fact.Confidence},
	})
}

// QueryFacts returns the known facts about a subject.
func (m *AgentMemory) QueryFacts(ctx context.Context, subject string) ([]Fact, error) {
	records, err := m.store.SearchMemory(ctx, m.agentID, store.MemoryQuery{
		Type: types.MemorySemantic,
		Tags: []string{"fact", subject},
	})
	if err != nil {
		return nil, err
	}

	facts := make([]Fact, 0, len(records))
	for _, rec := range records {
		var f Fact
		if err := json.Unmarshal([]byte(rec.Content), &f); err != nil {
			continue
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// ForgetOptions selects records for deletion. Zero values fall back to the
// defaults: older than 30 days, importance at most low, accessed at most
// twice, procedural records excluded.
type ForgetOptions struct {
	OlderThanDays int
	MaxImportance types.Importance
	MaxAccess     int
	ExcludeTypes  []types.MemoryType
}

// Forget deletes low-importance, low-access, sufficiently old records.
// Returns the number deleted.
func (m *AgentMemory) Forget(ctx context.Context, opts ForgetOptions) (int64, error) {
	if opts.OlderThanDays <= 0 {
		opts.OlderThanDays = 30
	}
	if opts.MaxImportance == 0 {
		opts.MaxImportance = types.ImportanceLow
	}
	if opts.MaxAccess <= 0 {
		opts.MaxAccess = 2
	}
	if opts.ExcludeTypes == nil {
		opts.ExcludeTypes = []types.MemoryType{types.MemoryProcedural}
	}

	cutoff := time.Now().AddDate(0, 0, -opts.OlderThanDays)
	deleted, err := m.store.ForgetMemories(ctx, m.agentID, store.ForgetCriteria{
		OlderThan:     cutoff,
		MaxImportance: opts.MaxImportance,
		MaxAccess:     opts.MaxAccess,
		ExcludeTypes:  opts.ExcludeTypes,
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		// Drop cache entries matching the same criteria so the cache never
		// outlives the durable rows.
		m.mu.Lock()
		kept := m.cache[:0]
		for _, rec := range m.cache {
			old := rec.CreatedAt.Before(cutoff)
			if old && rec.Importance <= int(opts.MaxImportance) && rec.AccessCount <= opts.MaxAccess {
				continue
			}
			kept = append(kept, rec)
		}
		m.cache = kept
		m.mu.Unlock()
	}

	return deleted, nil
}

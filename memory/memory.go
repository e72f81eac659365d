package memory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
)

// Config tunes one agent's memory behaviour.
type Config struct {
	// ShortTermCapacity caps the in-process short-term cache. The cache
	// never exceeds this size after any insert.
	ShortTermCapacity int `yaml:"short_term_capacity" json:"short_term_capacity" env:"SHORT_TERM_CAPACITY"`

	// SimilarityThreshold is the default cutoff for RetrieveSimilar.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`

	// ConsolidateMinImportance promotes short-term records at or above this
	// ordinal to long-term storage.
	ConsolidateMinImportance types.Importance `yaml:"consolidate_min_importance" json:"consolidate_min_importance" env:"CONSOLIDATE_MIN_IMPORTANCE"`

	// ConsolidateMinAccess promotes short-term records accessed at least
	// this many times.
	ConsolidateMinAccess int `yaml:"consolidate_min_access" json:"consolidate_min_access" env:"CONSOLIDATE_MIN_ACCESS"`
}

// DefaultConfig returns the memory defaults.
func DefaultConfig() Config {
	return Config{
		ShortTermCapacity:        50,
		SimilarityThreshold:      0.7,
		ConsolidateMinImportance: types.ImportanceHigh,
		ConsolidateMinAccess:     4,
	}
}

// AgentMemory is one agent's tiered memory store. The durable store is the
// system of record; the short-term cache is performance-only.
type AgentMemory struct {
	agentID string
	store   *store.Store
	cfg     Config
	logger  *zap.Logger

	mu    sync.Mutex
	cache []*store.MemoryRecord // short-term tier, insertion order
}

// New creates the memory system for one agent.
func New(agentID string, st *store.Store, cfg Config, logger *zap.Logger) *AgentMemory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShortTermCapacity <= 0 {
		cfg.ShortTermCapacity = DefaultConfig().ShortTermCapacity
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultConfig().SimilarityThreshold
	}
	if cfg.ConsolidateMinImportance <= 0 {
		cfg.ConsolidateMinImportance = DefaultConfig().ConsolidateMinImportance
	}
	if cfg.ConsolidateMinAccess <= 0 {
		cfg.ConsolidateMinAccess = DefaultConfig().ConsolidateMinAccess
	}
	return &AgentMemory{
		agentID: agentID,
		store:   st,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "agent_memory"), zap.String("agent_id", agentID)),
	}
}

// StoreOptions classifies a stored memory.
type StoreOptions struct {
	Type       types.MemoryType
	Importance types.Importance
	Tags       []string
	Metadata   map[string]any
	Embedding  []float64
}

// Store persists a memory record. Non-string content is JSON-serialized
// before storage. Short-term records are additionally cached in-process and
// the cache capacity is enforced immediately.
func (m *AgentMemory) Store(ctx context.Context, content any, opts StoreOptions) (*store.MemoryRecord, error) {
	memType := opts.Type
	if memType == "" {
		memType = types.MemoryShortTerm
	}
	if !memType.Valid() {
		return nil, types.NewErrorf(types.ErrCodeValidation, "invalid memory type: %s", memType)
	}
	importance := opts.Importance
	if importance == 0 {
		importance = types.ImportanceMedium
	}
	if !importance.Valid() {
		return nil, types.NewErrorf(types.ErrCodeValidation, "invalid importance: %d", importance)
	}

	rec := &store.MemoryRecord{
		AgentID:    m.agentID,
		Type:       memType,
		Content:    types.Stringify(content),
		Importance: int(importance),
		Tags:       opts.Tags,
		Metadata:   opts.Metadata,
		Embedding:  opts.Embedding,
	}
	if err := m.store.CreateMemory(ctx, rec); err != nil {
		return nil, err
	}

	if memType == types.MemoryShortTerm {
		m.mu.Lock()
		cached := *rec
		m.cache = append(m.cache, &cached)
		evicted := m.enforceCapacityLocked()
		m.mu.Unlock()

		if len(evicted) > 0 {
			if err := m.store.DeleteMemories(ctx, evicted); err != nil {
				return nil, err
			}
			m.logger.Debug("evicted short-term memory", zap.Int("count", len(evicted)))
		}
	}

	return rec, nil
}

// RetrieveOptions filters Retrieve.
type RetrieveOptions struct {
	Type          types.MemoryType
	MinImportance types.Importance
	Tags          []string
	Limit         int
}

// Retrieve performs a filtered text search ordered by importance, access
// count, and recency, all descending. Every returned record's access
// counter is incremented as a side effect.
func (m *AgentMemory) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]store.MemoryRecord, error) {
	records, err := m.store.SearchMemory(ctx, m.agentID, store.MemoryQuery{
		Query:         query,
		Type:          opts.Type,
		MinImportance: opts.MinImportance,
		Tags:          opts.Tags,
		Limit:         opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
		records[i].AccessCount++
	}
	if err := m.store.IncrementAccess(ctx, ids); err != nil {
		return nil, err
	}
	m.touchCached(ids)

	return records, nil
}

// SimilarOptions filters RetrieveSimilar. A zero Threshold falls back to
// the configured default.
type SimilarOptions struct {
	Type      types.MemoryType
	Threshold float64
	Limit     int
}

// SimilarResult pairs a record with its similarity to the query vector.
type SimilarResult struct {
	Record     store.MemoryRecord
	Similarity float64
}

// RetrieveSimilar scores every embedded candidate against the query vector
// by cosine similarity, discards candidates below the threshold, and
// returns the top Limit by similarity descending.
func (m *AgentMemory) RetrieveSimilar(ctx context.Context, embedding []float64, opts SimilarOptions) ([]SimilarResult, error) {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = m.cfg.SimilarityThreshold
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	candidates, err := m.store.ListEmbedded(ctx, m.agentID, opts.Type)
	if err != nil {
		return nil, err
	}

	results := make([]SimilarResult, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(embedding, c.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, SimilarResult{Record: c, Similarity: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit < len(results) {
		results = results[:limit]
	}

	if len(results) > 0 {
		ids := make([]string, len(results))
		for i := range results {
			ids[i] = results[i].Record.ID
			results[i].Record.AccessCount++
		}
		if err := m.store.IncrementAccess(ctx, ids); err != nil {
			return nil, err
		}
		m.touchCached(ids)
	}

	return results, nil
}

// Consolidate promotes significant short-term records to long-term storage:
// importance at or above the configured ordinal, or access count at or
// above the configured threshold. Promoted records leave the cache. Returns
// the number promoted.
func (m *AgentMemory) Consolidate(ctx context.Context) (int, error) {
	m.mu.Lock()
	snapshot := make([]*store.MemoryRecord, len(m.cache))
	copy(snapshot, m.cache)
	m.mu.Unlock()

	var promote []string
	for _, rec := range snapshot {
		// Access counters are incremented durably on retrieval; reload so
		// the decision sees the current count, not the cached copy.
		current, err := m.store.GetMemory(ctx, rec.ID)
		if err != nil {
			if types.IsNotFound(err) {
				continue
			}
			return 0, err
		}
		if types.Importance(current.Importance) >= m.cfg.ConsolidateMinImportance ||
			current.AccessCount >= m.cfg.ConsolidateMinAccess {
			promote = append(promote, rec.ID)
		}
	}

	if len(promote) == 0 {
		return 0, nil
	}
	if err := m.store.PromoteMemoryType(ctx, promote, types.MemoryLongTerm); err != nil {
		return 0, err
	}

	promoted := make(map[string]bool, len(promote))
	for _, id := range promote {
		promoted[id] = true
	}
	m.mu.Lock()
	kept := m.cache[:0]
	for _, rec := range m.cache {
		if !promoted[rec.ID] {
			kept = append(kept, rec)
		}
	}
	m.cache = kept
	m.mu.Unlock()

	m.logger.Debug("consolidated short-term memory", zap.Int("promoted", len(promote)))
	return len(promote), nil
}

// EnforceCapacity trims the short-term cache to the configured capacity,
// evicting the lowest-ranked records first (importance ascending, then
// created-at ascending) and deleting them durably. Returns the number
// evicted.
func (m *AgentMemory) EnforceCapacity(ctx context.Context) (int, error) {
	m.mu.Lock()
	evicted := m.enforceCapacityLocked()
	m.mu.Unlock()

	if len(evicted) == 0 {
		return 0, nil
	}
	if err := m.store.DeleteMemories(ctx, evicted); err != nil {
		return 0, err
	}
	return len(evicted), nil
}

// CacheSize returns the current short-term cache size.
func (m *AgentMemory) CacheSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// enforceCapacityLocked trims the cache and returns the evicted ids.
// Callers hold m.mu and delete the ids durably afterwards.
func (m *AgentMemory) enforceCapacityLocked() []string {
	if len(m.cache) <= m.cfg.ShortTermCapacity {
		return nil
	}

	ranked := make([]*store.MemoryRecord, len(m.cache))
	copy(ranked, m.cache)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Importance != ranked[j].Importance {
			return ranked[i].Importance < ranked[j].Importance
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})

	drop := len(m.cache) - m.cfg.ShortTermCapacity
	evict := make(map[string]bool, drop)
	evicted := make([]string, 0, drop)
	for _, rec := range ranked[:drop] {
		evict[rec.ID] = true
		evicted = append(evicted, rec.ID)
	}

	kept := m.cache[:0]
	for _, rec := range m.cache {
		if !evict[rec.ID] {
			kept = append(kept, rec)
		}
	}
	m.cache = kept
	return evicted
}

// touchCached mirrors durable access-count increments onto cached copies.
func (m *AgentMemory) touchCached(ids []string) {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	m.mu.Lock()
	for _, rec := range m.cache {
		if idSet[rec.ID] {
			rec.AccessCount++
		}
	}
	m.mu.Unlock()
}

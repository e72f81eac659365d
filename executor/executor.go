package executor

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
)

// RedactionMarker replaces credential-like tool parameters before logging.
const RedactionMarker = "[REDACTED]"

// credentialKeys are matched as case-insensitive substrings of parameter
// names; any hit is redacted.
var credentialKeys = []string{"password", "api_key", "apikey", "secret", "token", "credential"}

// Config tunes one TaskExecutor.
type Config struct {
	// ShortTermCapacity caps the most-recent-N short-term list.
	ShortTermCapacity int `yaml:"short_term_capacity" json:"short_term_capacity" env:"SHORT_TERM_CAPACITY"`

	// ToolLogCapacity caps the tool-execution log.
	ToolLogCapacity int `yaml:"tool_log_capacity" json:"tool_log_capacity" env:"TOOL_LOG_CAPACITY"`

	// DefaultBackoff is the recovery wait used when no better value can be
	// derived (for example an unparseable rate-limit message).
	DefaultBackoff time.Duration `yaml:"default_backoff" json:"default_backoff" env:"DEFAULT_BACKOFF"`
}

// DefaultConfig returns the executor defaults.
func DefaultConfig() Config {
	return Config{
		ShortTermCapacity: 10,
		ToolLogCapacity:   100,
		DefaultBackoff:    5 * time.Second,
	}
}

// MemoryEntry is one short-term observation.
type MemoryEntry struct {
	Content   any       `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// longTermEntry is one long-term key/value pair with its access counter.
type longTermEntry struct {
	Value       any       `json:"value"`
	AccessCount int       `json:"access_count"`
	StoredAt    time.Time `json:"stored_at"`
}

// ToolLogEntry is one redacted tool invocation record.
type ToolLogEntry struct {
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params,omitempty"`
	Result    any            `json:"result,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// TaskExecutor holds one agent's working context for one execution run.
type TaskExecutor struct {
	agentID     string
	executionID string
	cfg         Config
	store       *store.Store
	logger      *zap.Logger

	mu           sync.Mutex
	shortTerm    []MemoryEntry
	longTerm     map[string]*longTermEntry
	working      map[string]any
	toolLog      []ToolLogEntry
	errorHistory []RecoveryAttempt
	strategies   map[types.ErrorCode]RecoveryStrategy
}

// New creates a TaskExecutor for one agent within one execution. The store
// may be nil when persistence of the working context is not needed.
func New(agentID, executionID string, st *store.Store, cfg Config, logger *zap.Logger) *TaskExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShortTermCapacity <= 0 {
		cfg.ShortTermCapacity = DefaultConfig().ShortTermCapacity
	}
	if cfg.ToolLogCapacity <= 0 {
		cfg.ToolLogCapacity = DefaultConfig().ToolLogCapacity
	}
	if cfg.DefaultBackoff <= 0 {
		cfg.DefaultBackoff = DefaultConfig().DefaultBackoff
	}

	e := &TaskExecutor{
		agentID:     agentID,
		executionID: executionID,
		cfg:         cfg,
		store:       st,
		logger: logger.With(
			zap.String("component", "task_executor"),
			zap.String("agent_id", agentID),
		),
		longTerm:   make(map[string]*longTermEntry),
		working:    make(map[string]any),
		strategies: make(map[types.ErrorCode]RecoveryStrategy),
	}
	e.registerDefaultStrategies()
	return e
}

// AgentID returns the owning agent id.
func (e *TaskExecutor) AgentID() string { return e.agentID }

// RememberShortTerm appends an observation to the short-term list, evicting
// the oldest entry beyond capacity.
func (e *TaskExecutor) RememberShortTerm(content any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.shortTerm = append(e.shortTerm, MemoryEntry{Content: content, Timestamp: time.Now()})
	if len(e.shortTerm) > e.cfg.ShortTermCapacity {
		e.shortTerm = e.shortTerm[len(e.shortTerm)-e.cfg.ShortTermCapacity:]
	}
}

// ShortTerm returns a copy of the short-term list, oldest first.
func (e *TaskExecutor) ShortTerm() []MemoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]MemoryEntry, len(e.shortTerm))
	copy(out, e.shortTerm)
	return out
}

// StoreLongTerm stores a long-term key/value pair.
func (e *TaskExecutor) StoreLongTerm(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.longTerm[key] = &longTermEntry{Value: value, StoredAt: time.Now()}
}

// GetLongTerm retrieves a long-term value, bumping its access counter.
func (e *TaskExecutor) GetLongTerm(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.longTerm[key]
	if !ok {
		return nil, false
	}
	ent.AccessCount++
	return ent.Value, true
}

// SetWorking writes a scratch working-memory value.
func (e *TaskExecutor) SetWorking(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working[key] = value
}

// GetWorking reads a scratch working-memory value.
func (e *TaskExecutor) GetWorking(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.working[key]
	return v, ok
}

// LogToolExecution appends a tool invocation to the bounded log, redacting
// any parameter whose name looks like a credential.
func (e *TaskExecutor) LogToolExecution(tool string, params map[string]any, result any) {
	entry := ToolLogEntry{
		Tool:      tool,
		Params:    redactParams(params),
		Result:    result,
		Timestamp: time.Now(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.toolLog = append(e.toolLog, entry)
	if len(e.toolLog) > e.cfg.ToolLogCapacity {
		e.toolLog = e.toolLog[len(e.toolLog)-e.cfg.ToolLogCapacity:]
	}
}

// ToolLog returns a copy of the tool-execution log, oldest first.
func (e *TaskExecutor) ToolLog() []ToolLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ToolLogEntry, len(e.toolLog))
	copy(out, e.toolLog)
	return out
}

func redactParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if isCredentialKey(k) {
			out[k] = RedactionMarker
			continue
		}
		out[k] = v
	}
	return out
}

func isCredentialKey(key string) bool {
	lower := strings.ToLower(key)
	for _, needle := range credentialKeys {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

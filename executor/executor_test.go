package executor_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasad8686/agentcore/executor"
	"github.com/rasad8686/agentcore/testutil"
	"github.com/rasad8686/agentcore/types"
)

func newExecutor(cfg executor.Config) *executor.TaskExecutor {
	return executor.New("agent-1", "exec-1", nil, cfg, nil)
}

func TestShortTermEvictsOldest(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{ShortTermCapacity: 3})

	for i := 0; i < 5; i++ {
		e.RememberShortTerm(fmt.Sprintf("obs-%d", i))
	}

	entries := e.ShortTerm()
	require.Len(t, entries, 3)
	assert.Equal(t, "obs-2", entries[0].Content)
	assert.Equal(t, "obs-4", entries[2].Content)
}

func TestLongTermAccessCounting(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{})

	e.StoreLongTerm("api_base", "https://internal.example")
	v, ok := e.GetLongTerm("api_base")
	require.True(t, ok)
	assert.Equal(t, "https://internal.example", v)

	_, ok = e.GetLongTerm("missing")
	assert.False(t, ok)
}

func TestWorkingMemory(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{})

	e.SetWorking("draft", map[string]any{"title": "wip"})
	v, ok := e.GetWorking("draft")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"title": "wip"}, v)
}

func TestToolLogRedactsCredentials(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{})

	e.LogToolExecution("http_request", map[string]any{
		"url":         "https://api.example/v1",
		"api_key":     "sk-secret-value",
		"Password":    "hunter2",
		"authToken":   "bearer xyz",
		"client_name": "bot-7",
	}, "200 OK")

	log := e.ToolLog()
	require.Len(t, log, 1)
	params := log[0].Params
	assert.Equal(t, "https://api.example/v1", params["url"])
	assert.Equal(t, executor.RedactionMarker, params["api_key"])
	assert.Equal(t, executor.RedactionMarker, params["Password"])
	assert.Equal(t, executor.RedactionMarker, params["authToken"])
	assert.Equal(t, "bot-7", params["client_name"])
}

func TestToolLogIsBounded(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{ToolLogCapacity: 2})

	for i := 0; i < 4; i++ {
		e.LogToolExecution(fmt.Sprintf("tool-%d", i), nil, nil)
	}

	log := e.ToolLog()
	require.Len(t, log, 2)
	assert.Equal(t, "tool-2", log[0].Tool)
	assert.Equal(t, "tool-3", log[1].Tool)
}

func TestGetRelevantContext(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{})

	for i := 0; i < 8; i++ {
		e.RememberShortTerm(fmt.Sprintf("step %d", i))
	}
	e.StoreLongTerm("billing endpoint", "https://billing.internal")
	e.StoreLongTerm("unrelated", "nothing here")
	e.SetWorking("scratch", 42)

	rc := e.GetRelevantContext("billing")
	assert.Len(t, rc.RecentHistory, 5)
	assert.Equal(t, "step 7", rc.RecentHistory[4].Content)
	require.Contains(t, rc.RelevantLongTerm, "billing endpoint")
	assert.NotContains(t, rc.RelevantLongTerm, "unrelated")
	assert.Equal(t, 42, rc.WorkingMemory["scratch"])
}

func TestPersistAndLoadMemory(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)
	st := testutil.NewTestStore(t)

	e := executor.New("agent-1", "exec-1", st, executor.Config{}, nil)
	e.RememberShortTerm("observed something")
	e.StoreLongTerm("key", "value")
	require.NoError(t, e.PersistMemory(ctx))

	restored := executor.New("agent-1", "exec-1", st, executor.Config{}, nil)
	require.NoError(t, restored.LoadMemory(ctx))

	entries := restored.ShortTerm()
	require.Len(t, entries, 1)
	assert.Equal(t, "observed something", entries[0].Content)
	v, ok := restored.GetLongTerm("key")
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestPersistMemoryWithoutStore(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{})
	err := e.PersistMemory(testutil.TestContext(t))
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want types.ErrorCode
	}{
		{"dial tcp: connection refused", types.ErrCodeNetwork},
		{"request timed out after 30s", types.ErrCodeNetwork},
		{"no such host", types.ErrCodeNetwork},
		{"Rate limit exceeded, retry after 12 seconds", types.ErrCodeRateLimit},
		{"HTTP 429 Too Many Requests", types.ErrCodeRateLimit},
		{"resource not found", types.ErrCodeMissing},
		{"unexpected 404 from upstream", types.ErrCodeMissing},
		{"401 unauthorized", types.ErrCodeAuth},
		{"invalid api key", types.ErrCodeAuth},
		{"something odd happened", types.ErrCodeGeneric},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, executor.ClassifyError(errors.New(tt.msg)))
		})
	}

	// Rate limit wins over network when both patterns appear.
	assert.Equal(t, types.ErrCodeRateLimit,
		executor.ClassifyError(errors.New("rate limit hit, network backoff advised")))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	wait, ok := executor.ParseRetryAfter("rate limited, retry after 12 seconds")
	require.True(t, ok)
	assert.Equal(t, 12*time.Second, wait)

	wait, ok = executor.ParseRetryAfter("retry after 1 second")
	require.True(t, ok)
	assert.Equal(t, time.Second, wait)

	_, ok = executor.ParseRetryAfter("try again later")
	assert.False(t, ok)
}

func TestAttemptRecoveryDirectives(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{DefaultBackoff: 5 * time.Second})

	d := e.AttemptRecovery(errors.New("connection refused"), "fetch", 2)
	assert.Equal(t, executor.ActionRetry, d.Action)
	assert.Equal(t, 2*time.Second, d.Wait)

	d = e.AttemptRecovery(errors.New("rate limit, retry after 7 seconds"), "fetch", 1)
	assert.Equal(t, executor.ActionWait, d.Action)
	assert.Equal(t, 7*time.Second, d.Wait)

	d = e.AttemptRecovery(errors.New("rate limit exceeded"), "fetch", 1)
	assert.Equal(t, executor.ActionWait, d.Action)
	assert.Equal(t, 5*time.Second, d.Wait)

	d = e.AttemptRecovery(errors.New("401 unauthorized"), "fetch", 1)
	assert.Equal(t, executor.ActionAbort, d.Action)

	d = e.AttemptRecovery(errors.New("resource not found"), "fetch", 1)
	assert.Equal(t, executor.ActionAbort, d.Action)

	d = e.AttemptRecovery(errors.New("weird failure"), "fetch", 1)
	assert.Equal(t, executor.ActionRetry, d.Action)

	history := e.ErrorHistory()
	require.Len(t, history, 6)
	assert.Equal(t, "fetch", history[0].Step)
	assert.Equal(t, types.ErrCodeNetwork, history[0].Code)
}

func TestAddRecoveryStrategyOverrides(t *testing.T) {
	t.Parallel()
	e := newExecutor(executor.Config{})

	e.AddRecoveryStrategy(types.ErrCodeNetwork, func(err error, step string, attempt int) executor.RecoveryDirective {
		return executor.RecoveryDirective{Action: executor.ActionAbort}
	})

	d := e.AttemptRecovery(errors.New("connection refused"), "fetch", 1)
	assert.Equal(t, executor.ActionAbort, d.Action)
}

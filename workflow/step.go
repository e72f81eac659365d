package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/executor"
	"github.com/rasad8686/agentcore/memory"
	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
)

// runStep executes one agent step with retries. A step fails only after the
// configured number of attempts is exhausted; tokens accumulate across every
// attempt, failed ones included. Recovery directives influence the wait
// between attempts, never the attempt count.
func (e *Engine) runStep(ctx context.Context, r *run, ba *boundAgent, order int, input any) StepResult {
	agentID := ba.binding.AgentID
	maxRetries := e.cfg.MaxRetries
	retryDelay := e.cfg.RetryDelay
	if r.wf.Settings.MaxRetries > 0 {
		maxRetries = r.wf.Settings.MaxRetries
	}
	if r.wf.Settings.RetryDelayMs > 0 {
		retryDelay = time.Duration(r.wf.Settings.RetryDelayMs) * time.Millisecond
	}

	st := &store.ExecutionStep{
		ExecutionID: r.execID,
		AgentID:     agentID,
		StepOrder:   order,
		Status:      types.StepPending,
		Input:       input,
	}
	if err := e.store.CreateStep(ctx, st); err != nil {
		return StepResult{AgentID: agentID, Error: err.Error()}
	}
	if err := e.store.MarkStepRunning(ctx, st.ID); err != nil {
		e.logger.Error("failed to mark step running", zap.String("step_id", st.ID), zap.Error(err))
	}
	e.emit(EventStepStart, r.execID, r.workflowID, agentID, st.ID, map[string]any{
		"input": input,
		"order": order,
	})

	r.ec.SetCurrentAgent(agentID)
	if len(ba.binding.Config) > 0 {
		r.ec.Set("config:"+agentID, ba.binding.Config)
	}
	e.consultMemory(ctx, r, ba, input)
	ba.exec.RememberShortTerm(input)

	start := time.Now()
	output, tokens, attempts, runErr := e.attemptStep(ctx, r, ba, input, maxRetries, retryDelay)
	durationMs := time.Since(start).Milliseconds()
	r.addUsage(agentID, tokens, durationMs)

	if runErr != nil {
		if err := e.store.FailStep(ctx, st.ID, runErr.Error(), tokens, durationMs, attempts); err != nil {
			e.logger.Error("failed to persist step failure", zap.String("step_id", st.ID), zap.Error(err))
		}
		e.emit(EventStepFailed, r.execID, r.workflowID, agentID, st.ID, map[string]any{
			"error":    runErr.Error(),
			"attempts": attempts,
		})
		e.metrics.StepFinished(string(types.StepFailed), time.Since(start))
		return StepResult{
			StepID:     st.ID,
			AgentID:    agentID,
			Error:      runErr.Error(),
			TokensUsed: tokens,
			DurationMs: durationMs,
			Attempts:   attempts,
		}
	}

	ba.exec.RememberShortTerm(output)
	r.ec.RecordOutput(agentID, output)
	if err := e.store.CompleteStep(ctx, st.ID, output, tokens, durationMs, attempts); err != nil {
		e.logger.Error("failed to persist step completion", zap.String("step_id", st.ID), zap.Error(err))
	}
	e.emit(EventStepComplete, r.execID, r.workflowID, agentID, st.ID, map[string]any{
		"output":      output,
		"tokens_used": tokens,
		"attempts":    attempts,
	})
	e.metrics.StepFinished(string(types.StepCompleted), time.Since(start))

	return StepResult{
		StepID:     st.ID,
		AgentID:    agentID,
		Success:    true,
		Output:     output,
		TokensUsed: tokens,
		DurationMs: durationMs,
		Attempts:   attempts,
	}
}

// attemptStep drives the retry loop for one step. An attempt fails when the
// agent returns an error, a nil result, or an unsuccessful result.
func (e *Engine) attemptStep(ctx context.Context, r *run, ba *boundAgent, input any, maxRetries int, retryDelay time.Duration) (output any, tokens, attempts int, err error) {
	agentID := ba.binding.AgentID
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		attempts = attempt

		if e.limiter != nil {
			if werr := e.limiter.Wait(ctx); werr != nil {
				return nil, tokens, attempts, werr
			}
		}

		res, execErr := ba.agent.Execute(ctx, input, r.ec)
		if res != nil {
			tokens += res.TokensUsed
		}

		switch {
		case execErr != nil:
			lastErr = execErr
		case res == nil:
			lastErr = errors.New("agent returned no result")
		case !res.Success:
			msg := res.Error
			if msg == "" {
				msg = "agent reported failure"
			}
			lastErr = errors.New(msg)
		default:
			return res.Output, tokens, attempts, nil
		}

		e.logger.Warn("step attempt failed",
			zap.String("agent_id", agentID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
		if attempt == maxRetries {
			break
		}

		e.metrics.RetryRecorded()
		wait := retryDelay
		directive := ba.exec.AttemptRecovery(lastErr, agentID, attempt)
		if directive.Action == executor.ActionWait && directive.Wait > 0 {
			wait = directive.Wait
		}

		select {
		case <-ctx.Done():
			return nil, tokens, attempts, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, tokens, attempts, fmt.Errorf("agent %s failed after %d attempts: %w", agentID, attempts, lastErr)
}

// consultMemory surfaces the agent's most relevant stored memories into the
// shared context before the step runs. Lookup failures are logged and
// non-fatal.
func (e *Engine) consultMemory(ctx context.Context, r *run, ba *boundAgent, input any) {
	if ba.mem == nil {
		return
	}
	records, err := ba.mem.Retrieve(ctx, types.Stringify(input), memory.RetrieveOptions{Limit: 5})
	if err != nil {
		e.logger.Warn("memory lookup failed",
			zap.String("agent_id", ba.binding.AgentID),
			zap.Error(err),
		)
		return
	}
	if len(records) == 0 {
		return
	}
	contents := make([]string, len(records))
	for i, rec := range records {
		contents[i] = rec.Content
	}
	r.ec.Set("memory:"+ba.binding.AgentID, contents)
}

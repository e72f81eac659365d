package executor

import (
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/types"
)

// RecoveryAction tells the caller how to proceed after a failed step.
type RecoveryAction string

const (
	// ActionRetry re-attempts the step after Wait.
	ActionRetry RecoveryAction = "retry"
	// ActionWait holds off for Wait before re-attempting.
	ActionWait RecoveryAction = "wait"
	// ActionAbort stops retrying; the failure is final.
	ActionAbort RecoveryAction = "abort"
)

// RecoveryDirective is the outcome of a recovery decision.
type RecoveryDirective struct {
	Action RecoveryAction `json:"action"`
	Wait   time.Duration  `json:"wait_ms"`
}

// RecoveryStrategy decides how to recover from a classified error.
type RecoveryStrategy func(err error, step string, attempt int) RecoveryDirective

// RecoveryAttempt is one entry in the error history log.
type RecoveryAttempt struct {
	Step      string            `json:"step"`
	Attempt   int               `json:"attempt"`
	Code      types.ErrorCode   `json:"code"`
	Message   string            `json:"message"`
	Directive RecoveryDirective `json:"directive"`
	Timestamp time.Time         `json:"timestamp"`
}

var retryAfterPattern = regexp.MustCompile(`retry after (\d+) seconds?`)

// ParseRetryAfter extracts a wait duration from a rate-limit error message
// of the form "retry after N seconds". Returns false when no value can be
// parsed.
func ParseRetryAfter(msg string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(msg)
	if match == nil {
		return 0, false
	}
	secs, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func (e *TaskExecutor) registerDefaultStrategies() {
	e.strategies[types.ErrCodeNetwork] = func(err error, step string, attempt int) RecoveryDirective {
		return RecoveryDirective{Action: ActionRetry, Wait: time.Duration(attempt) * time.Second}
	}
	e.strategies[types.ErrCodeRateLimit] = func(err error, step string, attempt int) RecoveryDirective {
		if wait, ok := ParseRetryAfter(err.Error()); ok {
			return RecoveryDirective{Action: ActionWait, Wait: wait}
		}
		return RecoveryDirective{Action: ActionWait, Wait: e.cfg.DefaultBackoff}
	}
	e.strategies[types.ErrCodeMissing] = func(err error, step string, attempt int) RecoveryDirective {
		return RecoveryDirective{Action: ActionAbort}
	}
	e.strategies[types.ErrCodeAuth] = func(err error, step string, attempt int) RecoveryDirective {
		return RecoveryDirective{Action: ActionAbort}
	}
	e.strategies[types.ErrCodeGeneric] = func(err error, step string, attempt int) RecoveryDirective {
		return RecoveryDirective{Action: ActionRetry, Wait: time.Second}
	}
}

// AddRecoveryStrategy installs or replaces the strategy for a classified
// error code.
func (e *TaskExecutor) AddRecoveryStrategy(code types.ErrorCode, strategy RecoveryStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[code] = strategy
}

// AttemptRecovery classifies err, records the attempt in the error history,
// and returns the strategy's directive. Codes without a strategy fall back
// to the GENERIC strategy.
func (e *TaskExecutor) AttemptRecovery(err error, step string, attempt int) RecoveryDirective {
	code := ClassifyError(err)

	e.mu.Lock()
	strategy, ok := e.strategies[code]
	if !ok {
		strategy = e.strategies[types.ErrCodeGeneric]
	}
	e.mu.Unlock()

	directive := strategy(err, step, attempt)

	e.mu.Lock()
	e.errorHistory = append(e.errorHistory, RecoveryAttempt{
		Step:      step,
		Attempt:   attempt,
		Code:      code,
		Message:   err.Error(),
		Directive: directive,
		Timestamp: time.Now(),
	})
	e.mu.Unlock()

	e.logger.Debug("recovery attempt",
		zap.String("step", step),
		zap.Int("attempt", attempt),
		zap.String("code", string(code)),
		zap.String("action", string(directive.Action)),
		zap.Duration("wait", directive.Wait),
	)
	return directive
}

// ErrorHistory returns a copy of the recorded recovery attempts.
func (e *TaskExecutor) ErrorHistory() []RecoveryAttempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RecoveryAttempt, len(e.errorHistory))
	copy(out, e.errorHistory)
	return out
}

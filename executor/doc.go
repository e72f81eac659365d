// Package executor provides the per-agent, per-execution working context:
// bounded short-term memory, a long-term key/value store with access
// counters, scratch working memory, a credential-redacting tool log, error
// classification, and pluggable recovery strategies.
//
// One TaskExecutor is owned exclusively by its execution; instances are
// never shared across executions.
package executor

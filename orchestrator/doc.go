// Package orchestrator coordinates workflow executions and the agent pool.
// It sits above the workflow engine: admission control for concurrent
// executions, pause/resume/cancel of running executions, inter-agent
// messaging, and handoffs between pooled agents.
package orchestrator

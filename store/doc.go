// Package store provides the durable persistence layer for the
// orchestration engine: workflow definitions, executions, steps, tiered
// memory records, handoffs, and serialized executor state.
//
// Structured columns (bindings, flow configuration, tags, embeddings,
// metadata) are serialized to JSON exactly once at this boundary; callers
// always see the canonical in-memory representation.
package store

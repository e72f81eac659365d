// Package memory implements the per-agent tiered memory store: short-term
// working context (durably persisted and mirrored in an in-process cache),
// long-term consolidated knowledge, episodic task records, semantic fact
// triples, and procedural step sequences.
//
// Retrieval is either filtered text search (ordered by importance, access
// frequency, then recency) or cosine-similarity search over stored
// embedding vectors. Consolidation promotes significant short-term records
// to long-term storage; capacity enforcement evicts the least important,
// oldest short-term records first.
package memory

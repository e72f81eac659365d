package types

// MemoryType defines the tier a memory record belongs to.
type MemoryType string

const (
	// MemoryShortTerm holds working context for the current task. Short-term
	// records are additionally kept in an in-process cache, which is
	// performance-only; the durable store remains the system of record.
	MemoryShortTerm MemoryType = "short_term"

	// MemoryLongTerm holds consolidated knowledge promoted out of the
	// short-term tier.
	MemoryLongTerm MemoryType = "long_term"

	// MemoryEpisodic holds event-based experiential records (task episodes).
	MemoryEpisodic MemoryType = "episodic"

	// MemorySemantic holds factual knowledge as subject/predicate/object
	// triples.
	MemorySemantic MemoryType = "semantic"

	// MemoryProcedural holds named, versioned step sequences. Excluded from
	// forgetting by default.
	MemoryProcedural MemoryType = "procedural"
)

// Valid reports whether t is one of the five defined memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryShortTerm, MemoryLongTerm, MemoryEpisodic, MemorySemantic, MemoryProcedural:
		return true
	}
	return false
}

// Importance is the 1–4 ordinal significance scale of a memory record.
type Importance int

const (
	ImportanceLow      Importance = 1
	ImportanceMedium   Importance = 2
	ImportanceHigh     Importance = 3
	ImportanceCritical Importance = 4
)

// Valid reports whether i is one of the four defined ordinals.
func (i Importance) Valid() bool {
	return i >= ImportanceLow && i <= ImportanceCritical
}

func (i Importance) String() string {
	switch i {
	case ImportanceLow:
		return "low"
	case ImportanceMedium:
		return "medium"
	case ImportanceHigh:
		return "high"
	case ImportanceCritical:
		return "critical"
	}
	return "unknown"
}

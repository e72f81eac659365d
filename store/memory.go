package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rasad8686/agentcore/types"
)

// MemoryQuery filters a text search over an agent's memory records.
type MemoryQuery struct {
	// Query, when set, is a case-sensitive substring match on content.
	Query string
	// Type, when set, restricts the search to one memory tier.
	Type types.MemoryType
	// MinImportance, when > 0, drops records below the ordinal.
	MinImportance types.Importance
	// Tags, when set, requires every tag to be present on the record.
	Tags []string
	// Limit caps the result count; 0 means the store default of 50.
	Limit int
}

// ForgetCriteria selects low-value records for deletion.
type ForgetCriteria struct {
	OlderThan     time.Time
	MaxImportance types.Importance
	MaxAccess     int
	ExcludeTypes  []types.MemoryType
}

// CreateMemory persists a memory record, assigning an id when absent.
func (s *Store) CreateMemory(ctx context.Context, m *MemoryRecord) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.LastAccessedAt.IsZero() {
		m.LastAccessedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to create memory record").WithCause(err)
	}
	return nil
}

// GetMemory loads a memory record by id.
func (s *Store) GetMemory(ctx context.Context, id string) (*MemoryRecord, error) {
	var m MemoryRecord
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrCodeNotFound, "Memory record not found")
	}
	if err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to load memory record").WithCause(err)
	}
	return &m, nil
}

// SearchMemory performs a filtered text search over an agent's records,
// ordered descending by importance, then access count, then recency.
func (s *Store) SearchMemory(ctx context.Context, agentID string, q MemoryQuery) ([]MemoryRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	tx := s.db.WithContext(ctx).Where("agent_id = ?", agentID)
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}
	if q.MinImportance > 0 {
		tx = tx.Where("importance >= ?", int(q.MinImportance))
	}
	if q.Query != "" {
		tx = tx.Where("content LIKE ?", "%"+q.Query+"%")
	}
	// Tags are stored as a JSON array; a quoted-substring match is exact for
	// tag values that contain no quotes.
	for _, tag := range q.Tags {
		tx = tx.Where("tags LIKE ?", `%"`+tag+`"%`)
	}

	var out []MemoryRecord
	err := tx.Order("importance DESC, access_count DESC, created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to search memory").WithCause(err)
	}
	return out, nil
}

// ListEmbedded returns an agent's records that carry an embedding vector,
// optionally restricted to one tier.
func (s *Store) ListEmbedded(ctx context.Context, agentID string, memType types.MemoryType) ([]MemoryRecord, error) {
	tx := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Where("embedding IS NOT NULL AND embedding != '' AND embedding != 'null'")
	if memType != "" {
		tx = tx.Where("type = ?", memType)
	}

	var out []MemoryRecord
	if err := tx.Find(&out).Error; err != nil {
		return nil, types.NewError(types.ErrCodeGeneric, "failed to list embedded memory").WithCause(err)
	}
	return out, nil
}

// IncrementAccess atomically bumps the access counter of the given records
// and refreshes their last-accessed timestamp.
func (s *Store) IncrementAccess(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&MemoryRecord{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]any{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": time.Now(),
		}).Error
	if err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to increment access counters").WithCause(err)
	}
	return nil
}

// PromoteMemoryType rewrites the tier of the given records, used by
// consolidation to move short-term records into long-term storage.
func (s *Store) PromoteMemoryType(ctx context.Context, ids []string, to types.MemoryType) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&MemoryRecord{}).
		Where("id IN ?", ids).
		Update("type", to).Error
	if err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to promote memory records").WithCause(err)
	}
	return nil
}

// DeleteMemories removes the given records.
func (s *Store) DeleteMemories(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Delete(&MemoryRecord{}, "id IN ?", ids).Error
	if err != nil {
		return types.NewError(types.ErrCodeGeneric, "failed to delete memory records").WithCause(err)
	}
	return nil
}

// ForgetMemories deletes an agent's low-importance, low-access records
// older than the cutoff, excluding the given tiers. Returns the number of
// records deleted.
func (s *Store) ForgetMemories(ctx context.Context, agentID string, c ForgetCriteria) (int64, error) {
	tx := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Where("created_at < ?", c.OlderThan).
		Where("importance <= ?", int(c.MaxImportance)).
		Where("access_count <= ?", c.MaxAccess)
	if len(c.ExcludeTypes) > 0 {
		tx = tx.Where("type NOT IN ?", c.ExcludeTypes)
	}

	res := tx.Delete(&MemoryRecord{})
	if res.Error != nil {
		return 0, types.NewError(types.ErrCodeGeneric, "failed to forget memory records").WithCause(res.Error)
	}
	return res.RowsAffected, nil
}

// CountMemories returns the number of records an agent holds per tier.
func (s *Store) CountMemories(ctx context.Context, agentID string, memType types.MemoryType) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&MemoryRecord{}).Where("agent_id = ?", agentID)
	if memType != "" {
		tx = tx.Where("type = ?", memType)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, types.NewError(types.ErrCodeGeneric, "failed to count memory records").WithCause(err)
	}
	return n, nil
}

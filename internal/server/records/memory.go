package records

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
)

// MemoryRepository keeps records in a map. It backs development servers
// started without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   map[string]int64
	seq     int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
		order:   make(map[string]int64),
	}
}

func (m *MemoryRepository) Insert(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[r.ID]; ok {
		return fmt.Errorf("%s %s: %w", r.Family, r.ID, common.ErrorAlreadyExists)
	}
	if r.ParentID != "" {
		if _, ok := m.records[r.ParentID]; !ok {
			return fmt.Errorf("parent %s: %w", r.ParentID, common.ErrorNotFound)
		}
	}
	m.seq++
	m.records[r.ID] = r.clone()
	m.order[r.ID] = m.seq
	return nil
}

func (m *MemoryRepository) Update(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.records[r.ID]
	if !ok || cur.Family != r.Family {
		return common.ErrorNotFound
	}
	cur.Data = append([]byte(nil), r.Data...)
	cur.UpdatedAt = r.UpdatedAt
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, f models.Family, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok || r.Family != f {
		return nil, common.ErrorNotFound
	}
	return r.clone(), nil
}

func (m *MemoryRepository) Delete(ctx context.Context, f models.Family, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok || r.Family != f {
		return common.ErrorNotFound
	}

	doomed := []string{id}
	for i := 0; i < len(doomed); i++ {
		for cid, c := range m.records {
			if c.ParentID == doomed[i] {
				doomed = append(doomed, cid)
			}
		}
	}
	for _, d := range doomed {
		delete(m.records, d)
		delete(m.order, d)
	}
	return nil
}

func (m *MemoryRepository) ListWorkspace(ctx context.Context, workspaceID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Record
	for _, r := range m.records {
		if r.WorkspaceID == workspaceID {
			out = append(out, r.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}

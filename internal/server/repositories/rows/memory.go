package rows

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/server/models"
)

// MemoryRepository mirrors the Postgres semantics in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	tables map[schema.Collection]map[string]*models.Row
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tables: make(map[schema.Collection]map[string]*models.Row)}
}

func copyRow(r *models.Row) *models.Row {
	cp := *r
	cp.Data = make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		cp.Data[k] = v
	}
	return &cp
}

func (r *MemoryRepository) Upsert(_ context.Context, c schema.Collection, row *models.Row) error {
	if _, err := table(c); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[c]
	if !ok {
		t = make(map[string]*models.Row)
		r.tables[c] = t
	}

	existing, ok := t[row.ID]
	if !ok {
		t[row.ID] = copyRow(row)
		return nil
	}
	if existing.UserID != row.UserID {
		return common.ErrOwnershipConflict
	}

	updated := copyRow(row)
	updated.Platform = existing.Platform
	t[row.ID] = updated
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, c schema.Collection, id, userID string) (*models.Row, error) {
	if _, err := table(c); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.tables[c][id]
	if !ok || row.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return copyRow(row), nil
}

func (r *MemoryRepository) Delete(_ context.Context, c schema.Collection, id, userID string) (bool, error) {
	if _, err := table(c); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tables[c][id]
	if !ok || existing.UserID != userID {
		return false, nil
	}
	delete(r.tables[c], id)
	return true, nil
}

func (r *MemoryRepository) Select(_ context.Context, c schema.Collection, userID string, platforms []schema.Platform) ([]*models.Row, error) {
	if _, err := table(c); err != nil {
		return nil, err
	}

	want := make(map[schema.Platform]bool, len(platforms))
	for _, p := range platforms {
		want[p] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Row
	for _, row := range r.tables[c] {
		if row.UserID == userID && want[row.Platform] {
			out = append(out, copyRow(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepository) Count(_ context.Context, c schema.Collection, userID string, platform schema.Platform) (int64, error) {
	if _, err := table(c); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, row := range r.tables[c] {
		if row.UserID == userID && row.Platform == platform {
			n++
		}
	}
	return n, nil
}

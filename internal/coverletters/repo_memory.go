package coverletters

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Letter
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Letter)}
}

// Create stores a letter. Parents must already exist.
func (r *MemoryRepo) Create(ctx context.Context, letter Letter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[letter.ID]; ok {
		return ErrConflict
	}
	if letter.ParentID != "" {
		if _, ok := r.data[letter.ParentID]; !ok {
			return ErrInvalidInput
		}
	}
	r.data[letter.ID] = letter.clone()
	return nil
}

// GetByID returns a copy of the stored letter.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	letter, ok := r.data[id]
	if !ok {
		return Letter{}, ErrNotFound
	}
	return letter.clone(), nil
}

// ListByOwner returns the owner's letters newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Letter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Letter, 0)
	for _, letter := range r.data {
		if letter.OwnerID == ownerID {
			out = append(out, letter.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Version > out[j].Version
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)

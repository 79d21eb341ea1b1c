package documents

import (
	"context"
	"maps"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores doc. Existing IDs are rejected.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[doc.ID]; ok {
		return ErrInvalidInput
	}
	doc.Metadata = maps.Clone(doc.Metadata)
	r.data[doc.ID] = doc
	return nil
}

// GetByID returns a copy of the stored document.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Metadata = maps.Clone(doc.Metadata)
	return doc, nil
}

// ListByOwner returns the owner's documents newest first. An empty docType
// matches every type; limit <= 0 means no limit.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID, docType string, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.data {
		if doc.OwnerID != ownerID || (docType != "" && doc.DocType != docType) {
			continue
		}
		doc.Metadata = maps.Clone(doc.Metadata)
		out = append(out, doc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ DocumentsRepo = (*MemoryRepo)(nil)

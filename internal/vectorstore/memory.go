package vectorstore

import (
	"context"
	"sync"
)

// MemoryIndex is a brute-force cosine index held in process memory.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []Chunk
	byID   map[string]int
}

// NewMemoryIndex constructs an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byID: make(map[string]int)}
}

// Upsert implements Index. Re-upserting an ID replaces it in place and keeps
// its original sequence.
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		c.Vector = append([]float32(nil), c.Vector...)
		if i, ok := m.byID[c.ID]; ok {
			c.Seq = m.chunks[i].Seq
			m.chunks[i] = c
			continue
		}
		m.byID[c.ID] = len(m.chunks)
		m.chunks = append(m.chunks, c)
	}
	return nil
}

// Search implements Index.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	matches := make([]Match, 0, len(m.chunks))
	for _, c := range m.chunks {
		if !filter.matches(c) {
			continue
		}
		matches = append(matches, Match{Chunk: c, Score: Cosine(vector, c.Vector)})
	}
	m.mu.RUnlock()
	return rank(matches, topK), nil
}

var _ Index = (*MemoryIndex)(nil)

// Package vectorstore chunks documents, embeds the chunks and answers
// similarity queries for retrieval-augmented prompts.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Document is the input to Upsert.
type Document struct {
	ID       string
	OwnerID  string
	DocType  string
	Content  string
	Metadata map[string]string
}

// ErrEmptyQuery is returned by Query for blank text.
var ErrEmptyQuery = errors.New("vectorstore: empty query")

// Store combines a Chunker, an Embedder and an Index.
type Store struct {
	chunker  Chunker
	embedder Embedder
	index    Index

	seqMu   sync.Mutex
	lastSeq uint64
}

// NewStore wires the store's collaborators.
func NewStore(chunker Chunker, embedder Embedder, index Index) *Store {
	return &Store{chunker: chunker, embedder: embedder, index: index}
}

// nextSeq is strictly increasing and seeded from the wall clock so ordering
// survives restarts against a persistent index.
func (s *Store) nextSeq() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	now := uint64(time.Now().UnixNano())
	if now <= s.lastSeq {
		now = s.lastSeq + 1
	}
	s.lastSeq = now
	return now
}

// Upsert chunks, embeds and indexes doc, returning the chunk IDs in order.
// Chunk IDs are derived from the document ID so re-indexing replaces them.
func (s *Store) Upsert(ctx context.Context, doc Document) ([]string, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return nil, fmt.Errorf("vectorstore: document id is required")
	}
	texts := s.chunker.Split(doc.Content)
	if len(texts) == 0 {
		return []string{}, nil
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed document %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(texts))
	}

	meta := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	if doc.OwnerID != "" {
		meta["owner_id"] = doc.OwnerID
	}

	chunks := make([]Chunk, len(texts))
	ids := make([]string, len(texts))
	for i, text := range texts {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", doc.ID, i))).String()
		ids[i] = id
		chunks[i] = Chunk{
			ID:         id,
			DocumentID: doc.ID,
			DocType:    doc.DocType,
			Ordinal:    i,
			Text:       text,
			Metadata:   meta,
			Vector:     vectors[i],
			Seq:        s.nextSeq(),
		}
	}
	if err := s.index.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return ids, nil
}

// Query embeds text and returns up to topK matches, best first.
func (s *Store) Query(ctx context.Context, text string, topK int, filter Filter) ([]Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	return s.index.Search(ctx, vectors[0], topK, filter)
}

// Texts returns the chunk texts of matches joined by blank lines.
func Texts(matches []Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

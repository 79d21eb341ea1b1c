package vectorstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerOverlap(t *testing.T) {
	c := Chunker{Size: 10, Overlap: 0.2}
	text := "abcdefghijklmnopqrstuvwxyz"

	chunks := c.Split(text)

	require.Equal(t, []string{"abcdefghij", "ijklmnopqr", "qrstuvwxyz"}, chunks)
}

func TestChunkerHandlesMultibyteAndShortText(t *testing.T) {
	c := Chunker{Size: 4, Overlap: 0}
	assert.Equal(t, []string{"héll", "ö wö", "rld"}, c.Split("héllö wörld"))
	assert.Equal(t, []string{"hi"}, DefaultChunker().Split("  hi  "))
	assert.Nil(t, DefaultChunker().Split("   "))
}

func TestMemoryIndexRanksByScoreThenInsertionOrder(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	// Against the query (1,0): a scores 0.9, b and c score 0.95.
	require.NoError(t, idx.Upsert(ctx, []Chunk{
		{ID: "a", Vector: []float32{0.9, 0.43588989}, Seq: 1},
		{ID: "b", Vector: []float32{0.95, 0.31224990}, Seq: 2},
		{ID: "c", Vector: []float32{0.95, 0.31224990}, Seq: 3},
	}))

	matches, err := idx.Search(ctx, []float32{1, 0}, 3, Filter{})
	require.NoError(t, err)

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Chunk.ID
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
	assert.InDelta(t, 0.95, matches[0].Score, 1e-6)
	assert.InDelta(t, 0.9, matches[2].Score, 1e-6)
}

func TestMemoryIndexFiltersAndTruncates(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []Chunk{
		{ID: "r1", DocType: "resume", Vector: []float32{1, 0}, Seq: 1},
		{ID: "j1", DocType: "job_description", Vector: []float32{1, 0}, Seq: 2},
		{ID: "r2", DocType: "resume", Vector: []float32{0, 1}, Seq: 3},
	}))

	matches, err := idx.Search(ctx, []float32{1, 0}, 1, Filter{DocType: "resume"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "r1", matches[0].Chunk.ID)
}

func TestStoreUpsertAndQuery(t *testing.T) {
	store := NewStore(Chunker{Size: 60, Overlap: 0.2}, HashEmbedder{Dim: 128}, NewMemoryIndex())
	ctx := context.Background()

	ids, err := store.Upsert(ctx, Document{
		ID:      "doc-resume",
		OwnerID: "guest:1",
		DocType: "resume",
		Content: "Senior Go engineer building Kubernetes operators and PostgreSQL data pipelines for payments.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	_, err = store.Upsert(ctx, Document{
		ID:      "doc-letter",
		DocType: "cover_letter",
		Content: "Dear hiring manager, I love baking sourdough bread and painting watercolors.",
	})
	require.NoError(t, err)

	matches, err := store.Query(ctx, "Go Kubernetes PostgreSQL", 2, Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "doc-resume", matches[0].Chunk.DocumentID)
	assert.Equal(t, "guest:1", matches[0].Chunk.Metadata["owner_id"])

	letters, err := store.Query(ctx, "Go Kubernetes PostgreSQL", 5, Filter{DocType: "cover_letter"})
	require.NoError(t, err)
	for _, m := range letters {
		assert.Equal(t, "cover_letter", m.Chunk.DocType)
	}
}

func TestStoreChunkIDsAreStablePerDocument(t *testing.T) {
	store := NewStore(DefaultChunker(), HashEmbedder{}, NewMemoryIndex())
	ctx := context.Background()
	doc := Document{ID: "d1", DocType: "resume", Content: "Go and SQL"}

	first, err := store.Upsert(ctx, doc)
	require.NoError(t, err)
	second, err := store.Upsert(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStoreQueryRejectsBlank(t *testing.T) {
	store := NewStore(DefaultChunker(), HashEmbedder{}, NewMemoryIndex())
	_, err := store.Query(context.Background(), " ", 3, Filter{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestQdrantIndexSearchReRanksTies(t *testing.T) {
	var searchBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/chunks":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/chunks":
			_, _ = w.Write([]byte(`{"result":true}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/chunks/points/search":
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &searchBody)
			_, _ = w.Write([]byte(`{"result":[
				{"id":"c","score":0.95,"payload":{"document_id":"d","doc_type":"resume","text":"c","seq":3}},
				{"id":"a","score":0.9,"payload":{"document_id":"d","doc_type":"resume","text":"a","seq":1}},
				{"id":"b","score":0.95,"payload":{"document_id":"d","doc_type":"resume","text":"b","seq":2}}
			]}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	idx := NewQdrantIndex(srv.URL, "chunks", 2)
	ctx := context.Background()
	require.NoError(t, idx.EnsureCollection(ctx))

	matches, err := idx.Search(ctx, []float32{1, 0}, 3, Filter{DocType: "resume"})
	require.NoError(t, err)
	var got []string
	for _, m := range matches {
		got = append(got, m.Chunk.Text)
	}
	assert.Equal(t, []string{"b", "c", "a"}, got)
	assert.Contains(t, searchBody, "filter")
}

func TestQdrantIndexUpsertSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"error":"bad vector"}}`))
	}))
	defer srv.Close()

	idx := NewQdrantIndex(srv.URL, "chunks", 2)
	err := idx.Upsert(context.Background(), []Chunk{{ID: "x", Vector: []float32{1, 0}}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad vector"))
}

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// QdrantIndex stores chunks in a Qdrant collection over its REST API.
type QdrantIndex struct {
	endpoint   string
	collection string
	dim        int
	httpClient *http.Client
}

// NewQdrantIndex constructs a client for collection at endpoint.
func NewQdrantIndex(endpoint, collection string, dim int) *QdrantIndex {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = "http://localhost:6333"
	}
	return &QdrantIndex{
		endpoint:   endpoint,
		collection: collection,
		dim:        dim,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureCollection creates the collection with cosine distance if missing.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", q.endpoint, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant get collection: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{"size": q.dim, "distance": "Cosine"},
		}
		return q.do(ctx, http.MethodPut, url, body, nil)
	default:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant get collection: status %d: %s", resp.StatusCode, string(raw))
	}
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert implements Index. Chunk IDs must be UUIDs.
func (q *QdrantIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]qdrantPoint, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, qdrantPoint{
			ID:     c.ID,
			Vector: c.Vector,
			Payload: map[string]any{
				"document_id": c.DocumentID,
				"doc_type":    c.DocType,
				"ordinal":     c.Ordinal,
				"text":        c.Text,
				"metadata":    c.Metadata,
				"seq":         c.Seq,
				"owner_id":    c.Metadata["owner_id"],
			},
		})
	}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.endpoint, q.collection)
	return q.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil)
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any     `json:"id"`
		Score   float64 `json:"score"`
		Payload struct {
			DocumentID string            `json:"document_id"`
			DocType    string            `json:"doc_type"`
			Ordinal    int               `json:"ordinal"`
			Text       string            `json:"text"`
			Metadata   map[string]string `json:"metadata"`
			Seq        uint64            `json:"seq"`
		} `json:"payload"`
	} `json:"result"`
}

// Search implements Index. Results are re-ranked so equal scores keep
// insertion order regardless of server tie handling.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var must []map[string]any
	if filter.DocType != "" {
		must = append(must, map[string]any{"key": "doc_type", "match": map[string]any{"value": filter.DocType}})
	}
	if filter.OwnerID != "" {
		must = append(must, map[string]any{"key": "owner_id", "match": map[string]any{"value": filter.OwnerID}})
	}
	if filter.DocumentID != "" {
		must = append(must, map[string]any{"key": "document_id", "match": map[string]any{"value": filter.DocumentID}})
	}
	if len(must) > 0 {
		body["filter"] = map[string]any{"must": must}
	}

	var parsed qdrantSearchResponse
	url := fmt.Sprintf("%s/collections/%s/points/search", q.endpoint, q.collection)
	if err := q.do(ctx, http.MethodPost, url, body, &parsed); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		matches = append(matches, Match{
			Chunk: Chunk{
				ID:         fmt.Sprint(r.ID),
				DocumentID: r.Payload.DocumentID,
				DocType:    r.Payload.DocType,
				Ordinal:    r.Payload.Ordinal,
				Text:       r.Payload.Text,
				Metadata:   r.Payload.Metadata,
				Seq:        r.Payload.Seq,
			},
			Score: r.Score,
		})
	}
	return rank(matches, topK), nil
}

func (q *QdrantIndex) do(ctx context.Context, method, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, url, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("qdrant decode: %w", err)
		}
	}
	return nil
}

var _ Index = (*QdrantIndex)(nil)

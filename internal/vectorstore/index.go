package vectorstore

import (
	"context"
	"math"
	"sort"
)

// Chunk is one indexed window of a document.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	DocType    string            `json:"doc_type"`
	Ordinal    int               `json:"ordinal"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Vector     []float32         `json:"-"`
	// Seq is the global insertion sequence, used to break score ties.
	Seq uint64 `json:"-"`
}

// Filter restricts a search. Empty fields match everything.
type Filter struct {
	DocType    string
	OwnerID    string
	DocumentID string
}

func (f Filter) matches(c Chunk) bool {
	if f.DocType != "" && c.DocType != f.DocType {
		return false
	}
	if f.OwnerID != "" && c.Metadata["owner_id"] != f.OwnerID {
		return false
	}
	if f.DocumentID != "" && c.DocumentID != f.DocumentID {
		return false
	}
	return true
}

// Match is a scored search hit.
type Match struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Index stores vectors and answers nearest-neighbour queries.
type Index interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)
}

// rank orders matches by descending score, then by ascending insertion sequence,
// and truncates to topK.
func rank(matches []Match, topK int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.Seq < matches[j].Chunk.Seq
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero
// or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

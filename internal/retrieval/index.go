package retrieval

import (
	"fmt"
	"math"
	"sort"

	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

// Chunk is an embedded piece of a document. Chunks are never mutated after
// the index is built.
type Chunk struct {
	ID        int
	Text      string
	Embedding []float32
	Source    Source
}

// Identity names the embedding function that produced every vector of an index.
type Identity struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

type BuildInfo struct {
	ChunkSize    int   `json:"chunk_size"`
	ChunkOverlap int   `json:"chunk_overlap"`
	BuiltAt      int64 `json:"built_at"`
}

type ScoredChunk struct {
	ID     int     `json:"id"`
	Text   string  `json:"text"`
	Source Source  `json:"source"`
	Score  float64 `json:"score"`
}

// Index is a read-only, brute-force cosine index. It is safe for concurrent
// queries because nothing writes to it after NewIndex returns.
type Index struct {
	identity Identity
	info     BuildInfo
	chunks   []Chunk
	norms    []float64
}

func NewIndex(model string, chunks []Chunk, info BuildInfo) (*Index, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model is unknown", appErr.ErrIndexInconsistency)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: index has no chunks", appErr.ErrIndexInconsistency)
	}
	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("%w: chunk %d has an empty embedding", appErr.ErrIndexInconsistency, chunks[0].ID)
	}
	owned := make([]Chunk, len(chunks))
	norms := make([]float64, len(chunks))
	for i, ch := range chunks {
		if len(ch.Embedding) != dim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, want %d",
				appErr.ErrIndexInconsistency, ch.ID, len(ch.Embedding), dim)
		}
		if ch.Text == "" {
			return nil, fmt.Errorf("%w: chunk %d has no text", appErr.ErrIndexInconsistency, ch.ID)
		}
		if !finite(ch.Embedding) {
			return nil, fmt.Errorf("%w: chunk %d has a non-finite embedding", appErr.ErrIndexInconsistency, ch.ID)
		}
		owned[i] = ch
		norms[i] = norm(ch.Embedding)
	}
	return &Index{
		identity: Identity{Model: model, Dimension: dim},
		info:     info,
		chunks:   owned,
		norms:    norms,
	}, nil
}

func (ix *Index) Identity() Identity {
	return ix.identity
}

func (ix *Index) Info() BuildInfo {
	return ix.info
}

func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Chunks returns the chunks in insertion order. Callers must not modify the embeddings.
func (ix *Index) Chunks() []Chunk {
	out := make([]Chunk, len(ix.chunks))
	copy(out, ix.chunks)
	return out
}

// Search scores every chunk against query and returns at most topK chunks
// scoring at least minScore, best first. Equal scores keep insertion order.
// best is the highest score seen, whether or not it cleared the floor.
func (ix *Index) Search(query []float32, topK int, minScore float64) (hits []ScoredChunk, best float64, err error) {
	if len(query) != ix.identity.Dimension {
		return nil, 0, fmt.Errorf("%w: query dimension %d, index dimension %d",
			appErr.ErrIndexInconsistency, len(query), ix.identity.Dimension)
	}
	if topK <= 0 {
		return nil, 0, nil
	}
	qn := norm(query)
	type candidate struct {
		pos   int
		score float64
	}
	candidates := make([]candidate, len(ix.chunks))
	for i, ch := range ix.chunks {
		candidates[i] = candidate{pos: i, score: cosine(query, qn, ch.Embedding, ix.norms[i])}
	}
	// NaN sorts last and never clears the floor
	sort.SliceStable(candidates, func(a, b int) bool {
		sa, sb := candidates[a].score, candidates[b].score
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		return sa > sb
	})
	best = candidates[0].score
	for _, c := range candidates {
		if len(hits) >= topK || !(c.score >= minScore) {
			break
		}
		ch := ix.chunks[c.pos]
		hits = append(hits, ScoredChunk{ID: ch.ID, Text: ch.Text, Source: ch.Source, Score: c.score})
	}
	return hits, best, nil
}

func finite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}

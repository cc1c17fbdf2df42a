package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/ai"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

const (
	DefaultTopK     = 2
	DefaultMinScore = 0.7
)

// Result is the outcome of one query. An empty Chunks slice is the
// "no relevant match" outcome, not an error.
type Result struct {
	Chunks    []ScoredChunk `json:"chunks"`
	BestScore float64       `json:"best_score"`
}

func (r *Result) NoMatch() bool {
	return r == nil || len(r.Chunks) == 0
}

type Retriever struct {
	index    *Index
	embedder ai.IEmbedder
	topK     int
	minScore float64
}

type RetrieverOption func(*Retriever)

func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		r.topK = k
	}
}

func WithMinScore(score float64) RetrieverOption {
	return func(r *Retriever) {
		r.minScore = score
	}
}

// NewRetriever refuses an embedder other than the one the index was built with.
func NewRetriever(index *Index, embedder ai.IEmbedder, opts ...RetrieverOption) (*Retriever, error) {
	if index == nil || index.Len() == 0 {
		return nil, fmt.Errorf("%w: index is empty", appErr.ErrIndexInconsistency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if got, want := embedder.ModelName(), index.Identity().Model; got != want {
		return nil, fmt.Errorf("%w: query embedder %q, index built with %q", appErr.ErrIndexInconsistency, got, want)
	}
	r := &Retriever{index: index, embedder: embedder, topK: DefaultTopK, minScore: DefaultMinScore}
	for _, opt := range opts {
		opt(r)
	}
	if r.topK <= 0 {
		r.topK = DefaultTopK
	}
	return r, nil
}

func (r *Retriever) TopK() int {
	return r.topK
}

func (r *Retriever) MinScore() float64 {
	return r.minScore
}

func (r *Retriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{}, nil
	}
	vec, err := r.embedder.Embed(ctx, query, ai.TaskTypeRetrievalQuery)
	if err != nil {
		if errors.Is(err, appErr.ErrExternalService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embed query: %v", appErr.ErrExternalService, err)
	}
	if !finite(vec) {
		return nil, fmt.Errorf("%w: query embedding has non-finite values", appErr.ErrExternalService)
	}
	hits, best, err := r.index.Search(vec, r.topK, r.minScore)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("retrieval finished",
		zap.Int("matches", len(hits)),
		zap.Float64("best_score", best),
		zap.Float64("min_score", r.minScore),
	)
	return &Result{Chunks: hits, BestScore: best}, nil
}

package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/hmochat/internal/ai"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

const defaultBuildConcurrency = 4

type ChunkFailure struct {
	Source Source `json:"source"`
	Error  string `json:"error"`
}

type BuildReport struct {
	Documents int            `json:"documents"`
	Pieces    int            `json:"pieces"`
	Embedded  int            `json:"embedded"`
	Failures  []ChunkFailure `json:"failures,omitempty"`
}

type Builder struct {
	chunker     *Chunker
	embedder    ai.IEmbedder
	concurrency int
	now         func() time.Time
}

type BuildOption func(*Builder)

func WithConcurrency(n int) BuildOption {
	return func(b *Builder) {
		b.concurrency = n
	}
}

func NewBuilder(chunker *Chunker, embedder ai.IEmbedder, opts ...BuildOption) *Builder {
	b := &Builder{
		chunker:     chunker,
		embedder:    embedder,
		concurrency: defaultBuildConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.concurrency <= 0 {
		b.concurrency = 1
	}
	return b
}

// Build chunks and embeds every document. A chunk whose embedding fails is
// skipped and reported; a build that ends with no chunk at all fails.
func (b *Builder) Build(ctx context.Context, docs []Document) (*Index, *BuildReport, error) {
	logger := logutil.GetLogger(ctx)
	report := &BuildReport{Documents: len(docs)}

	var pieces []Piece
	for _, doc := range docs {
		pieces = append(pieces, b.chunker.Split(doc)...)
	}
	report.Pieces = len(pieces)
	logger.Info("index build started",
		zap.Int("documents", len(docs)),
		zap.Int("pieces", len(pieces)),
		zap.String("model", b.embedder.ModelName()),
	)

	vectors := make([][]float32, len(pieces))
	errs := make([]error, len(pieces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range pieces {
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, pieces[i].Text, ai.TaskTypeRetrievalDocument)
			if err != nil {
				errs[i] = err
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	// the first usable vector in piece order fixes the dimension
	dim := 0
	for i, vec := range vectors {
		if errs[i] != nil {
			continue
		}
		switch {
		case len(vec) == 0:
			errs[i] = fmt.Errorf("empty embedding")
		case !finite(vec):
			errs[i] = fmt.Errorf("embedding has non-finite values")
		case dim == 0:
			dim = len(vec)
		case len(vec) != dim:
			errs[i] = fmt.Errorf("embedding dimension %d, want %d", len(vec), dim)
		}
	}

	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		if errs[i] != nil {
			logger.Warn("chunk skipped",
				zap.String("source", piece.Source.String()),
				zap.Int("offset", piece.Source.Offset),
				zap.Error(errs[i]),
			)
			report.Failures = append(report.Failures, ChunkFailure{Source: piece.Source, Error: errs[i].Error()})
			continue
		}
		chunks = append(chunks, Chunk{
			ID:        len(chunks),
			Text:      piece.Text,
			Embedding: vectors[i],
			Source:    piece.Source,
		})
	}
	report.Embedded = len(chunks)
	if len(chunks) == 0 {
		return nil, report, fmt.Errorf("%w: no usable chunks (%d pieces, %d failed)",
			appErr.ErrIndexInconsistency, len(pieces), len(report.Failures))
	}
	index, err := NewIndex(b.embedder.ModelName(), chunks, BuildInfo{
		ChunkSize:    b.chunker.Size(),
		ChunkOverlap: b.chunker.Overlap(),
		BuiltAt:      b.now().Unix(),
	})
	if err != nil {
		return nil, report, err
	}
	logger.Info("index build finished",
		zap.Int("chunks", index.Len()),
		zap.Int("skipped", len(report.Failures)),
		zap.Int("dimension", index.Identity().Dimension),
	)
	return index, report, nil
}

package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

type fixedDimEmbedder struct {
	dims map[string]int
	nan  map[string]bool
}

func (f *fixedDimEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	dim := 2
	if d, ok := f.dims[text]; ok {
		dim = d
	}
	vec := make([]float32, dim)
	vec[0] = 1
	if f.nan[text] {
		vec[0] = float32(math.NaN())
	}
	return vec, nil
}

func (f *fixedDimEmbedder) ModelName() string {
	return "test/fixed"
}

func TestBuilder_BuildsIndexInDocumentOrder(t *testing.T) {
	emb := newVocabEmbedder(coverageVocab...)
	b := NewBuilder(NewChunker(), emb, WithConcurrency(3))

	index, report, err := b.Build(context.Background(), coverageDocs)
	require.NoError(t, err)
	require.Equal(t, 2, index.Len())
	require.Equal(t, Identity{Model: "test/vocab", Dimension: len(coverageVocab)}, index.Identity())
	require.Equal(t, 2, report.Embedded)
	require.Empty(t, report.Failures)

	chunks := index.Chunks()
	require.Equal(t, 0, chunks[0].ID)
	require.Equal(t, "dental", chunks[0].Source.DocumentID)
	require.Equal(t, "optical", chunks[1].Source.DocumentID)
}

func TestBuilder_SkipsChunksThatFailToEmbed(t *testing.T) {
	emb := newVocabEmbedder(coverageVocab...)
	emb.fail = func(text string) bool { return strings.Contains(text, "Optical") }
	docs := append([]Document{{ID: "blank", Content: "   "}}, coverageDocs...)

	index, report, err := NewBuilder(NewChunker(), emb).Build(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 1, index.Len())
	require.Equal(t, 3, report.Documents)
	require.Equal(t, 2, report.Pieces)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "optical", report.Failures[0].Source.DocumentID)
}

func TestBuilder_ZeroUsableChunksIsFatal(t *testing.T) {
	emb := newVocabEmbedder(coverageVocab...)
	emb.fail = func(string) bool { return true }

	_, report, err := NewBuilder(NewChunker(), emb).Build(context.Background(), coverageDocs)
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))
	require.Len(t, report.Failures, 2)

	_, _, err = NewBuilder(NewChunker(), emb).Build(context.Background(), []Document{{ID: "empty", Content: ""}})
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))
}

func TestBuilder_MismatchedDimensionIsSkipped(t *testing.T) {
	emb := &fixedDimEmbedder{dims: map[string]int{"Optical coverage for silver tier": 3}}
	index, report, err := NewBuilder(NewChunker(), emb, WithConcurrency(2)).Build(context.Background(), coverageDocs)
	require.NoError(t, err)
	require.Equal(t, 1, index.Len())
	require.Equal(t, 2, index.Identity().Dimension)
	require.Equal(t, 1, report.Embedded)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "optical", report.Failures[0].Source.DocumentID)
	require.Contains(t, report.Failures[0].Error, "dimension 3, want 2")

	// the first piece fixes the dimension, whatever order the calls finish in
	emb = &fixedDimEmbedder{dims: map[string]int{"Dental coverage for gold tier": 5}}
	index, report, err = NewBuilder(NewChunker(), emb, WithConcurrency(2)).Build(context.Background(), coverageDocs)
	require.NoError(t, err)
	require.Equal(t, 5, index.Identity().Dimension)
	require.Equal(t, "optical", report.Failures[0].Source.DocumentID)
}

func TestBuilder_NonFiniteEmbeddingIsSkipped(t *testing.T) {
	emb := &fixedDimEmbedder{nan: map[string]bool{"Dental coverage for gold tier": true}}
	index, report, err := NewBuilder(NewChunker(), emb).Build(context.Background(), coverageDocs)
	require.NoError(t, err)
	require.Equal(t, 1, index.Len())
	require.Equal(t, "optical", index.Chunks()[0].Source.DocumentID)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "dental", report.Failures[0].Source.DocumentID)
}

func TestBuilder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewBuilder(NewChunker(), newVocabEmbedder(coverageVocab...)).Build(ctx, coverageDocs)
	require.ErrorIs(t, err, context.Canceled)
}

package retrieval

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hmochat/internal/ai"
	"github.com/xxxsen/hmochat/internal/config"
	"github.com/xxxsen/hmochat/internal/filestore"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

func buildCoverageRetriever(t *testing.T, emb ai.IEmbedder, opts ...RetrieverOption) *Retriever {
	t.Helper()
	index, _, err := NewBuilder(NewChunker(), emb).Build(context.Background(), coverageDocs)
	require.NoError(t, err)
	r, err := NewRetriever(index, emb, opts...)
	require.NoError(t, err)
	return r
}

func TestRetriever_DentalAndNonsense(t *testing.T) {
	r := buildCoverageRetriever(t, newVocabEmbedder(coverageVocab...), WithTopK(2), WithMinScore(0.3))
	ctx := context.Background()

	res, err := r.Retrieve(ctx, "dental")
	require.NoError(t, err)
	require.False(t, res.NoMatch())
	require.Equal(t, "dental", res.Chunks[0].Source.DocumentID)
	require.GreaterOrEqual(t, res.Chunks[0].Score, r.MinScore())
	for _, ch := range res.Chunks {
		require.GreaterOrEqual(t, ch.Score, 0.3)
	}

	res, err = r.Retrieve(ctx, "unrelated nonsense query xyz")
	require.NoError(t, err)
	require.True(t, res.NoMatch())
	require.Empty(t, res.Chunks)
}

func TestRetriever_LocalHashingEmbedderEndToEnd(t *testing.T) {
	p, err := ai.NewEmbedProvider("local", nil)
	require.NoError(t, err)
	r := buildCoverageRetriever(t, ai.NewEmbedder(p, "hashing-v1"), WithMinScore(0.3))

	res, err := r.Retrieve(context.Background(), "dental")
	require.NoError(t, err)
	require.False(t, res.NoMatch())
	require.Equal(t, "dental", res.Chunks[0].Source.DocumentID)

	res, err = r.Retrieve(context.Background(), "unrelated nonsense query xyz")
	require.NoError(t, err)
	require.True(t, res.NoMatch())
}

func TestRetriever_IsDeterministic(t *testing.T) {
	r := buildCoverageRetriever(t, newVocabEmbedder(coverageVocab...), WithMinScore(0))
	first, err := r.Retrieve(context.Background(), "coverage tier")
	require.NoError(t, err)
	second, err := r.Retrieve(context.Background(), "coverage tier")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first.Chunks, 2)
	// both documents tie; insertion order decides
	require.Equal(t, "dental", first.Chunks[0].Source.DocumentID)
}

func TestRetriever_RejectsForeignEmbedder(t *testing.T) {
	emb := newVocabEmbedder(coverageVocab...)
	index, _, err := NewBuilder(NewChunker(), emb).Build(context.Background(), coverageDocs)
	require.NoError(t, err)

	other := newVocabEmbedder(coverageVocab...)
	other.model = "test/vocab-v2"
	_, err = NewRetriever(index, other)
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))
}

func TestRetriever_EmbedFailureIsExternal(t *testing.T) {
	emb := newVocabEmbedder(coverageVocab...)
	r := buildCoverageRetriever(t, emb)
	emb.fail = func(string) bool { return true }

	_, err := r.Retrieve(context.Background(), "dental")
	require.True(t, errors.Is(err, appErr.ErrExternalService))
}

func TestRetriever_NonFiniteQueryIsExternal(t *testing.T) {
	emb := &fixedDimEmbedder{}
	r := buildCoverageRetriever(t, emb)
	emb.nan = map[string]bool{"dental": true}

	_, err := r.Retrieve(context.Background(), "dental")
	require.True(t, errors.Is(err, appErr.ErrExternalService))
}

func TestRetriever_BlankQueryIsNoMatch(t *testing.T) {
	r := buildCoverageRetriever(t, newVocabEmbedder(coverageVocab...))
	res, err := r.Retrieve(context.Background(), "   ")
	require.NoError(t, err)
	require.True(t, res.NoMatch())
}

func TestArtifact_SaveLoadKeepsRanking(t *testing.T) {
	emb := newVocabEmbedder(coverageVocab...)
	index, _, err := NewBuilder(NewChunker(WithChunkSize(300), WithOverlap(30)), emb).Build(context.Background(), coverageDocs)
	require.NoError(t, err)

	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, SaveIndex(ctx, store, "hmo_index.jsonl", index))

	loaded, err := LoadIndex(ctx, store, "hmo_index.jsonl")
	require.NoError(t, err)
	require.Equal(t, index.Identity(), loaded.Identity())
	require.Equal(t, 300, loaded.Info().ChunkSize)
	require.Equal(t, index.Chunks(), loaded.Chunks())

	r, err := NewRetriever(loaded, emb, WithMinScore(0.3))
	require.NoError(t, err)
	res, err := r.Retrieve(ctx, "optical")
	require.NoError(t, err)
	require.Equal(t, "optical", res.Chunks[0].Source.DocumentID)
}

func TestArtifact_TruncatedFileIsRejected(t *testing.T) {
	index, _, err := NewBuilder(NewChunker(), newVocabEmbedder(coverageVocab...)).Build(context.Background(), coverageDocs)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteIndex(&buf, index))

	lines := strings.SplitAfter(buf.String(), "\n")
	truncated := strings.Join(lines[:2], "")
	_, err = ReadIndex(strings.NewReader(truncated))
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))

	_, err = ReadIndex(strings.NewReader(`{"format":"other"}`))
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))
}

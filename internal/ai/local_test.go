package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestLocalEmbedder_DeterministicAndNormalized(t *testing.T) {
	p, err := NewEmbedProvider("local", map[string]interface{}{"dimension": 256})
	require.NoError(t, err)
	emb := NewEmbedder(p, "hashing-v1")
	require.Equal(t, "local/hashing-v1", emb.ModelName())

	a, err := emb.Embed(context.Background(), "Dental coverage for Gold tier", TaskTypeRetrievalDocument)
	require.NoError(t, err)
	b, err := emb.Embed(context.Background(), "dental   coverage, for gold TIER!", TaskTypeRetrievalQuery)
	require.NoError(t, err)
	require.Len(t, a, 256)
	require.Equal(t, a, b)
	require.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-6)
}

func TestLocalEmbedder_SharedWordsScoreHigher(t *testing.T) {
	p, err := NewEmbedProvider("local", nil)
	require.NoError(t, err)
	emb := NewEmbedder(p, "hashing-v1")
	ctx := context.Background()

	query, _ := emb.Embed(ctx, "dental", TaskTypeRetrievalQuery)
	dental, _ := emb.Embed(ctx, "dental coverage for gold tier", TaskTypeRetrievalDocument)
	optical, _ := emb.Embed(ctx, "optical coverage for silver tier", TaskTypeRetrievalDocument)
	require.Greater(t, dot(query, dental), dot(query, optical))
}

func TestLocalEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	p, err := NewEmbedProvider("local", map[string]interface{}{"dimension": 8})
	require.NoError(t, err)
	vec, err := p.Embed(context.Background(), "", "...", "")
	require.NoError(t, err)
	require.Equal(t, make([]float32, 8), vec)
}

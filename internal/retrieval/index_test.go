package retrieval

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

func chunk(id int, text string, vec ...float32) Chunk {
	return Chunk{ID: id, Text: text, Embedding: vec, Source: Source{DocumentID: text}}
}

func TestNewIndex_RejectsInconsistentInput(t *testing.T) {
	_, err := NewIndex("m", nil, BuildInfo{})
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))

	_, err = NewIndex("m", []Chunk{chunk(0, "a", 1, 0), chunk(1, "b", 1, 0, 0)}, BuildInfo{})
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))

	_, err = NewIndex("", []Chunk{chunk(0, "a", 1)}, BuildInfo{})
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))

	_, err = NewIndex("m", []Chunk{chunk(0, "a", 1, 0), chunk(1, "b", float32(math.NaN()), 0)}, BuildInfo{})
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))

	_, err = NewIndex("m", []Chunk{chunk(0, "a", float32(math.Inf(1)), 0)}, BuildInfo{})
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))
}

func TestIndexSearch_NaNQueryNeverClearsTheFloor(t *testing.T) {
	index, err := NewIndex("m", []Chunk{chunk(0, "a", 1, 0), chunk(1, "b", 0, 1)}, BuildInfo{})
	require.NoError(t, err)

	hits, _, err := index.Search([]float32{float32(math.NaN()), 1}, 2, -1)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestIndexSearch_OrdersByScoreAndCapsTopK(t *testing.T) {
	index, err := NewIndex("m", []Chunk{
		chunk(0, "low", 0, 1),
		chunk(1, "high", 1, 0),
		chunk(2, "mid", 1, 1),
	}, BuildInfo{})
	require.NoError(t, err)

	hits, best, err := index.Search([]float32{1, 0}, 2, -1)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "high", hits[0].Text)
	require.Equal(t, "mid", hits[1].Text)
	require.InDelta(t, 1.0, best, 1e-9)
	require.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestIndexSearch_TiesKeepInsertionOrder(t *testing.T) {
	var chunks []Chunk
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		chunks = append(chunks, chunk(i, name, 1, 1))
	}
	index, err := NewIndex("m", chunks, BuildInfo{})
	require.NoError(t, err)

	for run := 0; run < 3; run++ {
		hits, _, err := index.Search([]float32{2, 2}, 3, 0.5)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		require.Equal(t, []int{0, 1, 2}, []int{hits[0].ID, hits[1].ID, hits[2].ID})
	}
}

func TestIndexSearch_FloorDropsEverything(t *testing.T) {
	index, err := NewIndex("m", []Chunk{chunk(0, "a", 1, 0)}, BuildInfo{})
	require.NoError(t, err)

	hits, best, err := index.Search([]float32{0, 1}, 2, 0.7)
	require.NoError(t, err)
	require.Empty(t, hits)
	require.InDelta(t, 0.0, best, 1e-9)

	hits, _, err = index.Search([]float32{0, 0}, 2, 0.1)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestIndexSearch_DimensionMismatchFails(t *testing.T) {
	index, err := NewIndex("m", []Chunk{chunk(0, "a", 1, 0)}, BuildInfo{})
	require.NoError(t, err)
	_, _, err = index.Search([]float32{1, 0, 0}, 2, 0)
	require.True(t, errors.Is(err, appErr.ErrIndexInconsistency))
}

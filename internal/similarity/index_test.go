package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSimilarRanksByCosine(t *testing.T) {
	x := NewIndex()
	x.Add("c1", "d1", []float32{1, 0, 0})
	x.Add("c2", "d2", []float32{0.9, 0.1, 0})
	x.Add("c3", "d3", []float32{0, 1, 0})

	matches := x.FindSimilar([]float32{1, 0, 0}, 3, "")
	require.Len(t, matches, 3)
	assert.Equal(t, "c1", matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "c2", matches[1].ChunkID)
	assert.Equal(t, "c3", matches[2].ChunkID)
	assert.InDelta(t, 0.0, matches[2].Score, 1e-9)
}

func TestFindSimilarLimit(t *testing.T) {
	x := NewIndex()
	for _, id := range []string{"a", "b", "c", "d"} {
		x.Add(id, "doc", []float32{1, 1})
	}
	matches := x.FindSimilar([]float32{1, 1}, 2, "")
	assert.Len(t, matches, 2)
}

func TestFindSimilarExcludesDocument(t *testing.T) {
	x := NewIndex()
	x.Add("own", "mine", []float32{1, 0})
	x.Add("other", "theirs", []float32{1, 0})

	matches := x.FindSimilar([]float32{1, 0}, 10, "mine")
	require.Len(t, matches, 1)
	assert.Equal(t, "other", matches[0].ChunkID)
}

func TestFindSimilarSkipsDimensionMismatch(t *testing.T) {
	x := NewIndex()
	x.Add("short", "d1", []float32{1, 0})
	x.Add("long", "d2", []float32{1, 0, 0})

	matches := x.FindSimilar([]float32{1, 0, 0}, 10, "")
	require.Len(t, matches, 1)
	assert.Equal(t, "long", matches[0].ChunkID)
}

func TestFindSimilarTieBreaksByID(t *testing.T) {
	x := NewIndex()
	x.Add("zeta", "d", []float32{1, 0})
	x.Add("alpha", "d", []float32{1, 0})

	matches := x.FindSimilar([]float32{1, 0}, 2, "")
	require.Len(t, matches, 2)
	assert.Equal(t, "alpha", matches[0].ChunkID)
	assert.Equal(t, "zeta", matches[1].ChunkID)
}

func TestFindSimilarDegenerateInputs(t *testing.T) {
	x := NewIndex()
	x.Add("c", "d", []float32{1, 0})

	assert.Nil(t, x.FindSimilar(nil, 5, ""))
	assert.Nil(t, x.FindSimilar([]float32{0, 0}, 5, ""))
	assert.Nil(t, x.FindSimilar([]float32{1, 0}, 0, ""))
}

func TestRemoveDocument(t *testing.T) {
	x := NewIndex()
	x.Add("c1", "gone", []float32{1, 0})
	x.Add("c2", "gone", []float32{0, 1})
	x.Add("c3", "kept", []float32{1, 0})
	require.Equal(t, 3, x.Len())

	x.RemoveDocument("gone")
	assert.Equal(t, 1, x.Len())

	matches := x.FindSimilar([]float32{1, 0}, 10, "")
	require.Len(t, matches, 1)
	assert.Equal(t, "c3", matches[0].ChunkID)
}

func TestAddCopiesVector(t *testing.T) {
	x := NewIndex()
	v := []float32{1, 0}
	x.Add("c", "d", v)
	v[0] = 0

	matches := x.FindSimilar([]float32{1, 0}, 1, "")
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestAddReplacesExisting(t *testing.T) {
	x := NewIndex()
	x.Add("c", "d", []float32{1, 0})
	x.Add("c", "d", []float32{0, 1})
	assert.Equal(t, 1, x.Len())

	matches := x.FindSimilar([]float32{0, 1}, 1, "")
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

package store_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/newsrag/pkg/store"
)

func TestNewFlatIndex(t *testing.T) {
	_, err := store.NewFlatIndex(0)
	assert.Error(t, err)

	ix, err := store.NewFlatIndex(3)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Dim())
	assert.Equal(t, 0, ix.Size())
}

func TestFlatIndexAdd(t *testing.T) {
	ix, err := store.NewFlatIndex(2)
	require.NoError(t, err)

	require.NoError(t, ix.Add([]float32{1, 0}, []float32{0, 1}))
	assert.Equal(t, 2, ix.Size())
	assert.Equal(t, []float32{0, 1}, ix.Vector(1))

	err = ix.Add([]float32{1, 1}, []float32{1, 2, 3})
	assert.True(t, errors.Is(err, store.ErrDimensionMismatch))
	assert.Equal(t, 2, ix.Size(), "a rejected batch adds nothing")
}

func TestFlatIndexSearch(t *testing.T) {
	ix, err := store.NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, ix.Add([]float32{1, 0}, []float32{0, 1}, []float32{1, 1}))

	tests := []struct {
		name      string
		query     []float32
		k         int
		positions []int
	}{
		{"two nearest", []float32{0.9, 0.1}, 2, []int{0, 2}},
		{"k larger than size", []float32{0.9, 0.1}, 10, []int{0, 2, 1}},
		{"exact match first", []float32{0, 1}, 1, []int{1}},
		{"zero k", []float32{0, 1}, 0, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			neighbors, err := ix.Search(tt.query, tt.k)
			require.NoError(t, err)

			positions := make([]int, 0, len(neighbors))
			for i, n := range neighbors {
				positions = append(positions, n.Position)
				if i > 0 {
					assert.LessOrEqual(t, neighbors[i-1].Distance, n.Distance)
				}
			}
			assert.Equal(t, tt.positions, positions)
		})
	}
}

func TestFlatIndexSearchDistances(t *testing.T) {
	ix, err := store.NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, ix.Add([]float32{1, 0}, []float32{0, 1}, []float32{1, 1}))

	neighbors, err := ix.Search([]float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, neighbors, 3)

	assert.Equal(t, 1, neighbors[0].Position)
	assert.Equal(t, float32(0), neighbors[0].Distance)
	assert.InDelta(t, 1.0, neighbors[1].Distance, 1e-6)
	assert.InDelta(t, 2.0, neighbors[2].Distance, 1e-6)
}

func TestFlatIndexSearchTiesKeepInsertionOrder(t *testing.T) {
	ix, err := store.NewFlatIndex(1)
	require.NoError(t, err)
	require.NoError(t, ix.Add([]float32{1}, []float32{-1}, []float32{1}))

	neighbors, err := ix.Search([]float32{0}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, neighbors[0].Position)
	assert.Equal(t, 1, neighbors[1].Position)
	assert.Equal(t, 2, neighbors[2].Position)
}

func TestFlatIndexSearchDimensionMismatch(t *testing.T) {
	ix, err := store.NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, ix.Add([]float32{1, 0}))

	_, err = ix.Search([]float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, store.ErrDimensionMismatch))
}

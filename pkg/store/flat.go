package store

import (
	"slices"

	"github.com/m-mizutani/goerr/v2"
)

var ErrDimensionMismatch = goerr.New("vector dimension mismatch")

// Neighbor is one search result: the position of a stored vector and its
// squared L2 distance to the query.
type Neighbor struct {
	Position int
	Distance float32
}

// FlatIndex stores vectors contiguously and answers exact L2 queries by
// comparing against every stored vector.
type FlatIndex struct {
	dim  int
	data []float32
}

func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, goerr.New("index dimension must be positive", goerr.V("dim", dim))
	}
	return &FlatIndex{dim: dim}, nil
}

func (ix *FlatIndex) Dim() int { return ix.dim }

func (ix *FlatIndex) Size() int { return len(ix.data) / ix.dim }

// Add appends vectors. Either all are added or none.
func (ix *FlatIndex) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != ix.dim {
			return goerr.Wrap(ErrDimensionMismatch, "cannot add vector",
				goerr.V("position", i), goerr.V("want", ix.dim), goerr.V("got", len(v)))
		}
	}
	for _, v := range vectors {
		ix.data = append(ix.data, v...)
	}
	return nil
}

// Vector returns a copy of the stored vector at position i.
func (ix *FlatIndex) Vector(i int) []float32 {
	return slices.Clone(ix.data[i*ix.dim : (i+1)*ix.dim])
}

// Search returns the min(k, Size()) nearest vectors, nearest first. Equal
// distances keep insertion order.
func (ix *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != ix.dim {
		return nil, goerr.Wrap(ErrDimensionMismatch, "cannot search index",
			goerr.V("want", ix.dim), goerr.V("got", len(query)))
	}
	n := ix.Size()
	if k <= 0 || n == 0 {
		return []Neighbor{}, nil
	}

	all := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		all[i] = Neighbor{Position: i, Distance: squaredL2(query, ix.data[i*ix.dim:(i+1)*ix.dim])}
	}
	slices.SortStableFunc(all, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if k > n {
		k = n
	}
	return all[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

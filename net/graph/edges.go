package graph

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrSize is returned for non-positive graph dimensions
var ErrSize = errors.New("graph: entities and samples must be positive")

// Edges is the edge list of a batch of complete directed graphs with self-loops.
// Edge k carries a message from row Src[k] to row Dst[k].
type Edges struct {
	Src []int
	Dst []int

	// Entities is the number of entities per sample
	Entities int
	// Samples is the number of samples in the batch
	Samples int
}

// Build creates the edges of samples graphs of n entities each. The edges of
// sample b connect only rows in [b·n, (b+1)·n). Edges are enumerated by
// sample, then source, then destination.
func Build(n, samples int) (Edges, error) {
	if n <= 0 || samples <= 0 {
		return Edges{}, errors.Wrapf(ErrSize, "n=%d samples=%d", n, samples)
	}
	e := Edges{
		Src:      make([]int, 0, samples*n*n),
		Dst:      make([]int, 0, samples*n*n),
		Entities: n,
		Samples:  samples,
	}
	for b := 0; b < samples; b++ {
		base := b * n
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				e.Src = append(e.Src, base+i)
				e.Dst = append(e.Dst, base+j)
			}
		}
	}
	return e, nil
}

// Len reports the number of edges
func (e Edges) Len() int {
	return len(e.Src)
}

// Nodes reports the number of entity rows covered by the edges
func (e Edges) Nodes() int {
	return e.Entities * e.Samples
}

// Features returns the constant zero edge feature matrix, width columns per edge.
func (e Edges) Features(width int) *mat.Dense {
	return mat.NewDense(e.Len(), width, nil)
}

// Permute returns the same edge set enumerated in the order given by perm.
func (e Edges) Permute(perm []int) Edges {
	o := Edges{
		Src:      make([]int, len(perm)),
		Dst:      make([]int, len(perm)),
		Entities: e.Entities,
		Samples:  e.Samples,
	}
	for k, p := range perm {
		o.Src[k] = e.Src[p]
		o.Dst[k] = e.Dst[p]
	}
	return o
}

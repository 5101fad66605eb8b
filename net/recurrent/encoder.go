package recurrent

import (
	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/datasets"
	"gonum.org/v1/gonum/mat"
)

// Inputs lays the batch out as one encoder input row per entity:
// position, one-hot color, one-hot marker, one-hot anchor and one-hot jump
// count. The query part repeats on every entity of its sample.
func (m *Model) Inputs(b datasets.Batch) *mat.Dense {
	cfg := m.Config
	n, w := cfg.Entities, cfg.InputWidth()
	out := mat.NewDense(len(b)*n, w, nil)
	colors := 2
	markers := colors + cfg.Colors
	anchors := markers + cfg.Markers
	jumps := anchors + cfg.Vocabulary
	for s := range b {
		sample := &b[s]
		for e := 0; e < n; e++ {
			row := s*n + e
			out.Set(row, 0, sample.Positions[e][0])
			out.Set(row, 1, sample.Positions[e][1])
			out.Set(row, colors+sample.Colors[e], 1)
			out.Set(row, markers+sample.Markers[e], 1)
			out.Set(row, anchors+sample.Anchor, 1)
			out.Set(row, jumps+sample.Jumps, 1)
		}
	}
	return out
}

// Encode maps every entity of the batch to its initial state of width Hidden.
func (m *Model) Encode(t *autograd.Tape, b datasets.Batch) *autograd.Var {
	return m.Pre.Forward(t, t.Constant(m.Inputs(b)))
}

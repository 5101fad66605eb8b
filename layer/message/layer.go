// Package message implements sum-aggregated message passing over an entity graph
package message

import (
	"math/rand"

	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/layer/full"
	"github.com/neurlang/reasoner/net/graph"
)

// Passing computes one message per edge with a shared perceptron and sums the
// messages arriving at every destination entity
type Passing struct {
	Fn *full.MLP
}

// New creates message passing for states of width hidden and edge features of
// width edgeWidth. Messages have width hidden.
func New(scope string, hidden, edgeWidth int, rng *rand.Rand) (*Passing, error) {
	fn, err := full.NewMLP(scope, 2*hidden+edgeWidth, hidden, hidden, rng)
	if err != nil {
		return nil, err
	}
	return &Passing{Fn: fn}, nil
}

// Params lists the message function parameters
func (p *Passing) Params() []*autograd.Param {
	return p.Fn.Params()
}

// Messages computes the per-edge messages Fn([x[src], x[dst], features])
func (p *Passing) Messages(t *autograd.Tape, x *autograd.Var, e graph.Edges, features *autograd.Var) *autograd.Var {
	in := t.ConcatCols(t.GatherRows(x, e.Src), t.GatherRows(x, e.Dst), features)
	return p.Fn.Forward(t, in)
}

// Forward returns one aggregated message row per entity row of x
func (p *Passing) Forward(t *autograd.Tape, x *autograd.Var, e graph.Edges, features *autograd.Var) *autograd.Var {
	rows, _ := x.Value.Dims()
	return t.ScatterAddRows(p.Messages(t, x, e, features), e.Dst, rows)
}

// Package lstm implements a long short-term memory cell
package lstm

import (
	"math/rand"

	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/layer"
	"github.com/pkg/errors"
)

// ForgetBias is added to the forget gate pre-activation
const ForgetBias = 1.0

// Cell is an LSTM cell without peepholes. The kernel maps [input, h] to the
// four gate pre-activations laid out as input, candidate, forget, output.
type Cell struct {
	Kernel     *autograd.Param
	Bias       *autograd.Param
	Hidden     int
	ForgetBias float64
}

// State is the visible state H and the memory cell C of every row
type State struct {
	C *autograd.Var
	H *autograd.Var
}

// New creates a cell with input width in and hidden width hidden
func New(scope string, in, hidden int, rng *rand.Rand) (*Cell, error) {
	if in <= 0 || hidden <= 0 {
		return nil, errors.Errorf("lstm: invalid cell size %dx%d", in, hidden)
	}
	return &Cell{
		Kernel:     autograd.NewParam(scope+"/kernel", layer.Glorot(rng, in+hidden, 4*hidden)),
		Bias:       autograd.NewParam(scope+"/bias", layer.Zeros(1, 4*hidden)),
		Hidden:     hidden,
		ForgetBias: ForgetBias,
	}, nil
}

// Params lists kernel then bias
func (c *Cell) Params() []*autograd.Param {
	return []*autograd.Param{c.Kernel, c.Bias}
}

// ZeroState returns the all-zero state for rows rows
func (c *Cell) ZeroState(t *autograd.Tape, rows int) State {
	return State{
		C: t.Constant(layer.Zeros(rows, c.Hidden)),
		H: t.Constant(layer.Zeros(rows, c.Hidden)),
	}
}

// Forward advances the state by one input x and returns the new visible state
func (c *Cell) Forward(t *autograd.Tape, x *autograd.Var, s State) (*autograd.Var, State) {
	h := c.Hidden
	z := t.AddRow(t.MatMul(t.ConcatCols(x, s.H), t.Param(c.Kernel)), t.Param(c.Bias))

	i := t.Sigmoid(t.SliceCols(z, 0, h))
	j := t.Tanh(t.SliceCols(z, h, 2*h))
	f := t.Sigmoid(t.AddScalar(t.SliceCols(z, 2*h, 3*h), c.ForgetBias))
	o := t.Sigmoid(t.SliceCols(z, 3*h, 4*h))

	cell := t.Add(t.Mul(f, s.C), t.Mul(i, j))
	out := t.Mul(o, t.Tanh(cell))
	return out, State{C: cell, H: out}
}

package recurrent

import (
	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/layer/lstm"
	"github.com/neurlang/reasoner/net/graph"
)

// Step runs one reasoning step. x0 is the initial encoding, x the current
// entity states and s the recurrent state carried from the previous step.
func (m *Model) Step(t *autograd.Tape, x0, x *autograd.Var, s lstm.State, e graph.Edges, features *autograd.Var) (*autograd.Var, lstm.State) {
	msg := m.Message.Forward(t, x, e, features)
	x = m.Post.Forward(t, t.ConcatCols(msg, x0))
	if m.Norm != nil {
		x = m.Norm.Forward(t, x)
	}
	return m.Cell.Forward(t, x, s)
}

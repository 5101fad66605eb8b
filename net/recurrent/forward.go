package recurrent

import (
	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/net/graph"
)

// Output collects everything one forward pass produces.
type Output struct {
	// Loss is the deep supervised training loss.
	Loss *autograd.Var
	// Steps holds the readout of every reasoning step in order.
	Steps []Readout
	// Hidden is the entity state after the last step.
	Hidden *autograd.Var
}

// StepLosses lists the scalar loss of every step.
func (o *Output) StepLosses() []float64 {
	out := make([]float64, len(o.Steps))
	for i, s := range o.Steps {
		out[i] = s.Loss.Scalar()
	}
	return out
}

// Predictions lists the predicted labels, indexed by step then sample.
func (o *Output) Predictions() [][]int {
	out := make([][]int, len(o.Steps))
	for i, s := range o.Steps {
		out[i] = s.Predictions
	}
	return out
}

// Forward runs the full network over b on tape t. The batch is validated
// against the model contract first.
func (m *Model) Forward(t *autograd.Tape, b datasets.Batch) (*Output, error) {
	if err := b.Validate(m.Contract()); err != nil {
		return nil, err
	}
	edges, err := graph.Build(m.Config.Entities, len(b))
	if err != nil {
		return nil, err
	}
	features := t.Constant(edges.Features(m.Config.EdgeFeatures))
	targets := b.Targets()

	x0 := m.Encode(t, b)
	x, state := x0, m.Cell.ZeroState(t, edges.Nodes())
	out := &Output{Steps: make([]Readout, 0, m.Config.Steps)}
	losses := make([]*autograd.Var, 0, m.Config.Steps)
	for i := 0; i < m.Config.Steps; i++ {
		x, state = m.Step(t, x0, x, state, edges, features)
		r := m.Readout(t, x, targets)
		out.Steps = append(out.Steps, r)
		losses = append(losses, r.Loss)
	}
	out.Hidden = x
	if out.Loss, err = DeepSupervision(t, losses); err != nil {
		return nil, err
	}
	return out, nil
}

package recurrent

import (
	"github.com/neurlang/reasoner/autograd"
)

// Readout is the answer of one step.
type Readout struct {
	Logits      *autograd.Var
	Loss        *autograd.Var
	Predictions []int
}

// Readout sum-pools the entity states of every sample, projects them to
// answer logits and scores them against targets in bits.
func (m *Model) Readout(t *autograd.Tape, x *autograd.Var, targets []int) Readout {
	pooled := t.SumGroups(x, m.Config.Entities)
	logits := m.Out.Forward(t, pooled)
	return Readout{
		Logits:      logits,
		Loss:        t.SoftmaxCrossEntropy(logits, targets),
		Predictions: autograd.Argmax(logits.Value),
	}
}

package recurrent

import (
	"github.com/neurlang/reasoner/autograd"
	"github.com/pkg/errors"
)

// ErrNoSteps is returned when there are no step losses to aggregate.
var ErrNoSteps = errors.New("recurrent: no step losses")

// DeepSupervision averages the per step losses with equal weights.
func DeepSupervision(t *autograd.Tape, losses []*autograd.Var) (*autograd.Var, error) {
	if len(losses) == 0 {
		return nil, ErrNoSteps
	}
	return t.Mean(losses...), nil
}

package learning

import (
	"math"

	"github.com/neurlang/reasoner/autograd"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when gradients do not line up with the parameters.
var ErrShape = errors.New("learning: gradient shape mismatch")

// Adam holds the moment estimates of every parameter. Updates use the bias
// corrected step size lr·sqrt(1-β2^t)/(1-β1^t).
type Adam struct {
	HyperParameters

	First  []*mat.Dense
	Second []*mat.Dense
	// Steps counts the applied updates.
	Steps int64
}

// NewAdam creates zero moments shaped like params.
func NewAdam(h HyperParameters, params []*autograd.Param) *Adam {
	a := &Adam{HyperParameters: h}
	for _, p := range params {
		r, c := p.Value.Dims()
		a.First = append(a.First, mat.NewDense(r, c, nil))
		a.Second = append(a.Second, mat.NewDense(r, c, nil))
	}
	return a
}

// Apply performs one update of params in place.
func (a *Adam) Apply(params []*autograd.Param, grads []*mat.Dense) error {
	if len(params) != len(grads) || len(params) != len(a.First) {
		return errors.Wrapf(ErrShape, "%d params, %d grads, %d slots", len(params), len(grads), len(a.First))
	}
	for i, p := range params {
		pr, pc := p.Value.Dims()
		gr, gc := grads[i].Dims()
		if pr != gr || pc != gc {
			return errors.Wrapf(ErrShape, "%s is %dx%d, gradient %dx%d", p.Name, pr, pc, gr, gc)
		}
	}

	a.Steps++
	t := float64(a.Steps)
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))
	for i, p := range params {
		w := p.Value.RawMatrix().Data
		g := grads[i].RawMatrix().Data
		m := a.First[i].RawMatrix().Data
		v := a.Second[i].RawMatrix().Data
		for k := range w {
			m[k] = a.Beta1*m[k] + (1-a.Beta1)*g[k]
			v[k] = a.Beta2*v[k] + (1-a.Beta2)*g[k]*g[k]
			w[k] -= lr * m[k] / (math.Sqrt(v[k]) + a.Epsilon)
		}
	}
	return nil
}

package learning

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Average returns the element-wise mean of the gradients of every replica.
// replicas[d][i] is the gradient of parameter i computed by replica d.
func Average(replicas [][]*mat.Dense) ([]*mat.Dense, error) {
	if len(replicas) == 0 {
		return nil, errors.Wrap(ErrShape, "no replicas")
	}
	out := make([]*mat.Dense, len(replicas[0]))
	for i := range out {
		out[i] = mat.DenseCopyOf(replicas[0][i])
		for d := 1; d < len(replicas); d++ {
			if len(replicas[d]) != len(out) {
				return nil, errors.Wrapf(ErrShape, "replica %d has %d gradients, want %d", d, len(replicas[d]), len(out))
			}
			out[i].Add(out[i], replicas[d][i])
		}
		out[i].Scale(1/float64(len(replicas)), out[i])
	}
	return out, nil
}

// Clip clamps every component of grads to [-bound, bound] in place.
// NaN components are left alone so that they still surface.
func Clip(grads []*mat.Dense, bound float64) {
	for _, g := range grads {
		data := g.RawMatrix().Data
		for k, x := range data {
			switch {
			case x > bound:
				data[k] = bound
			case x < -bound:
				data[k] = -bound
			}
		}
	}
}

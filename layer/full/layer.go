// Package full implements a fully connected layer and the multi-layer perceptron built from it
package full

import (
	"fmt"
	"math/rand"

	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/layer"
	"github.com/pkg/errors"
)

// FullLayer is a dense affine transform, optionally followed by a ReLU
type FullLayer struct {
	Weights *autograd.Param
	Biases  *autograd.Param
	ReLU    bool
}

// MustNew creates a new full layer mapping in features to out features
func MustNew(name string, in, out int, relu bool, rng *rand.Rand) *FullLayer {
	o, err := New(name, in, out, relu, rng)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new full layer mapping in features to out features
func New(name string, in, out int, relu bool, rng *rand.Rand) (o *FullLayer, err error) {
	if in <= 0 || out <= 0 {
		return nil, errors.Errorf("full: invalid layer size %dx%d", in, out)
	}
	o = new(FullLayer)
	o.Weights = autograd.NewParam(fmt.Sprintf("%s/weights", name), layer.Glorot(rng, in, out))
	o.Biases = autograd.NewParam(fmt.Sprintf("%s/biases", name), layer.Zeros(1, out))
	o.ReLU = relu
	return
}

// Params lists weights then biases
func (f *FullLayer) Params() []*autograd.Param {
	return []*autograd.Param{f.Weights, f.Biases}
}

// Forward computes x·W + b, rectified when the layer has ReLU set
func (f *FullLayer) Forward(t *autograd.Tape, x *autograd.Var) *autograd.Var {
	y := t.AddRow(t.MatMul(x, t.Param(f.Weights)), t.Param(f.Biases))
	if f.ReLU {
		y = t.ReLU(y)
	}
	return y
}

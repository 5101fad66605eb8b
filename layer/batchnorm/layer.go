// Package batchnorm implements batch normalization with learned scale and shift
package batchnorm

import (
	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/layer"
	"github.com/pkg/errors"
)

// Epsilon is the default variance floor
const Epsilon = 1e-3

// Norm normalizes every feature over the rows of its input
type Norm struct {
	Gamma   *autograd.Param
	Beta    *autograd.Param
	Epsilon float64
}

// New creates a normalization over width features, scale 1 and shift 0
func New(scope string, width int) (*Norm, error) {
	if width <= 0 {
		return nil, errors.Errorf("batchnorm: invalid width %d", width)
	}
	return &Norm{
		Gamma:   autograd.NewParam(scope+"/gamma", layer.Ones(1, width)),
		Beta:    autograd.NewParam(scope+"/beta", layer.Zeros(1, width)),
		Epsilon: Epsilon,
	}, nil
}

// Params lists gamma then beta
func (n *Norm) Params() []*autograd.Param {
	return []*autograd.Param{n.Gamma, n.Beta}
}

// Forward normalizes x with the statistics of x itself
func (n *Norm) Forward(t *autograd.Tape, x *autograd.Var) *autograd.Var {
	return t.BatchNorm(x, t.Param(n.Gamma), t.Param(n.Beta), n.Epsilon)
}

// Package layer defines the parameterized layer interface of the reasoning network
package layer

import "github.com/neurlang/reasoner/autograd"

// Layer is a transform whose trainable weights live outside any single forward pass
type Layer interface {

	// Params lists the trainable weights of the layer in a stable order.
	Params() []*autograd.Param
}

// Collect concatenates the parameters of layers, in order.
func Collect(layers ...Layer) (o []*autograd.Param) {
	for _, l := range layers {
		o = append(o, l.Params()...)
	}
	return
}

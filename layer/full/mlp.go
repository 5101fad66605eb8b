package full

import (
	"fmt"
	"math/rand"

	"github.com/neurlang/reasoner/autograd"
)

// HiddenLayers is the number of rectified layers preceding the output projection
const HiddenLayers = 3

// MLP is a stack of HiddenLayers rectified full layers and one linear output layer
type MLP struct {
	Layers []*FullLayer
}

// NewMLP creates a perceptron mapping in features to out features through
// HiddenLayers hidden layers of width hidden. Layer names follow the
// "<scope>/fully_connected_<i>" convention.
func NewMLP(scope string, in, hidden, out int, rng *rand.Rand) (*MLP, error) {
	m := new(MLP)
	width := in
	for i := 0; i <= HiddenLayers; i++ {
		name := scope + "/fully_connected"
		if i > 0 {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		size, relu := hidden, true
		if i == HiddenLayers {
			size, relu = out, false
		}
		l, err := New(name, width, size, relu, rng)
		if err != nil {
			return nil, err
		}
		m.Layers = append(m.Layers, l)
		width = size
	}
	return m, nil
}

// In reports the input width
func (m *MLP) In() int {
	r, _ := m.Layers[0].Weights.Value.Dims()
	return r
}

// Out reports the output width
func (m *MLP) Out() int {
	_, c := m.Layers[len(m.Layers)-1].Weights.Value.Dims()
	return c
}

// Params lists the parameters of all layers in order
func (m *MLP) Params() (o []*autograd.Param) {
	for _, l := range m.Layers {
		o = append(o, l.Params()...)
	}
	return
}

// Forward applies every layer in order
func (m *MLP) Forward(t *autograd.Tape, x *autograd.Var) *autograd.Var {
	for _, l := range m.Layers {
		x = l.Forward(t, x)
	}
	return x
}

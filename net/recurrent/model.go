package recurrent

import (
	"math/rand"

	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/config"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/layer"
	"github.com/neurlang/reasoner/layer/batchnorm"
	"github.com/neurlang/reasoner/layer/full"
	"github.com/neurlang/reasoner/layer/lstm"
	"github.com/neurlang/reasoner/layer/message"
	"github.com/pkg/errors"
)

// Model holds the single canonical parameter set of the network. Forward
// passes only read the parameters, so any number of tapes may run over one
// Model concurrently as long as nobody updates it meanwhile.
type Model struct {
	Config config.Model

	Pre     *full.MLP
	Message *message.Passing
	Post    *full.MLP
	// Norm is nil when batch normalization is disabled.
	Norm *batchnorm.Norm
	Cell *lstm.Cell
	Out  *full.MLP

	params []*autograd.Param
}

// New creates a freshly initialized model.
func New(cfg config.Model) (*Model, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	h := cfg.Hidden

	m := &Model{Config: cfg}
	var err error
	if m.Pre, err = full.NewMLP("pre", cfg.InputWidth(), h, h, rng); err != nil {
		return nil, err
	}
	if m.Message, err = message.New("steps/message-fn", h, cfg.EdgeFeatures, rng); err != nil {
		return nil, err
	}
	if m.Post, err = full.NewMLP("steps/post", 2*h, h, h, rng); err != nil {
		return nil, err
	}
	if cfg.BatchNorm {
		if m.Norm, err = batchnorm.New("steps/bn", h); err != nil {
			return nil, err
		}
	}
	if m.Cell, err = lstm.New("steps/lstm_cell", h, h, rng); err != nil {
		return nil, err
	}
	if m.Out, err = full.NewMLP("steps/out", h, h, cfg.Vocabulary, rng); err != nil {
		return nil, err
	}

	layers := []layer.Layer{m.Pre, m.Message, m.Post}
	if m.Norm != nil {
		layers = append(layers, m.Norm)
	}
	layers = append(layers, m.Cell, m.Out)
	m.params = layer.Collect(layers...)
	return m, nil
}

// MustNew is New that panics on error.
func MustNew(cfg config.Model) *Model {
	m, err := New(cfg)
	if err != nil {
		panic(err.Error())
	}
	return m
}

func validate(cfg config.Model) error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"entities", cfg.Entities},
		{"steps", cfg.Steps},
		{"hidden", cfg.Hidden},
		{"colors", cfg.Colors},
		{"markers", cfg.Markers},
		{"vocabulary", cfg.Vocabulary},
		{"edge features", cfg.EdgeFeatures},
	} {
		if v.value <= 0 {
			return errors.Wrapf(config.ErrConfig, "model %s must be positive, got %d", v.name, v.value)
		}
	}
	return nil
}

// Params lists every trainable parameter in a stable order.
func (m *Model) Params() []*autograd.Param {
	return m.params
}

// Param finds a parameter by name.
func (m *Model) Param(name string) *autograd.Param {
	for _, p := range m.params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Size reports the total number of trainable weights.
func (m *Model) Size() (n int) {
	for _, p := range m.params {
		n += p.Len()
	}
	return
}

// Contract is the shape of the batches the model accepts.
func (m *Model) Contract() datasets.Contract {
	return datasets.Contract{
		Entities:   m.Config.Entities,
		Colors:     m.Config.Colors,
		Markers:    m.Config.Markers,
		Vocabulary: m.Config.Vocabulary,
	}
}

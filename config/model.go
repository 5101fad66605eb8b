package config

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrConfig marks a configuration error. Configuration errors are fatal at
// construction time and never recovered.
var ErrConfig = errors.New("configuration error")

// Config is the complete configuration of a run.
type Config struct {
	Run         Run
	Model       Model
	Train       Train
	Diagnostics Diagnostics
	Log         Log
}

// Run identifies a run.
type Run struct {
	ID       string `hcl:"id,optional"`
	Revision string `hcl:"revision,optional"`
	Message  string `hcl:"message,optional"`
}

// Name is the human readable run name "<revision> <message>".
func (r Run) Name() string {
	return fmt.Sprintf("%s %s", r.Revision, r.Message)
}

// Model holds the network dimensions.
type Model struct {
	Entities     int   `hcl:"entities,optional"`
	Steps        int   `hcl:"steps,optional"`
	Hidden       int   `hcl:"hidden,optional"`
	Colors       int   `hcl:"colors,optional"`
	Markers      int   `hcl:"markers,optional"`
	Vocabulary   int   `hcl:"vocabulary,optional"`
	EdgeFeatures int   `hcl:"edge_features,optional"`
	BatchNorm    bool  `hcl:"batch_norm,optional"`
	Seed         int64 `hcl:"seed,optional"`
}

// InputWidth is the width of one encoder input row: position, one-hot color,
// one-hot marker, one-hot anchor and one-hot jump count.
func (m Model) InputWidth() int {
	return 2 + m.Colors + m.Markers + m.QueryWidth()
}

// QueryWidth is the width of the encoded query.
func (m Model) QueryWidth() int {
	return m.Vocabulary + m.Entities
}

// Train holds the optimization settings.
type Train struct {
	BatchSize    int     `hcl:"batch_size,optional"`
	Devices      int     `hcl:"devices,optional"`
	LearningRate float64 `hcl:"learning_rate,optional"`
	Beta1        float64 `hcl:"beta1,optional"`
	Beta2        float64 `hcl:"beta2,optional"`
	Epsilon      float64 `hcl:"epsilon,optional"`
	Clip         float64 `hcl:"clip,optional"`
	Seed         int64   `hcl:"seed,optional"`
}

// Diagnostics selects where evaluation summaries go.
type Diagnostics struct {
	SQLite     string `hcl:"sqlite,optional"`
	SocketIO   string `hcl:"socketio,optional"`
	Namespace  string `hcl:"namespace,optional"`
	Histograms bool   `hcl:"histograms,optional"`
	Ratio      bool   `hcl:"ratio,optional"`
	Buckets    int    `hcl:"buckets,optional"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Default returns the configuration of the reference Pretty-CLEVR run.
func Default() Config {
	return Config{
		Model: Model{
			Entities:     8,
			Steps:        8,
			Hidden:       128,
			Colors:       8,
			Markers:      8,
			Vocabulary:   16,
			EdgeFeatures: 1,
			BatchNorm:    true,
			Seed:         1,
		},
		Train: Train{
			BatchSize:    512,
			LearningRate: 1e-4,
			Beta1:        0.9,
			Beta2:        0.999,
			Epsilon:      1e-8,
			Clip:         1,
			Seed:         1,
		},
		Diagnostics: Diagnostics{
			Namespace:  "/",
			Histograms: true,
			Buckets:    30,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Identify assigns a fresh run id when none is configured.
func (c *Config) Identify() {
	if c.Run.ID == "" {
		c.Run.ID = uuid.NewString()
	}
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	m, t := c.Model, c.Train
	positive := []struct {
		name  string
		value int
	}{
		{"model.entities", m.Entities},
		{"model.steps", m.Steps},
		{"model.hidden", m.Hidden},
		{"model.colors", m.Colors},
		{"model.markers", m.Markers},
		{"model.vocabulary", m.Vocabulary},
		{"model.edge_features", m.EdgeFeatures},
		{"train.batch_size", t.BatchSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return errors.Wrapf(ErrConfig, "%s must be positive, got %d", p.name, p.value)
		}
	}
	if t.Devices < 0 {
		return errors.Wrapf(ErrConfig, "train.devices must not be negative, got %d", t.Devices)
	}
	if t.Devices > 0 && t.BatchSize%t.Devices != 0 {
		return errors.Wrapf(ErrConfig, "train.batch_size %d is not divisible by %d devices", t.BatchSize, t.Devices)
	}
	if t.LearningRate <= 0 || t.Epsilon <= 0 || t.Clip <= 0 {
		return errors.Wrap(ErrConfig, "train.learning_rate, train.epsilon and train.clip must be positive")
	}
	if t.Beta1 < 0 || t.Beta1 >= 1 || t.Beta2 < 0 || t.Beta2 >= 1 {
		return errors.Wrap(ErrConfig, "train.beta1 and train.beta2 must lie in [0, 1)")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrConfig, "invalid log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Wrapf(ErrConfig, "invalid log.format %q", c.Log.Format)
	}
	return nil
}

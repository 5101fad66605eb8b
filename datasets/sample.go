package datasets

import (
	"context"

	"github.com/pkg/errors"
)

// ErrContract marks a batch violating the input contract.
var ErrContract = errors.New("data contract violation")

// ErrExhausted is returned by a finite Source after its last batch.
var ErrExhausted = errors.New("source exhausted")

// Sample is one scene and its query. The image is opaque to the model and may
// be empty.
type Sample struct {
	Image     []byte
	Positions [][2]float64
	Colors    []int
	Markers   []int
	Anchor    int
	Jumps     int
	Target    int
}

// Entities reports the number of objects in the scene.
func (s *Sample) Entities() int {
	return len(s.Positions)
}

// Contract describes the shape every batch must have. A zero Size accepts
// any batch size.
type Contract struct {
	Size       int
	Entities   int
	Colors     int
	Markers    int
	Vocabulary int
}

// Batch is a run of samples sharing the same entity count.
type Batch []Sample

// Validate checks b against c without clamping anything.
func (b Batch) Validate(c Contract) error {
	if len(b) == 0 {
		return errors.Wrap(ErrContract, "empty batch")
	}
	if c.Size > 0 && len(b) != c.Size {
		return errors.Wrapf(ErrContract, "batch size %d, want %d", len(b), c.Size)
	}
	for i := range b {
		s := &b[i]
		if len(s.Positions) != c.Entities || len(s.Colors) != c.Entities || len(s.Markers) != c.Entities {
			return errors.Wrapf(ErrContract, "sample %d: %d/%d/%d entities, want %d",
				i, len(s.Positions), len(s.Colors), len(s.Markers), c.Entities)
		}
		for e := 0; e < c.Entities; e++ {
			if s.Colors[e] < 0 || s.Colors[e] >= c.Colors {
				return errors.Wrapf(ErrContract, "sample %d entity %d: color %d out of range", i, e, s.Colors[e])
			}
			if s.Markers[e] < 0 || s.Markers[e] >= c.Markers {
				return errors.Wrapf(ErrContract, "sample %d entity %d: marker %d out of range", i, e, s.Markers[e])
			}
		}
		if s.Anchor < 0 || s.Anchor >= c.Vocabulary {
			return errors.Wrapf(ErrContract, "sample %d: anchor %d out of range", i, s.Anchor)
		}
		if s.Target < 0 || s.Target >= c.Vocabulary {
			return errors.Wrapf(ErrContract, "sample %d: target %d out of range", i, s.Target)
		}
		if s.Jumps < 0 || s.Jumps >= c.Entities {
			return errors.Wrapf(ErrContract, "sample %d: jump count %d out of range", i, s.Jumps)
		}
	}
	return nil
}

// Split partitions b in order into d equal shards.
func (b Batch) Split(d int) ([]Batch, error) {
	if d <= 0 || len(b)%d != 0 {
		return nil, errors.Wrapf(ErrContract, "cannot split %d samples into %d shards", len(b), d)
	}
	size := len(b) / d
	out := make([]Batch, d)
	for i := range out {
		out[i] = b[i*size : (i+1)*size : (i+1)*size]
	}
	return out, nil
}

// Targets lists the target label of every sample.
func (b Batch) Targets() []int {
	out := make([]int, len(b))
	for i := range b {
		out[i] = b[i].Target
	}
	return out
}

// JumpCounts lists the jump count of every sample.
func (b Batch) JumpCounts() []int {
	out := make([]int, len(b))
	for i := range b {
		out[i] = b[i].Jumps
	}
	return out
}

// Source yields batches lazily. Next returns ErrExhausted when a finite
// source runs dry.
type Source interface {
	Next(ctx context.Context) (Batch, error)
	Entities() int
}

// Restartable is a Source that can rewind to its first batch.
type Restartable interface {
	Source
	Reset()
}

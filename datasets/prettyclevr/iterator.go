package prettyclevr

import (
	"context"

	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/hash"
	"github.com/pkg/errors"
)

// Split selects a partition of the scene index space.
type Split int

const (
	Train Split = iota
	Validation
)

func (s Split) String() string {
	if s == Validation {
		return "test"
	}
	return "train"
}

// Folds is the number of hash buckets; bucket zero is held out for validation.
const Folds = 10

// AnyJumps draws the jump count of every query at random.
const AnyJumps = -1

// MaxEntities is the most objects a scene can hold with distinct attributes.
const MaxEntities = 8

// Options configure an Iterator.
type Options struct {
	Entities  int
	BatchSize int
	Split     Split
	Seed      int64
	// Jumps fixes the jump count of every query, or is AnyJumps.
	Jumps int
	// Limit caps the number of batches; zero never runs dry.
	Limit int
}

// Iterator is a restartable lazy batch sequence. It implements
// datasets.Source.
type Iterator struct {
	opts    Options
	index   uint32
	batches int
}

// New creates an iterator positioned at the first scene of the split.
func New(opts Options) (*Iterator, error) {
	if opts.Entities <= 0 || opts.Entities > MaxEntities {
		return nil, errors.Wrapf(datasets.ErrContract, "entities must be in 1..%d, got %d", MaxEntities, opts.Entities)
	}
	if opts.BatchSize <= 0 {
		return nil, errors.Wrapf(datasets.ErrContract, "batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.Jumps >= opts.Entities {
		return nil, errors.Wrapf(datasets.ErrContract, "jump count %d out of range", opts.Jumps)
	}
	return &Iterator{opts: opts}, nil
}

// MustNew is New that panics on error.
func MustNew(opts Options) *Iterator {
	it, err := New(opts)
	if err != nil {
		panic(err.Error())
	}
	return it
}

// Entities reports the number of objects per scene.
func (it *Iterator) Entities() int {
	return it.opts.Entities
}

// Split reports the partition the iterator walks.
func (it *Iterator) Split() Split {
	return it.opts.Split
}

// Reset rewinds the iterator to its first batch.
func (it *Iterator) Reset() {
	it.index = 0
	it.batches = 0
}

// Next returns the next batch of the split.
func (it *Iterator) Next(ctx context.Context) (datasets.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.opts.Limit > 0 && it.batches >= it.opts.Limit {
		return nil, datasets.ErrExhausted
	}
	batch := make(datasets.Batch, 0, it.opts.BatchSize)
	for len(batch) < it.opts.BatchSize {
		index := it.index
		it.index++
		if InSplit(it.opts.Seed, index) != it.opts.Split {
			continue
		}
		batch = append(batch, Scene(it.opts.Seed, index, it.opts.Entities, it.opts.Jumps))
	}
	it.batches++
	return batch, nil
}

// InSplit reports which partition scene index belongs to.
func InSplit(seed int64, index uint32) Split {
	if hash.Fold(index, seed, Folds) == 0 {
		return Validation
	}
	return Train
}

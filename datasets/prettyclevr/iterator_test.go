package prettyclevr

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurlang/reasoner/datasets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contract(n int) datasets.Contract {
	return datasets.Contract{
		Entities:   n,
		Colors:     len(datasets.Colors),
		Markers:    len(datasets.Markers),
		Vocabulary: datasets.VocabularySize(),
	}
}

func TestSceneDeterministic(t *testing.T) {
	a := Scene(5, 42, 8, AnyJumps)
	b := Scene(5, 42, 8, AnyJumps)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("scene not deterministic (-a +b):\n%s", diff)
	}
	c := Scene(5, 43, 8, AnyJumps)
	assert.NotEqual(t, a.Positions, c.Positions)
}

func TestSceneDistinctAttributes(t *testing.T) {
	for i := uint32(0); i < 50; i++ {
		s := Scene(1, i, 8, AnyJumps)
		require.NoError(t, datasets.Batch{s}.Validate(contract(8)))
		seen := map[int]bool{}
		for e := 0; e < 8; e++ {
			assert.False(t, seen[s.Colors[e]], "scene %d repeats a color", i)
			seen[s.Colors[e]] = true
		}
	}
}

func TestZeroJumpsIsLookup(t *testing.T) {
	for i := uint32(0); i < 50; i++ {
		s := Scene(3, i, 6, 0)
		assert.Equal(t, 0, s.Jumps)
		assert.Equal(t, s.Anchor, s.Target)
	}
}

func TestJumpFollowsFarthest(t *testing.T) {
	for i := uint32(0); i < 50; i++ {
		s := Scene(9, i, 8, 1)
		// anchor and target share a kind
		assert.Equal(t, s.Anchor < len(datasets.Colors), s.Target < len(datasets.Colors))
		assert.NotEqual(t, s.Anchor, s.Target)
	}
}

func TestFarthest(t *testing.T) {
	pos := [][2]float64{{0, 0}, {0.5, 0.5}, {1, 1}, {1, 1}}
	assert.Equal(t, 2, Farthest(pos, 0))
	assert.Equal(t, 0, Farthest(pos, 2))
	assert.Equal(t, 0, Farthest([][2]float64{{0.3, 0.3}}, 0))
}

func TestSplitsPartition(t *testing.T) {
	var validation int
	for i := uint32(0); i < 10000; i++ {
		if InSplit(1, i) == Validation {
			validation++
		}
	}
	assert.InDelta(t, 1000, validation, 400)
}

func TestIterator(t *testing.T) {
	ctx := context.Background()
	it := MustNew(Options{Entities: 8, BatchSize: 16, Split: Validation, Seed: 1, Jumps: AnyJumps, Limit: 2})
	assert.Equal(t, 8, it.Entities())

	first, err := it.Next(ctx)
	require.NoError(t, err)
	require.Len(t, first, 16)
	require.NoError(t, first.Validate(contract(8)))

	_, err = it.Next(ctx)
	require.NoError(t, err)
	_, err = it.Next(ctx)
	assert.ErrorIs(t, err, datasets.ErrExhausted)

	it.Reset()
	again, err := it.Next(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("reset did not restart the sequence (-first +again):\n%s", diff)
	}
}

func TestIteratorDisjointSplits(t *testing.T) {
	ctx := context.Background()
	train := MustNew(Options{Entities: 4, BatchSize: 64, Split: Train, Jumps: AnyJumps})
	test := MustNew(Options{Entities: 4, BatchSize: 64, Split: Validation, Jumps: AnyJumps})
	a, err := train.Next(ctx)
	require.NoError(t, err)
	b, err := test.Next(ctx)
	require.NoError(t, err)
	for i := range a {
		for j := range b {
			assert.NotEqual(t, a[i].Positions, b[j].Positions)
		}
	}
}

func TestIteratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MustNew(Options{Entities: 8, BatchSize: 1, Jumps: AnyJumps}).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewErrors(t *testing.T) {
	for _, o := range []Options{
		{Entities: 0, BatchSize: 1},
		{Entities: 9, BatchSize: 1},
		{Entities: 8, BatchSize: 0},
		{Entities: 4, BatchSize: 1, Jumps: 4},
	} {
		_, err := New(o)
		assert.ErrorIs(t, err, datasets.ErrContract)
	}
}

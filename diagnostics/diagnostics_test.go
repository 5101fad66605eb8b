package diagnostics

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/logging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestAccuraciesSkipEmptyBuckets(t *testing.T) {
	targets := []int{1, 2, 3, 4}
	jumps := []int{0, 0, 3, 3}
	predictions := [][]int{
		{1, 0, 3, 0},
		{1, 2, 3, 4},
	}
	got := Accuracies(predictions, targets, jumps)
	want := []Accuracy{
		{Step: 0, Jumps: 0, Value: 0.5, Count: 2},
		{Step: 0, Jumps: 3, Value: 0.5, Count: 2},
		{Step: 1, Jumps: 0, Value: 1, Count: 2},
		{Step: 1, Jumps: 3, Value: 1, Count: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("accuracies (-want +got):\n%s", diff)
	}
	assert.Equal(t, "acc/1/3", got[3].Tag())
}

func TestScalars(t *testing.T) {
	s := &Snapshot{Loss: 2.5, Accuracy: []Accuracy{{Step: 0, Jumps: 1, Value: 0.75}}}
	assert.Equal(t, map[string]float64{"loss": 2.5, "acc/0/1": 0.75}, s.Scalars())
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("x", []float64{4, 1, 2, 3}, 3)
	assert.Equal(t, 1.0, h.Min)
	assert.Equal(t, 4.0, h.Max)
	assert.Equal(t, 2.5, h.Mean)
	assert.Equal(t, 4, h.Count)
	require.Len(t, h.Counts, 3)
	assert.Equal(t, 4.0, floats.Sum(h.Counts))
	assert.Equal(t, []float64{1, 1, 2}, h.Counts)

	constant := NewHistogram("c", []float64{0, 0}, 5)
	assert.Equal(t, 2.0, floats.Sum(constant.Counts))
	assert.Equal(t, 0.0, constant.StdDev)

	single := NewHistogram("s", []float64{7}, 2)
	assert.Equal(t, 0.0, single.StdDev)

	empty := NewHistogram("e", nil, 4)
	assert.Nil(t, empty.Counts)
}

func TestHistogramSkipsNonFinite(t *testing.T) {
	h := NewHistogram("x", []float64{math.NaN(), 1, math.Inf(1), 3, math.Inf(-1)}, 4)
	assert.Equal(t, 2, h.Count)
	assert.Equal(t, 3, h.NonFinite)
	assert.Equal(t, 1.0, h.Min)
	assert.Equal(t, 3.0, h.Max)
	assert.Equal(t, 2.0, floats.Sum(h.Counts))

	none := NewHistogram("n", []float64{math.NaN(), math.Inf(1)}, 4)
	assert.Zero(t, none.Count)
	assert.Equal(t, 2, none.NonFinite)
	assert.Nil(t, none.Counts)
}

func TestRatioAtNegativeEpsilonWeight(t *testing.T) {
	p := autograd.NewParam("w", mat.NewDense(1, 2, []float64{-RatioEpsilon, 1}))
	g := mat.NewDense(1, 2, []float64{1, 1})
	hs := ParamHistograms([]*autograd.Param{p}, []*mat.Dense{g}, true, 4)
	require.Len(t, hs, 3)
	assert.Equal(t, "g_ratio/w", hs[2].Tag)
	assert.Equal(t, 1, hs[2].Count)
	assert.Equal(t, 1, hs[2].NonFinite)
}

func TestParamHistograms(t *testing.T) {
	p := autograd.NewParam("w", mat.NewDense(1, 2, []float64{1, -2}))
	g := mat.NewDense(1, 2, []float64{0.5, 0.5})
	hs := ParamHistograms([]*autograd.Param{p}, []*mat.Dense{g}, true, 4)
	require.Len(t, hs, 3)
	assert.Equal(t, "vars/w", hs[0].Tag)
	assert.Equal(t, "grads/w", hs[1].Tag)
	assert.Equal(t, "g_ratio/w", hs[2].Tag)
	assert.InDelta(t, -0.25, hs[2].Min, 1e-6)
	assert.InDelta(t, 0.5, hs[2].Max, 1e-6)

	assert.Len(t, ParamHistograms([]*autograd.Param{p}, []*mat.Dense{g}, false, 4), 2)
	assert.Len(t, ParamHistograms([]*autograd.Param{p}, nil, true, 4), 1)
}

type failing struct{ closed bool }

func (f *failing) Write(context.Context, *Snapshot) error {
	return errors.New("offline")
}

func (f *failing) Close() error {
	f.closed = true
	return nil
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New("debug", "text", &buf))
	f := &failing{}
	m := Multi{Log{}, f}
	err := m.Write(ctx, &Snapshot{Split: "test", Step: 3, Loss: 1.5, Caption: "red 0 red",
		Accuracy: []Accuracy{{Step: 0, Jumps: 0, Value: 1, Count: 1}}})
	assert.ErrorContains(t, err, "offline")
	assert.Contains(t, buf.String(), "loss=1.5")
	assert.Contains(t, buf.String(), "acc/0/0")
	require.NoError(t, m.Close())
	assert.True(t, f.closed)
}

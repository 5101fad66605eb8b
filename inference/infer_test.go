package inference

import (
	"testing"

	"github.com/neurlang/reasoner/config"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/datasets/prettyclevr"
	"github.com/neurlang/reasoner/net/recurrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func model() *recurrent.Model {
	cfg := config.Default().Model
	cfg.Entities = 4
	cfg.Steps = 3
	cfg.Hidden = 8
	return recurrent.MustNew(cfg)
}

func scenes(size int) datasets.Batch {
	b := make(datasets.Batch, size)
	for i := range b {
		b[i] = prettyclevr.Scene(3, uint32(i), 4, prettyclevr.AnyJumps)
	}
	return b
}

func TestInferShapes(t *testing.T) {
	m := model()
	b := scenes(6)
	r, err := Infer(m, b)
	require.NoError(t, err)
	require.Len(t, r.Predictions, 3)
	require.Len(t, r.StepLosses, 3)
	for _, p := range r.Predictions {
		assert.Len(t, p, 6)
	}
	var total int
	for _, a := range r.Accuracy {
		if a.Step == 0 {
			total += a.Count
		}
	}
	assert.Equal(t, 6, total)
	assert.Greater(t, r.Loss, 0.0)
}

func TestInferDoesNotChangeParams(t *testing.T) {
	m := model()
	before := m.Param("steps/lstm_cell/kernel").Value.At(0, 0)
	_, err := Infer(m, scenes(4))
	require.NoError(t, err)
	assert.Equal(t, before, m.Param("steps/lstm_cell/kernel").Value.At(0, 0))
}

func TestInferRejectsContractViolation(t *testing.T) {
	b := scenes(2)
	b[1].Anchor = 99
	_, err := Infer(model(), b)
	assert.ErrorIs(t, err, datasets.ErrContract)
}

func TestTallyMatchesSingleBatch(t *testing.T) {
	m := model()
	b := scenes(8)
	r, err := Infer(m, b)
	require.NoError(t, err)

	var tally Tally
	tally.Add(b[:4], &Report{Loss: 1, Predictions: head(r.Predictions, 0, 4)})
	tally.Add(b[4:], &Report{Loss: 3, Predictions: head(r.Predictions, 4, 8)})
	assert.Equal(t, 2, tally.Len())
	assert.InDelta(t, 2, tally.Loss(), 1e-12)

	got := tally.Accuracy()
	require.Len(t, got, len(r.Accuracy))
	for i := range got {
		assert.Equal(t, r.Accuracy[i].Step, got[i].Step)
		assert.Equal(t, r.Accuracy[i].Jumps, got[i].Jumps)
		assert.Equal(t, r.Accuracy[i].Count, got[i].Count)
		assert.InDelta(t, r.Accuracy[i].Value, got[i].Value, 1e-12)
	}
}

func TestEmptyTally(t *testing.T) {
	var tally Tally
	assert.Zero(t, tally.Loss())
	assert.Empty(t, tally.Accuracy())
}

func head(preds [][]int, from, to int) [][]int {
	out := make([][]int, len(preds))
	for s := range preds {
		out[s] = preds[s][from:to]
	}
	return out
}

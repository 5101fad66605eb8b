package socketio

import (
	"encoding/json"
	"testing"

	"github.com/neurlang/reasoner/diagnostics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload(t *testing.T) {
	snap := &diagnostics.Snapshot{
		RunID:      "run",
		RunName:    "abc baseline",
		Split:      "train",
		Step:       7,
		Loss:       1.25,
		Accuracy:   []diagnostics.Accuracy{{Step: 2, Jumps: 1, Value: 0.5, Count: 2}},
		Caption:    "blue 1 red\nbrr",
		Histograms: []diagnostics.Histogram{diagnostics.NewHistogram("grads/w", []float64{-1, 1}, 2)},
	}
	raw, err := json.Marshal(Payload(snap))
	require.NoError(t, err)

	var back struct {
		Run        string             `json:"run"`
		Split      string             `json:"split"`
		Step       int64              `json:"step"`
		Scalars    map[string]float64 `json:"scalars"`
		Caption    string             `json:"caption"`
		Histograms []struct {
			Tag    string    `json:"tag"`
			Counts []float64 `json:"counts"`
		} `json:"histograms"`
	}
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "run", back.Run)
	assert.Equal(t, "train", back.Split)
	assert.Equal(t, int64(7), back.Step)
	assert.Equal(t, map[string]float64{"loss": 1.25, "acc/2/1": 0.5}, back.Scalars)
	assert.Equal(t, "blue 1 red\nbrr", back.Caption)
	require.Len(t, back.Histograms, 1)
	assert.Equal(t, "grads/w", back.Histograms[0].Tag)
	assert.Equal(t, []float64{1, 1}, back.Histograms[0].Counts)
}

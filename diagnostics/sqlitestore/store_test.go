package sqlitestore

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurlang/reasoner/diagnostics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	st, err := Open(filepath.Join(t.TempDir(), "summaries.db"))
	require.NoError(t, err)
	defer st.Close()

	var _ diagnostics.Sink = st

	hist := diagnostics.NewHistogram("vars/w", []float64{1, 2, 3, 4, math.NaN()}, 2)
	for step, loss := range []float64{3, 2, 1} {
		require.NoError(t, st.Write(ctx, &diagnostics.Snapshot{
			RunID:      "run",
			RunName:    "abc baseline",
			Split:      "test",
			Step:       int64(step),
			Loss:       loss,
			Accuracy:   []diagnostics.Accuracy{{Step: 0, Jumps: 0, Value: float64(step) / 2, Count: 4}},
			Caption:    "red 0 red\nrrr",
			Histograms: []diagnostics.Histogram{hist},
		}))
	}

	points, err := st.Scalars(ctx, "run", "loss")
	require.NoError(t, err)
	want := []Point{{"test", 0, 3}, {"test", 1, 2}, {"test", 2, 1}}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("loss history (-want +got):\n%s", diff)
	}

	acc, err := st.Scalars(ctx, "run", "acc/0/0")
	require.NoError(t, err)
	require.Len(t, acc, 3)
	assert.Equal(t, 1.0, acc[2].Value)

	got, err := st.Histogram(ctx, "run", "test", 1, "vars/w")
	require.NoError(t, err)
	if diff := cmp.Diff(hist, got); diff != "" {
		t.Errorf("histogram (-want +got):\n%s", diff)
	}

	captions, err := st.Captions(ctx, "run", "test")
	require.NoError(t, err)
	assert.Len(t, captions, 3)

	none, err := st.Scalars(ctx, "other", "loss")
	require.NoError(t, err)
	assert.Empty(t, none)
}

package trainer

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/neurlang/reasoner/checkpoint"
	"github.com/neurlang/reasoner/config"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/datasets/prettyclevr"
	"github.com/neurlang/reasoner/device"
	"github.com/neurlang/reasoner/diagnostics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type recorder struct {
	snaps []*diagnostics.Snapshot
}

func (r *recorder) Write(_ context.Context, s *diagnostics.Snapshot) error {
	r.snaps = append(r.snaps, s)
	return nil
}

func (r *recorder) Close() error { return nil }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Model.Entities = 4
	cfg.Model.Steps = 2
	cfg.Model.Hidden = 8
	cfg.Train.BatchSize = 8
	cfg.Diagnostics.Histograms = false
	return cfg
}

func devices(t *testing.T, n, batch int) []device.Device {
	t.Helper()
	devs, err := device.Enumerate(device.Host{Cores: n, Threads: n}, n, batch)
	require.NoError(t, err)
	return devs
}

func newTrainer(t *testing.T, cfg config.Config, n int, o Options) *Trainer {
	t.Helper()
	o.Config = cfg
	o.Devices = devices(t, n, cfg.Train.BatchSize)
	if o.Sink == nil {
		o.Sink = &recorder{}
	}
	tr, err := New(o)
	require.NoError(t, err)
	return tr
}

func batch(n, size int, seed int64) datasets.Batch {
	b := make(datasets.Batch, size)
	for i := range b {
		b[i] = prettyclevr.Scene(seed, uint32(i), n, prettyclevr.AnyJumps)
	}
	return b
}

func assertGradsEqual(t *testing.T, want, got []*mat.Dense) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, mat.EqualApprox(want[i], got[i], 1e-9), "gradient %d differs", i)
	}
}

func TestShardedGradientsMatchSingleDevice(t *testing.T) {
	cfg := testConfig()
	cfg.Model.BatchNorm = false
	one := newTrainer(t, cfg, 1, Options{})
	two := newTrainer(t, cfg, 2, Options{})
	b := batch(4, 8, 3)

	ctx := context.Background()
	r1, err := one.Run(ctx, b, true)
	require.NoError(t, err)
	r2, err := two.Run(ctx, b, true)
	require.NoError(t, err)

	assert.InDelta(t, r1.Loss, r2.Loss, 1e-12)
	assert.Equal(t, r1.Predictions, r2.Predictions)
	assertGradsEqual(t, r1.Grads, r2.Grads)
}

func TestShardedGradientsMatchWithBatchNormOnMirroredBatch(t *testing.T) {
	cfg := testConfig()
	one := newTrainer(t, cfg, 1, Options{})
	two := newTrainer(t, cfg, 2, Options{})
	half := batch(4, 4, 5)
	b := append(append(datasets.Batch{}, half...), half...)

	ctx := context.Background()
	r1, err := one.Run(ctx, b, true)
	require.NoError(t, err)
	r2, err := two.Run(ctx, b, true)
	require.NoError(t, err)

	assert.InDelta(t, r1.Loss, r2.Loss, 1e-12)
	assert.Equal(t, r1.Predictions, r2.Predictions)
	assertGradsEqual(t, r1.Grads, r2.Grads)
}

func TestStepAdvancesOncePerTrainingCall(t *testing.T) {
	tr := newTrainer(t, testConfig(), 2, Options{})
	ctx := context.Background()
	assert.Equal(t, int64(0), tr.Step())
	for i := 1; i <= 3; i++ {
		_, err := tr.Train(ctx, batch(4, 8, int64(i)))
		require.NoError(t, err)
		assert.Equal(t, int64(i), tr.Step())
	}
	_, err := tr.Evaluate(ctx, batch(4, 8, 9))
	require.NoError(t, err)
	assert.Equal(t, int64(3), tr.Step())
}

func TestTrainingChangesParameters(t *testing.T) {
	tr := newTrainer(t, testConfig(), 1, Options{})
	before := Fingerprint(tr.Model().Params())
	_, err := tr.Train(context.Background(), batch(4, 8, 1))
	require.NoError(t, err)
	assert.NotEqual(t, before, Fingerprint(tr.Model().Params()))
}

func TestNonFiniteLoss(t *testing.T) {
	tr := newTrainer(t, testConfig(), 2, Options{})
	tr.Model().Param("steps/out/fully_connected_3/biases").Value.Set(0, 0, math.NaN())
	kernel := mat.DenseCopyOf(tr.Model().Param("steps/lstm_cell/kernel").Value)

	_, err := tr.Train(context.Background(), batch(4, 8, 1))
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, int64(0), tr.Step())
	assert.True(t, mat.Equal(kernel, tr.Model().Param("steps/lstm_cell/kernel").Value))
}

func TestEvaluateNonFiniteWithHistograms(t *testing.T) {
	cfg := testConfig()
	cfg.Diagnostics.Histograms = true
	cfg.Diagnostics.Ratio = true
	rec := &recorder{}
	tr := newTrainer(t, cfg, 2, Options{Sink: rec})
	tr.Model().Param("steps/out/fully_connected_3/biases").Value.Set(0, 0, math.NaN())

	var err error
	require.NotPanics(t, func() {
		_, err = tr.Evaluate(context.Background(), batch(4, 8, 1))
	})
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Empty(t, rec.snaps)
}

func TestContractViolations(t *testing.T) {
	tr := newTrainer(t, testConfig(), 2, Options{})
	ctx := context.Background()
	_, err := tr.Train(ctx, batch(4, 6, 1))
	assert.ErrorIs(t, err, datasets.ErrContract)

	b := batch(4, 8, 1)
	b[3].Jumps = 4
	_, err = tr.Train(ctx, b)
	assert.ErrorIs(t, err, datasets.ErrContract)
	assert.Equal(t, int64(0), tr.Step())
}

func TestConfigErrors(t *testing.T) {
	cfg := testConfig()
	_, err := New(Options{Config: cfg, Devices: devices(t, 3, 9)})
	assert.ErrorIs(t, err, config.ErrConfig)

	src := prettyclevr.MustNew(prettyclevr.Options{Entities: 5, BatchSize: 8, Jumps: prettyclevr.AnyJumps})
	_, err = New(Options{Config: cfg, Devices: devices(t, 2, 8), Train: src})
	assert.ErrorIs(t, err, config.ErrConfig)

	cfg.Train.BatchSize = 0
	_, err = New(Options{Config: cfg})
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestSources(t *testing.T) {
	cfg := testConfig()
	train := prettyclevr.MustNew(prettyclevr.Options{Entities: 4, BatchSize: 8, Split: prettyclevr.Train, Jumps: prettyclevr.AnyJumps})
	test := prettyclevr.MustNew(prettyclevr.Options{Entities: 4, BatchSize: 8, Split: prettyclevr.Validation, Jumps: prettyclevr.AnyJumps, Limit: 1})
	tr := newTrainer(t, cfg, 2, Options{Train: train, Test: test})
	ctx := context.Background()

	_, err := tr.TrainBatch(ctx)
	require.NoError(t, err)
	_, err = tr.EvalBatch(ctx)
	require.NoError(t, err)
	_, err = tr.EvalBatch(ctx)
	assert.ErrorIs(t, err, datasets.ErrExhausted)

	bare := newTrainer(t, cfg, 1, Options{})
	_, err = bare.TrainBatch(ctx)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestEvaluateSnapshot(t *testing.T) {
	cfg := testConfig()
	cfg.Diagnostics.Histograms = true
	cfg.Diagnostics.Ratio = true
	cfg.Run.Revision = "abc"
	cfg.Run.Message = "test"
	rec := &recorder{}
	tr := newTrainer(t, cfg, 2, Options{Sink: rec})

	b := batch(4, 8, 2)
	loss, err := tr.Evaluate(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, rec.snaps, 1)

	snap := rec.snaps[0]
	assert.Equal(t, loss, snap.Loss)
	assert.Equal(t, "abc test", snap.RunName)
	assert.NotEmpty(t, snap.RunID)
	assert.NotEmpty(t, snap.Accuracy)
	for _, a := range snap.Accuracy {
		assert.Positive(t, a.Count)
		assert.Less(t, a.Step, 2)
	}
	assert.Contains(t, snap.Caption, datasets.Label(b[0].Anchor))
	// vars, grads and g_ratio for every parameter
	assert.Len(t, snap.Histograms, 3*len(tr.Model().Params()))
}

func TestCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "model.ckpt")

	cfg := testConfig()
	a := newTrainer(t, cfg, 2, Options{})
	for i := 0; i < 2; i++ {
		_, err := a.Train(ctx, batch(4, 8, int64(i)))
		require.NoError(t, err)
	}
	require.NoError(t, a.Save(path))

	cfg.Model.Seed = 77
	b := newTrainer(t, cfg, 2, Options{})
	require.NotEqual(t, Fingerprint(a.Model().Params()), Fingerprint(b.Model().Params()))
	require.NoError(t, b.Load(path))
	assert.Equal(t, int64(2), b.Step())
	assert.Equal(t, a.Config().Run.ID, b.Config().Run.ID)
	assert.Equal(t, Fingerprint(a.Model().Params()), Fingerprint(b.Model().Params()))

	// identical optimizer state keeps the two runs in lockstep
	next := batch(4, 8, 10)
	_, err := a.Train(ctx, next)
	require.NoError(t, err)
	_, err = b.Train(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(a.Model().Params()), Fingerprint(b.Model().Params()))
}

func TestLoadRejectsOtherModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, newTrainer(t, testConfig(), 1, Options{}).Save(path))

	cfg := testConfig()
	cfg.Model.Hidden = 6
	tr := newTrainer(t, cfg, 1, Options{})
	before := Fingerprint(tr.Model().Params())
	assert.ErrorIs(t, tr.Load(path), checkpoint.ErrCorrupt)
	assert.Equal(t, before, Fingerprint(tr.Model().Params()))
}

func TestMissingCheckpoint(t *testing.T) {
	tr := newTrainer(t, testConfig(), 1, Options{})
	missing := filepath.Join(t.TempDir(), "none.ckpt")
	assert.ErrorIs(t, tr.Load(missing), checkpoint.ErrNotFound)
	assert.ErrorIs(t, Resume(context.Background(), tr, true, missing), checkpoint.ErrNotFound)
	assert.NoError(t, Resume(context.Background(), tr, false, missing))
}

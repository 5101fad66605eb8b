package trainer

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/config"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/device"
	"github.com/neurlang/reasoner/diagnostics"
	"github.com/neurlang/reasoner/learning"
	"github.com/neurlang/reasoner/logging"
	"github.com/neurlang/reasoner/net/recurrent"
	"github.com/neurlang/reasoner/parallel"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNonFinite is returned when a loss or gradient is NaN or infinite. The
// update is not applied.
var ErrNonFinite = errors.New("non-finite loss")

// ErrNoSource is returned by TrainBatch or EvalBatch without a source.
var ErrNoSource = errors.New("no data source")

// Options configure a Trainer.
type Options struct {
	Config config.Config
	// Train and Test feed TrainBatch and EvalBatch. Either may be nil when
	// only the explicit batch calls are used.
	Train datasets.Source
	Test  datasets.Source
	// Sink receives the evaluation snapshots; nil logs them.
	Sink diagnostics.Sink
	// Devices overrides device enumeration.
	Devices []device.Device
}

// Trainer owns the model and the optimizer state.
type Trainer struct {
	mu sync.Mutex

	cfg     config.Config
	model   *recurrent.Model
	opt     *learning.Adam
	devices []device.Device
	train   datasets.Source
	test    datasets.Source
	sink    diagnostics.Sink

	step atomic.Int64
}

// Result is the outcome of one sharded forward pass.
type Result struct {
	Loss float64
	// StepLosses holds the mean loss of every reasoning step.
	StepLosses []float64
	// Predictions is indexed by step then sample, samples in batch order.
	Predictions [][]int
	// Grads holds the averaged gradients in parameter order, nil when no
	// backward pass ran.
	Grads []*mat.Dense
}

// New builds a trainer and a freshly initialized model.
func New(o Options) (*Trainer, error) {
	cfg := o.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := recurrent.New(cfg.Model)
	if err != nil {
		return nil, err
	}

	devices := o.Devices
	if len(devices) == 0 {
		devices, err = device.Enumerate(device.Detect(), cfg.Train.Devices, cfg.Train.BatchSize)
		if err != nil {
			return nil, errors.Wrap(config.ErrConfig, err.Error())
		}
	}
	if cfg.Train.BatchSize%len(devices) != 0 {
		return nil, errors.Wrapf(config.ErrConfig, "batch size %d is not divisible by %d devices", cfg.Train.BatchSize, len(devices))
	}
	for _, src := range []datasets.Source{o.Train, o.Test} {
		if src != nil && src.Entities() != cfg.Model.Entities {
			return nil, errors.Wrapf(config.ErrConfig, "source has %d entities, model expects %d", src.Entities(), cfg.Model.Entities)
		}
	}

	sink := o.Sink
	if sink == nil {
		sink = diagnostics.Log{}
	}
	cfg.Identify()
	return &Trainer{
		cfg:     cfg,
		model:   model,
		opt:     learning.NewAdam(learning.FromConfig(cfg.Train), model.Params()),
		devices: devices,
		train:   o.Train,
		test:    o.Test,
		sink:    sink,
	}, nil
}

// Model returns the trained model. Callers must not run forward passes on it
// while a training call is in flight.
func (tr *Trainer) Model() *recurrent.Model {
	return tr.model
}

// Config returns the effective configuration, run id included.
func (tr *Trainer) Config() config.Config {
	return tr.cfg
}

// Devices lists the replica slots.
func (tr *Trainer) Devices() []device.Device {
	return tr.devices
}

// Step reports the global step, the number of applied updates.
func (tr *Trainer) Step() int64 {
	return tr.step.Load()
}

// TrainBatch pulls the next training batch and trains on it.
func (tr *Trainer) TrainBatch(ctx context.Context) (float64, error) {
	if tr.train == nil {
		return 0, ErrNoSource
	}
	b, err := tr.train.Next(ctx)
	if err != nil {
		return 0, err
	}
	return tr.Train(ctx, b)
}

// EvalBatch pulls the next validation batch and evaluates it.
func (tr *Trainer) EvalBatch(ctx context.Context) (float64, error) {
	if tr.test == nil {
		return 0, ErrNoSource
	}
	b, err := tr.test.Next(ctx)
	if err != nil {
		return 0, err
	}
	return tr.Evaluate(ctx, b)
}

// Train performs one synchronous data parallel update on b and returns the
// batch loss.
func (tr *Trainer) Train(ctx context.Context, b datasets.Batch) (float64, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	res, err := tr.run(ctx, b, true)
	if err != nil {
		return 0, err
	}
	if !finite(res.Loss) || !finiteAll(res.Grads) {
		return res.Loss, errors.Wrapf(ErrNonFinite, "step %d loss %v", tr.step.Load(), res.Loss)
	}
	learning.Clip(res.Grads, tr.opt.Clip)
	if err := tr.opt.Apply(tr.model.Params(), res.Grads); err != nil {
		return 0, err
	}
	tr.step.Add(1)
	return res.Loss, nil
}

// Evaluate runs b without updating the parameters, hands the snapshot to the
// sink and returns the batch loss. A non-finite loss or gradient is
// ErrNonFinite and no snapshot is written.
func (tr *Trainer) Evaluate(ctx context.Context, b datasets.Batch) (float64, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	res, err := tr.run(ctx, b, tr.cfg.Diagnostics.Histograms)
	if err != nil {
		return 0, err
	}
	if !finite(res.Loss) || !finiteAll(res.Grads) {
		return res.Loss, errors.Wrapf(ErrNonFinite, "step %d loss %v", tr.step.Load(), res.Loss)
	}
	snap := tr.snapshot(b, res)
	if err := tr.sink.Write(ctx, snap); err != nil {
		logging.FromContext(ctx).Warn("Diagnostics sink failed.", "error", err)
	}
	return res.Loss, nil
}

// Run is the sharded forward pass shared by Train and Evaluate. With
// backward set the averaged gradients are returned too; nothing is applied.
func (tr *Trainer) Run(ctx context.Context, b datasets.Batch, backward bool) (*Result, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.run(ctx, b, backward)
}

type replica struct {
	loss        float64
	stepLosses  []float64
	predictions [][]int
	grads       []*mat.Dense
}

func (tr *Trainer) run(ctx context.Context, b datasets.Batch, backward bool) (*Result, error) {
	contract := tr.model.Contract()
	contract.Size = tr.cfg.Train.BatchSize
	if err := b.Validate(contract); err != nil {
		return nil, err
	}
	shards, err := b.Split(len(tr.devices))
	if err != nil {
		return nil, err
	}

	replicas := make([]replica, len(shards))
	err = parallel.ForEachErr(ctx, len(shards), len(shards), func(_ context.Context, d int) error {
		r, err := tr.runReplica(shards[d], backward)
		if err != nil {
			return errors.Wrapf(err, "replica %s", tr.devices[d])
		}
		replicas[d] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reduce(replicas, backward)
}

// runReplica differentiates the loss of one shard on a private tape.
func (tr *Trainer) runReplica(shard datasets.Batch, backward bool) (replica, error) {
	tape := autograd.NewTape()
	out, err := tr.model.Forward(tape, shard)
	if err != nil {
		return replica{}, err
	}
	r := replica{
		loss:        out.Loss.Scalar(),
		stepLosses:  out.StepLosses(),
		predictions: out.Predictions(),
	}
	if backward {
		if err := tape.Backward(out.Loss); err != nil {
			return replica{}, err
		}
		for _, p := range tr.model.Params() {
			r.grads = append(r.grads, tape.Grad(p))
		}
	}
	return r, nil
}

// reduce averages losses and gradients and concatenates predictions in
// device order.
func reduce(replicas []replica, backward bool) (*Result, error) {
	n := float64(len(replicas))
	res := &Result{
		StepLosses:  make([]float64, len(replicas[0].stepLosses)),
		Predictions: make([][]int, len(replicas[0].predictions)),
	}
	for _, r := range replicas {
		res.Loss += r.loss / n
		for s, l := range r.stepLosses {
			res.StepLosses[s] += l / n
		}
		for s, p := range r.predictions {
			res.Predictions[s] = append(res.Predictions[s], p...)
		}
	}
	if backward {
		all := make([][]*mat.Dense, len(replicas))
		for d, r := range replicas {
			all[d] = r.grads
		}
		grads, err := learning.Average(all)
		if err != nil {
			return nil, err
		}
		res.Grads = grads
	}
	return res, nil
}

func (tr *Trainer) snapshot(b datasets.Batch, res *Result) *diagnostics.Snapshot {
	snap := &diagnostics.Snapshot{
		RunID:    tr.cfg.Run.ID,
		RunName:  tr.cfg.Run.Name(),
		Split:    "test",
		Step:     tr.step.Load(),
		Loss:     res.Loss,
		Accuracy: diagnostics.Accuracies(res.Predictions, b.Targets(), b.JumpCounts()),
		Image:    b[0].Image,
	}
	first := make([]int, len(res.Predictions))
	for s, p := range res.Predictions {
		first[s] = p[0]
	}
	snap.Caption = datasets.Caption(&b[0], first)
	if res.Grads != nil {
		snap.Histograms = diagnostics.ParamHistograms(tr.model.Params(), res.Grads,
			tr.cfg.Diagnostics.Ratio, tr.cfg.Diagnostics.Buckets)
	}
	return snap
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finiteAll(grads []*mat.Dense) bool {
	for _, g := range grads {
		for _, x := range g.RawMatrix().Data {
			if !finite(x) {
				return false
			}
		}
	}
	return true
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/neurlang/reasoner/config"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/datasets/prettyclevr"
	"github.com/neurlang/reasoner/device"
	"github.com/neurlang/reasoner/diagnostics"
	"github.com/neurlang/reasoner/diagnostics/socketio"
	"github.com/neurlang/reasoner/diagnostics/sqlitestore"
	"github.com/neurlang/reasoner/logging"
	"github.com/neurlang/reasoner/trainer"
	"github.com/pkg/errors"
)

const (
	exitFailure     = 1
	exitConfig      = 2
	exitNonFinite   = 3
	exitInterrupted = 130
)

func main() {
	cfgPath := flag.String("config", "", "HCL configuration file")
	dstmodel := flag.String("dstmodel", "", "model destination .msgpack.zlib file")
	resume := flag.Bool("resume", false, "resume training")
	pgo := flag.Bool("pgo", false, "write a cpu profile to default.pgo")
	devices := flag.Int("devices", -1, "number of replicas, 0 picks automatically")
	steps := flag.Int64("steps", 0, "stop at this global step, 0 runs until interrupted")
	eval := flag.Int64("eval", 100, "evaluate every this many updates")
	target := flag.Float64("target", 0, "stop once the validation loss reaches this many bits")
	jumps := flag.Int("jumps", prettyclevr.AnyJumps, "fix the jump count of every query")
	flag.Parse()

	os.Exit(run(*cfgPath, *dstmodel, *resume, *pgo, *devices, *steps, *eval, *target, *jumps))
}

func run(cfgPath, dstmodel string, resume, pgo bool, devices int, steps, eval int64, target float64, jumps int) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfig
	}
	if devices >= 0 {
		cfg.Train.Devices = devices
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.WithLogger(ctx, logger)

	if pgo {
		stop, err := profile("default.pgo")
		if err != nil {
			logger.Error("Profiling unavailable.", "error", err)
			return exitFailure
		}
		defer stop()
	}

	sink, err := sinks(ctx, cfg.Diagnostics)
	if err != nil {
		logger.Error("Diagnostics unavailable.", "error", err)
		return exitFailure
	}
	defer sink.Close()

	opts := prettyclevr.Options{
		Entities:  cfg.Model.Entities,
		BatchSize: cfg.Train.BatchSize,
		Seed:      cfg.Train.Seed,
		Jumps:     jumps,
	}
	train, err := prettyclevr.New(opts)
	if err != nil {
		logger.Error("Bad dataset options.", "error", err)
		return exitConfig
	}
	opts.Split = prettyclevr.Validation
	test := prettyclevr.MustNew(opts)

	host := device.Detect()
	logger.Info("Host.", "cpu", host.Brand, "cores", host.Cores, "threads", host.Threads, "avx2", host.AVX2)

	tr, err := trainer.New(trainer.Options{Config: cfg, Train: train, Test: test, Sink: sink})
	if err != nil {
		logger.Error("Cannot build the trainer.", "error", err)
		return exitConfig
	}
	listParams(logger, tr)

	if err := trainer.Resume(ctx, tr, resume, dstmodel); err != nil {
		logger.Error("Cannot resume.", "error", err)
		return exitFailure
	}

	best := math.Inf(1)
	loop := trainer.NewLoopFunc(tr, trainer.NewEvaluateFunc(tr, &best, dstmodel), trainer.LoopOptions{
		MaxSteps:  steps,
		EvalEvery: eval,
		Target:    target,
	})
	err = loop(ctx)
	switch {
	case err == nil:
		logger.Info("Training finished.", "step", tr.Step(), "best", best)
		return 0
	case errors.Is(err, context.Canceled):
		logger.Info("Interrupted.", "step", tr.Step())
		return exitInterrupted
	case errors.Is(err, trainer.ErrNonFinite):
		logger.Error("Training diverged.", "error", err)
		return exitNonFinite
	case errors.Is(err, datasets.ErrContract), errors.Is(err, config.ErrConfig):
		logger.Error("Training stopped.", "error", err)
		return exitConfig
	default:
		logger.Error("Training stopped.", "error", err)
		return exitFailure
	}
}

// sinks opens every configured summary destination.
func sinks(ctx context.Context, d config.Diagnostics) (diagnostics.Sink, error) {
	out := diagnostics.Multi{diagnostics.Log{}}
	if d.SQLite != "" {
		st, err := sqlitestore.Open(d.SQLite)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if d.SocketIO != "" {
		s, err := socketio.Dial(ctx, d.SocketIO, d.Namespace)
		if err != nil {
			out.Close()
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func listParams(logger *slog.Logger, tr *trainer.Trainer) {
	m := tr.Model()
	for _, p := range m.Params() {
		r, c := p.Value.Dims()
		logger.Info("Variable.", "name", p.Name, "shape", fmt.Sprintf("%dx%d", r, c), "count", p.Len())
	}
	logger.Info("Model.", "run", tr.Config().Run.ID, "name", tr.Config().Run.Name(),
		"params", m.Size(), "devices", len(tr.Devices()))
}

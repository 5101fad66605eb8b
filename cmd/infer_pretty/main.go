package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/gookit/color"
	"github.com/neurlang/reasoner/config"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/datasets/prettyclevr"
	"github.com/neurlang/reasoner/diagnostics"
	"github.com/neurlang/reasoner/inference"
	"github.com/neurlang/reasoner/logging"
	"github.com/neurlang/reasoner/trainer"
	"github.com/pkg/errors"
)

func main() {
	cfgPath := flag.String("config", "", "HCL configuration file")
	model := flag.String("model", "", "checkpoint written by train_pretty -dstmodel")
	batches := flag.Int("batches", 10, "number of validation batches")
	jumps := flag.Int("jumps", prettyclevr.AnyJumps, "fix the jump count of every query")
	flag.Parse()

	if err := run(*cfgPath, *model, *batches, *jumps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, config.ErrConfig) || errors.Is(err, datasets.ErrContract) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cfgPath, model string, batches, jumps int) error {
	if model == "" {
		return errors.Wrap(config.ErrConfig, "-model is required")
	}
	if batches <= 0 {
		return errors.Wrapf(config.ErrConfig, "-batches must be positive, got %d", batches)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = logging.WithLogger(ctx, logger)

	tr, err := trainer.New(trainer.Options{Config: cfg})
	if err != nil {
		return err
	}
	if err := tr.Load(model); err != nil {
		return errors.Wrapf(err, "loading %s", model)
	}
	logger.Info("Loaded.", "path", model, "step", tr.Step(), "fingerprint", fmt.Sprintf("%x", trainer.Fingerprint(tr.Model().Params())))

	test, err := prettyclevr.New(prettyclevr.Options{
		Entities:  cfg.Model.Entities,
		BatchSize: cfg.Train.BatchSize,
		Split:     prettyclevr.Validation,
		Seed:      cfg.Train.Seed,
		Jumps:     jumps,
		Limit:     batches,
	})
	if err != nil {
		return err
	}

	var tally inference.Tally
	for {
		b, err := test.Next(ctx)
		if errors.Is(err, datasets.ErrExhausted) {
			break
		}
		if err != nil {
			return err
		}
		r, err := inference.Infer(tr.Model(), b)
		if err != nil {
			return err
		}
		tally.Add(b, r)
		fmt.Println(datasets.Caption(&b[0], first(r.Predictions)))
	}
	fmt.Printf("batches %d loss %.4f bits\n", tally.Len(), tally.Loss())
	Table(os.Stdout, tally.Accuracy())
	return nil
}

func first(preds [][]int) []int {
	out := make([]int, len(preds))
	for s, p := range preds {
		out[s] = p[0]
	}
	return out
}

// Table prints one row per reasoning step and one column per jump count.
// Cells are green above 0.9 and red below 0.5.
func Table(w io.Writer, acc []diagnostics.Accuracy) {
	steps, jumps := 0, 0
	cells := make(map[[2]int]float64)
	for _, a := range acc {
		steps = max(steps, a.Step+1)
		jumps = max(jumps, a.Jumps+1)
		cells[[2]int{a.Step, a.Jumps}] = a.Value
	}

	fmt.Fprint(w, color.Bold.Sprintf("%6s", "step"))
	for j := 0; j < jumps; j++ {
		fmt.Fprint(w, color.Bold.Sprintf("%7s", fmt.Sprintf("j%d", j)))
	}
	fmt.Fprintln(w)
	for s := 0; s < steps; s++ {
		fmt.Fprintf(w, "%6d", s)
		for j := 0; j < jumps; j++ {
			v, ok := cells[[2]int{s, j}]
			switch {
			case !ok:
				fmt.Fprintf(w, "%7s", "-")
			case v > 0.9:
				fmt.Fprint(w, color.Green.Sprintf("%7.3f", v))
			case v < 0.5:
				fmt.Fprint(w, color.Red.Sprintf("%7.3f", v))
			default:
				fmt.Fprintf(w, "%7.3f", v)
			}
		}
		fmt.Fprintln(w)
	}
}

package trainer

import (
	"context"
	"fmt"

	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/logging"
	"github.com/pkg/errors"
)

// LoopOptions control a training loop.
type LoopOptions struct {
	// MaxSteps stops the loop at this global step; zero runs until the
	// context is cancelled.
	MaxSteps int64
	// EvalEvery evaluates after every EvalEvery updates; zero never evaluates.
	EvalEvery int64
	// Target stops the loop once a validation loss is at or below it; zero
	// disables the check.
	Target float64
}

// NewLoopFunc returns the training loop. The training source is rewound when
// it runs dry if it is restartable and ends the loop otherwise. A source that
// is still exhausted right after a rewind is an error. Training errors,
// non-finite losses included, end the loop.
func NewLoopFunc(tr *Trainer, evaluate EvaluateFunc, o LoopOptions) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger := logging.FromContext(ctx)
		rewound := false
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			if o.MaxSteps > 0 && tr.Step() >= o.MaxSteps {
				logger.Info("Reached the step limit.", "step", tr.Step())
				return nil
			}

			loss, err := tr.TrainBatch(ctx)
			if errors.Is(err, datasets.ErrExhausted) {
				r, ok := tr.train.(datasets.Restartable)
				if !ok {
					logger.Info("Training data exhausted.", "step", tr.Step())
					return nil
				}
				if rewound {
					return errors.Wrap(err, "training source is empty after a reset")
				}
				r.Reset()
				rewound = true
				continue
			}
			if err != nil {
				return err
			}
			rewound = false
			step := tr.Step()
			logger.Debug("Trained.", "step", step, "loss", loss)

			if evaluate == nil || o.EvalEvery <= 0 || step%o.EvalEvery != 0 {
				continue
			}
			vloss, state, err := evaluate(ctx)
			if err != nil {
				return err
			}
			logger.Info("Evaluated.", "step", step, "train_loss", loss, "test_loss", vloss, "fingerprint", fmt.Sprintf("%x", state))
			if o.Target > 0 && vloss <= o.Target {
				logger.Info("Reached the target loss.", "step", step, "loss", vloss)
				return nil
			}
		}
	}
}

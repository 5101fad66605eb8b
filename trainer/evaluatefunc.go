package trainer

import (
	"context"
	"fmt"

	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/logging"
	"github.com/pkg/errors"
)

// EvaluateFunc evaluates one validation batch and reports the loss and the
// model fingerprint.
type EvaluateFunc func(ctx context.Context) (float64, [32]byte, error)

// NewEvaluateFunc returns an EvaluateFunc over the trainer's validation
// source. A restartable source is rewound when it runs dry. When dstmodel is
// set the model is saved every time the validation loss improves on *best;
// a nil best saves after every evaluation.
func NewEvaluateFunc(tr *Trainer, best *float64, dstmodel string) EvaluateFunc {
	return func(ctx context.Context) (float64, [32]byte, error) {
		logger := logging.FromContext(ctx)

		loss, err := tr.EvalBatch(ctx)
		if errors.Is(err, datasets.ErrExhausted) {
			if r, ok := tr.test.(datasets.Restartable); ok {
				r.Reset()
				loss, err = tr.EvalBatch(ctx)
			}
		}
		if err != nil {
			return loss, [32]byte{}, err
		}
		state := Fingerprint(tr.model.Params())

		improved := best == nil || loss < *best
		if dstmodel != "" && improved {
			if err := tr.Save(dstmodel); err != nil {
				return loss, state, errors.Wrapf(err, "saving %s", dstmodel)
			}
			logger.Info("Saved improved model.", "path", dstmodel, "loss", loss, "fingerprint", fmt.Sprintf("%x", state))
		}
		if best != nil && improved {
			*best = loss
		}
		return loss, state, nil
	}
}

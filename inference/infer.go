// Package inference runs a trained reasoner without updating it.
package inference

import (
	"sort"

	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/datasets"
	"github.com/neurlang/reasoner/diagnostics"
	"github.com/neurlang/reasoner/net/recurrent"
)

// Report is the outcome of inferring one batch.
type Report struct {
	Loss       float64
	StepLosses []float64

	// Predictions is indexed by step then sample.
	Predictions [][]int
	Accuracy    []diagnostics.Accuracy
}

// Infer runs m over b on a private tape. Batches of any size are accepted.
func Infer(m *recurrent.Model, b datasets.Batch) (*Report, error) {
	out, err := m.Forward(autograd.NewTape(), b)
	if err != nil {
		return nil, err
	}
	preds := out.Predictions()
	return &Report{
		Loss:        out.Loss.Scalar(),
		StepLosses:  out.StepLosses(),
		Predictions: preds,
		Accuracy:    diagnostics.Accuracies(preds, b.Targets(), b.JumpCounts()),
	}, nil
}

type bucket struct {
	step, jumps int
}

// Tally accumulates accuracy over many batches. The zero value is ready to
// use; it is not safe for concurrent use.
type Tally struct {
	correct map[bucket]int
	count   map[bucket]int
	loss    float64
	batches int
}

// Add counts the predictions of one batch.
func (t *Tally) Add(b datasets.Batch, r *Report) {
	if t.count == nil {
		t.correct = make(map[bucket]int)
		t.count = make(map[bucket]int)
	}
	for step, preds := range r.Predictions {
		for i, p := range preds {
			k := bucket{step, b[i].Jumps}
			t.count[k]++
			if p == b[i].Target {
				t.correct[k]++
			}
		}
	}
	t.loss += r.Loss
	t.batches++
}

// Loss is the mean batch loss seen so far.
func (t *Tally) Loss() float64 {
	if t.batches == 0 {
		return 0
	}
	return t.loss / float64(t.batches)
}

// Len reports the number of batches added.
func (t *Tally) Len() int {
	return t.batches
}

// Accuracy lists every non-empty (step, jumps) bucket ordered by step then
// jump count.
func (t *Tally) Accuracy() []diagnostics.Accuracy {
	out := make([]diagnostics.Accuracy, 0, len(t.count))
	for k, n := range t.count {
		out = append(out, diagnostics.Accuracy{
			Step:  k.step,
			Jumps: k.jumps,
			Value: float64(t.correct[k]) / float64(n),
			Count: n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].Jumps < out[j].Jumps
	})
	return out
}

package diagnostics

import (
	"context"
	"fmt"

	"github.com/neurlang/reasoner/logging"
	"github.com/pkg/errors"
)

// Snapshot is the summary of one evaluation call.
type Snapshot struct {
	RunID   string
	RunName string
	// Split is "train" or "test".
	Split string
	Step  int64
	Loss  float64

	Accuracy []Accuracy
	// Caption describes the first sample of the batch and its per step
	// predictions. Image is its raw scene, possibly empty.
	Caption string
	Image   []byte

	Histograms []Histogram
}

// Scalars lists the scalar summaries keyed by tag.
func (s *Snapshot) Scalars() map[string]float64 {
	out := map[string]float64{"loss": s.Loss}
	for _, a := range s.Accuracy {
		out[a.Tag()] = a.Value
	}
	return out
}

// Accuracy is the accuracy of one reasoning step over the samples with one
// jump count.
type Accuracy struct {
	Step  int
	Jumps int
	Value float64
	Count int
}

// Tag is "acc/<step>/<jumps>".
func (a Accuracy) Tag() string {
	return fmt.Sprintf("acc/%d/%d", a.Step, a.Jumps)
}

// Accuracies computes the accuracy of every (step, jump count) bucket.
// predictions is indexed by step then sample. Empty buckets are skipped.
func Accuracies(predictions [][]int, targets, jumps []int) []Accuracy {
	maxJumps := 0
	for _, j := range jumps {
		if j+1 > maxJumps {
			maxJumps = j + 1
		}
	}
	var out []Accuracy
	for step, preds := range predictions {
		correct := make([]int, maxJumps)
		count := make([]int, maxJumps)
		for i, p := range preds {
			count[jumps[i]]++
			if p == targets[i] {
				correct[jumps[i]]++
			}
		}
		for j := range count {
			if count[j] == 0 {
				continue
			}
			out = append(out, Accuracy{
				Step:  step,
				Jumps: j,
				Value: float64(correct[j]) / float64(count[j]),
				Count: count[j],
			})
		}
	}
	return out
}

// Sink receives snapshots.
type Sink interface {
	Write(ctx context.Context, s *Snapshot) error
	Close() error
}

// Log writes snapshots to the context logger.
type Log struct{}

// Write logs the loss at info level and every accuracy bucket at debug level.
func (Log) Write(ctx context.Context, s *Snapshot) error {
	logger := logging.FromContext(ctx).With("run", s.RunID, "split", s.Split, "step", s.Step)
	logger.Info("Evaluation finished.", "loss", s.Loss, "histograms", len(s.Histograms))
	for _, a := range s.Accuracy {
		logger.Debug("Accuracy.", "tag", a.Tag(), "value", a.Value, "samples", a.Count)
	}
	logger.Debug("Example.", "caption", s.Caption)
	return nil
}

// Close does nothing.
func (Log) Close() error { return nil }

// Multi fans snapshots out to several sinks.
type Multi []Sink

// Write hands s to every sink and returns the first error.
func (m Multi) Write(ctx context.Context, s *Snapshot) error {
	var first error
	for _, sink := range m {
		if err := sink.Write(ctx, s); err != nil && first == nil {
			first = errors.Wrapf(err, "sink %T", sink)
		}
	}
	return first
}

// Close closes every sink and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, sink := range m {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package learning

import "github.com/neurlang/reasoner/config"

// HyperParameters of the Adam optimizer
type HyperParameters struct {
	LearningRate float64 // step size
	Beta1        float64 // decay of the first moment estimate
	Beta2        float64 // decay of the second moment estimate
	Epsilon      float64 // denominator floor

	Clip float64 // every gradient component is clamped to [-Clip, Clip]
}

// Default returns lr 1e-4, betas 0.9 and 0.999, epsilon 1e-8 and clip 1.
func Default() HyperParameters {
	return FromConfig(config.Default().Train)
}

// FromConfig copies the optimizer settings of a training configuration.
func FromConfig(t config.Train) HyperParameters {
	return HyperParameters{
		LearningRate: t.LearningRate,
		Beta1:        t.Beta1,
		Beta2:        t.Beta2,
		Epsilon:      t.Epsilon,
		Clip:         t.Clip,
	}
}

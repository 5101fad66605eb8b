package layer

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Glorot returns a rows x cols matrix drawn from the Glorot (Xavier) uniform
// distribution, the default kernel initializer of dense and recurrent layers.
func Glorot(rng *rand.Rand, rows, cols int) *mat.Dense {
	limit := math.Sqrt(6 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (2*rng.Float64() - 1) * limit
	}
	return mat.NewDense(rows, cols, data)
}

// Zeros returns a rows x cols zero matrix.
func Zeros(rows, cols int) *mat.Dense {
	return mat.NewDense(rows, cols, nil)
}

// Ones returns a rows x cols matrix of ones.
func Ones(rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = 1
	}
	return mat.NewDense(rows, cols, data)
}

package autograd

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BatchNorm normalizes every column of x over the rows using the batch
// statistics, then applies the 1xc scale gamma and shift beta.
func (t *Tape) BatchNorm(x, gamma, beta *Var, epsilon float64) *Var {
	r, c := x.Value.Dims()
	xd := raw(x.Value)
	n := float64(r)

	mean := make([]float64, c)
	for i := 0; i < r; i++ {
		floats.Add(mean, xd[i*c:(i+1)*c])
	}
	floats.Scale(1/n, mean)

	invstd := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := xd[i*c+j] - mean[j]
			invstd[j] += d * d
		}
	}
	for j := range invstd {
		invstd[j] = 1 / math.Sqrt(invstd[j]/n+epsilon)
	}

	xhat := make([]float64, r*c)
	out := mat.NewDense(r, c, nil)
	od, gd, bd := raw(out), raw(gamma.Value), raw(beta.Value)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			h := (xd[i*c+j] - mean[j]) * invstd[j]
			xhat[i*c+j] = h
			od[i*c+j] = gd[j]*h + bd[j]
		}
	}

	return t.record(out, func(o *Var) {
		g := raw(o.Grad)
		if beta.needs {
			gb := beta.gradRaw()
			for i := 0; i < r; i++ {
				floats.Add(gb, g[i*c:(i+1)*c])
			}
		}
		if gamma.needs {
			gg := gamma.gradRaw()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					gg[j] += g[i*c+j] * xhat[i*c+j]
				}
			}
		}
		if !x.needs {
			return
		}
		sum := make([]float64, c)
		dot := make([]float64, c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				dh := g[i*c+j] * gd[j]
				sum[j] += dh
				dot[j] += dh * xhat[i*c+j]
			}
		}
		gx := x.gradRaw()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				dh := g[i*c+j] * gd[j]
				gx[i*c+j] += invstd[j] / n * (n*dh - sum[j] - xhat[i*c+j]*dot[j])
			}
		}
	}, x, gamma, beta)
}

// SoftmaxCrossEntropy returns the mean softmax cross-entropy of the rows of
// logits against labels, measured in bits.
func (t *Tape) SoftmaxCrossEntropy(logits *Var, labels []int) *Var {
	r, c := logits.Value.Dims()
	ld := raw(logits.Value)
	probs := make([]float64, r*c)
	var total float64
	for i := 0; i < r; i++ {
		row := ld[i*c : (i+1)*c]
		lse := floats.LogSumExp(row)
		for j, z := range row {
			probs[i*c+j] = math.Exp(z - lse)
		}
		total += lse - row[labels[i]]
	}
	n := float64(r)
	out := mat.NewDense(1, 1, []float64{total / n / math.Ln2})

	return t.record(out, func(o *Var) {
		scale := o.Grad.At(0, 0) / (n * math.Ln2)
		gl := logits.gradRaw()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				p := probs[i*c+j]
				if j == labels[i] {
					p--
				}
				gl[i*c+j] += p * scale
			}
		}
	}, logits)
}

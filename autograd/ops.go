package autograd

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MatMul computes a·b.
func (t *Tape) MatMul(a, b *Var) *Var {
	var out mat.Dense
	out.Mul(a.Value, b.Value)
	return t.record(&out, func(o *Var) {
		if a.needs {
			var g mat.Dense
			g.Mul(o.Grad, b.Value.T())
			a.accumulate(&g)
		}
		if b.needs {
			var g mat.Dense
			g.Mul(a.Value.T(), o.Grad)
			b.accumulate(&g)
		}
	}, a, b)
}

// AddRow adds the 1xc row vector bias to every row of a.
func (t *Tape) AddRow(a, bias *Var) *Var {
	r, c := a.Value.Dims()
	out := mat.NewDense(r, c, nil)
	od, ad, bd := raw(out), raw(a.Value), raw(bias.Value)
	for i := 0; i < r; i++ {
		floats.AddTo(od[i*c:(i+1)*c], ad[i*c:(i+1)*c], bd)
	}
	return t.record(out, func(o *Var) {
		if a.needs {
			a.accumulate(o.Grad)
		}
		if bias.needs {
			gb, g := bias.gradRaw(), raw(o.Grad)
			for i := 0; i < r; i++ {
				floats.Add(gb, g[i*c:(i+1)*c])
			}
		}
	}, a, bias)
}

// Add computes the element-wise sum of equally shaped a and b.
func (t *Tape) Add(a, b *Var) *Var {
	var out mat.Dense
	out.Add(a.Value, b.Value)
	return t.record(&out, func(o *Var) {
		if a.needs {
			a.accumulate(o.Grad)
		}
		if b.needs {
			b.accumulate(o.Grad)
		}
	}, a, b)
}

// Mul computes the element-wise product of equally shaped a and b.
func (t *Tape) Mul(a, b *Var) *Var {
	var out mat.Dense
	out.MulElem(a.Value, b.Value)
	return t.record(&out, func(o *Var) {
		if a.needs {
			var g mat.Dense
			g.MulElem(o.Grad, b.Value)
			a.accumulate(&g)
		}
		if b.needs {
			var g mat.Dense
			g.MulElem(o.Grad, a.Value)
			b.accumulate(&g)
		}
	}, a, b)
}

// AddScalar adds s to every element of a.
func (t *Tape) AddScalar(a *Var, s float64) *Var {
	return t.unary(a, func(x float64) float64 { return x + s }, func(_, _ float64) float64 { return 1 })
}

// ReLU computes max(0, a) element-wise.
func (t *Tape) ReLU(a *Var) *Var {
	return t.unary(a, func(x float64) float64 {
		if x > 0 {
			return x
		}
		return 0
	}, func(x, _ float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

// Sigmoid computes the logistic function element-wise.
func (t *Tape) Sigmoid(a *Var) *Var {
	return t.unary(a, sigmoid, func(_, y float64) float64 { return y * (1 - y) })
}

// Tanh computes the hyperbolic tangent element-wise.
func (t *Tape) Tanh(a *Var) *Var {
	return t.unary(a, math.Tanh, func(_, y float64) float64 { return 1 - y*y })
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// unary applies f element-wise; df receives the input and output element.
func (t *Tape) unary(a *Var, f func(float64) float64, df func(x, y float64) float64) *Var {
	r, c := a.Value.Dims()
	out := mat.NewDense(r, c, nil)
	od, ad := raw(out), raw(a.Value)
	for i, x := range ad {
		od[i] = f(x)
	}
	return t.record(out, func(o *Var) {
		ga, g := a.gradRaw(), raw(o.Grad)
		for i, x := range ad {
			ga[i] += g[i] * df(x, od[i])
		}
	}, a)
}

// ConcatCols joins the columns of equally tall values left to right.
func (t *Tape) ConcatCols(vs ...*Var) *Var {
	r, _ := vs[0].Value.Dims()
	widths := make([]int, len(vs))
	var total int
	for i, v := range vs {
		_, widths[i] = v.Value.Dims()
		total += widths[i]
	}
	out := mat.NewDense(r, total, nil)
	od := raw(out)
	for i := 0; i < r; i++ {
		offset := i * total
		for k, v := range vs {
			w := widths[k]
			copy(od[offset:offset+w], raw(v.Value)[i*w:(i+1)*w])
			offset += w
		}
	}
	return t.record(out, func(o *Var) {
		g := raw(o.Grad)
		col := 0
		for k, v := range vs {
			w := widths[k]
			if v.needs {
				gv := v.gradRaw()
				for i := 0; i < r; i++ {
					floats.Add(gv[i*w:(i+1)*w], g[i*total+col:i*total+col+w])
				}
			}
			col += w
		}
	}, vs...)
}

// SliceCols returns columns [from, to) of a.
func (t *Tape) SliceCols(a *Var, from, to int) *Var {
	r, c := a.Value.Dims()
	w := to - from
	out := mat.NewDense(r, w, nil)
	od, ad := raw(out), raw(a.Value)
	for i := 0; i < r; i++ {
		copy(od[i*w:(i+1)*w], ad[i*c+from:i*c+to])
	}
	return t.record(out, func(o *Var) {
		ga, g := a.gradRaw(), raw(o.Grad)
		for i := 0; i < r; i++ {
			floats.Add(ga[i*c+from:i*c+to], g[i*w:(i+1)*w])
		}
	}, a)
}

// GatherRows returns the rows of a selected by idx, in order.
func (t *Tape) GatherRows(a *Var, idx []int) *Var {
	_, c := a.Value.Dims()
	out := mat.NewDense(len(idx), c, nil)
	od, ad := raw(out), raw(a.Value)
	for i, j := range idx {
		copy(od[i*c:(i+1)*c], ad[j*c:(j+1)*c])
	}
	return t.record(out, func(o *Var) {
		ga, g := a.gradRaw(), raw(o.Grad)
		for i, j := range idx {
			floats.Add(ga[j*c:(j+1)*c], g[i*c:(i+1)*c])
		}
	}, a)
}

// ScatterAddRows sums row i of a into row idx[i] of a rows x cols result.
// Result rows that no index points to stay zero.
func (t *Tape) ScatterAddRows(a *Var, idx []int, rows int) *Var {
	_, c := a.Value.Dims()
	out := mat.NewDense(rows, c, nil)
	od, ad := raw(out), raw(a.Value)
	for i, j := range idx {
		floats.Add(od[j*c:(j+1)*c], ad[i*c:(i+1)*c])
	}
	return t.record(out, func(o *Var) {
		ga, g := a.gradRaw(), raw(o.Grad)
		for i, j := range idx {
			floats.Add(ga[i*c:(i+1)*c], g[j*c:(j+1)*c])
		}
	}, a)
}

// SumGroups sums consecutive groups of size rows, turning an (n·size) x c
// value into an n x c value.
func (t *Tape) SumGroups(a *Var, size int) *Var {
	r, c := a.Value.Dims()
	if size <= 0 || r%size != 0 {
		panic("autograd: rows not divisible by group size")
	}
	n := r / size
	out := mat.NewDense(n, c, nil)
	od, ad := raw(out), raw(a.Value)
	for i := 0; i < r; i++ {
		g := i / size
		floats.Add(od[g*c:(g+1)*c], ad[i*c:(i+1)*c])
	}
	return t.record(out, func(o *Var) {
		ga, g := a.gradRaw(), raw(o.Grad)
		for i := 0; i < r; i++ {
			k := i / size
			floats.Add(ga[i*c:(i+1)*c], g[k*c:(k+1)*c])
		}
	}, a)
}

// Mean averages 1x1 values.
func (t *Tape) Mean(vs ...*Var) *Var {
	var sum float64
	for _, v := range vs {
		sum += v.Scalar()
	}
	n := float64(len(vs))
	out := mat.NewDense(1, 1, []float64{sum / n})
	return t.record(out, func(o *Var) {
		share := o.Grad.At(0, 0) / n
		for _, v := range vs {
			if v.needs {
				v.gradRaw()[0] += share
			}
		}
	}, vs...)
}

// Argmax returns the column index of the largest element of every row.
func Argmax(m *mat.Dense) []int {
	r, c := m.Dims()
	out := make([]int, r)
	d := raw(m)
	for i := range out {
		out[i] = floats.MaxIdx(d[i*c : (i+1)*c])
	}
	return out
}

package autograd

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNotScalar is returned when Backward is started from a non 1x1 value.
var ErrNotScalar = errors.New("autograd: backward requires a 1x1 value")

// Param is a trainable weight tensor.
type Param struct {
	Name  string
	Value *mat.Dense
}

// NewParam wraps value as a named parameter.
func NewParam(name string, value *mat.Dense) *Param {
	return &Param{Name: name, Value: value}
}

// Len reports the number of scalar weights in the parameter.
func (p *Param) Len() int {
	r, c := p.Value.Dims()
	return r * c
}

// Var is a value recorded on a Tape together with its accumulated gradient.
type Var struct {
	Value *mat.Dense
	Grad  *mat.Dense

	needs bool
	back  func()
}

// RequiresGrad reports whether gradients flow into this value.
func (v *Var) RequiresGrad() bool {
	return v.needs
}

// Scalar returns the value of a 1x1 Var.
func (v *Var) Scalar() float64 {
	return v.Value.At(0, 0)
}

func (v *Var) accumulate(g *mat.Dense) {
	if v.Grad == nil {
		v.Grad = mat.DenseCopyOf(g)
		return
	}
	v.Grad.Add(v.Grad, g)
}

// gradRaw returns the raw backing slice of the gradient, allocating it zeroed.
func (v *Var) gradRaw() []float64 {
	if v.Grad == nil {
		r, c := v.Value.Dims()
		v.Grad = mat.NewDense(r, c, nil)
	}
	return raw(v.Grad)
}

// Tape records one forward computation.
type Tape struct {
	vars   []*Var
	params map[*Param]*Var
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{params: make(map[*Param]*Var)}
}

// Len reports the number of recorded values.
func (t *Tape) Len() int {
	return len(t.vars)
}

// Constant records a value that does not require gradients.
func (t *Tape) Constant(m *mat.Dense) *Var {
	v := &Var{Value: m}
	t.vars = append(t.vars, v)
	return v
}

// Param records p as a leaf requiring gradients. Reading the same Param twice
// returns the same leaf, so gradients from every use accumulate together.
func (t *Tape) Param(p *Param) *Var {
	if v, ok := t.params[p]; ok {
		return v
	}
	v := &Var{Value: p.Value, needs: true}
	t.params[p] = v
	t.vars = append(t.vars, v)
	return v
}

// Grad returns the gradient accumulated for p, or a zero matrix when p did not
// take part in the computation.
func (t *Tape) Grad(p *Param) *mat.Dense {
	r, c := p.Value.Dims()
	if v, ok := t.params[p]; ok && v.Grad != nil {
		return mat.DenseCopyOf(v.Grad)
	}
	return mat.NewDense(r, c, nil)
}

// Backward propagates d(loss)/d(loss) = 1 back through the tape.
func (t *Tape) Backward(loss *Var) error {
	if r, c := loss.Value.Dims(); r != 1 || c != 1 {
		return errors.Wrapf(ErrNotScalar, "got %dx%d", r, c)
	}
	loss.Grad = mat.NewDense(1, 1, []float64{1})
	for i := len(t.vars) - 1; i >= 0; i-- {
		v := t.vars[i]
		if v.back != nil && v.Grad != nil {
			v.back()
		}
	}
	return nil
}

// record appends an operation result. back receives the result whose Grad is
// populated and must accumulate into the parents that require gradients.
func (t *Tape) record(value *mat.Dense, back func(out *Var), parents ...*Var) *Var {
	v := &Var{Value: value}
	for _, p := range parents {
		if p.needs {
			v.needs = true
			break
		}
	}
	if v.needs && back != nil {
		v.back = func() { back(v) }
	}
	t.vars = append(t.vars, v)
	return v
}

// raw exposes the row-major backing slice of a contiguous dense matrix.
func raw(m *mat.Dense) []float64 {
	rm := m.RawMatrix()
	if rm.Stride != rm.Cols {
		panic("autograd: non-contiguous matrix")
	}
	return rm.Data[:rm.Rows*rm.Cols]
}

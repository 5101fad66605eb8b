package diagnostics

import (
	"math"
	"sort"

	"github.com/neurlang/reasoner/autograd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RatioEpsilon keeps the gradient to value ratio finite at zero weights.
const RatioEpsilon = 1e-8

// Histogram summarizes the distribution of one tensor.
type Histogram struct {
	Tag    string
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	// Count is the number of finite values; NaN and infinities are only
	// counted in NonFinite.
	Count     int
	NonFinite int
	// Edges holds len(Counts)+1 bucket boundaries.
	Edges  []float64
	Counts []float64
}

// NewHistogram buckets the finite values into buckets equal width bins.
func NewHistogram(tag string, values []float64, buckets int) Histogram {
	h := Histogram{Tag: tag}
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			h.NonFinite++
			continue
		}
		x = append(x, v)
	}
	h.Count = len(x)
	if len(x) == 0 || buckets <= 0 {
		return h
	}
	sort.Float64s(x)
	h.Min, h.Max = x[0], x[len(x)-1]
	h.Mean, h.StdDev = stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		h.StdDev = 0
	}

	hi := h.Max
	if hi <= h.Min {
		hi = h.Min + 1
	}
	h.Edges = make([]float64, buckets+1)
	floats.Span(h.Edges, h.Min, hi)
	// the last divider is exclusive
	h.Edges[buckets] = math.Nextafter(hi, math.Inf(1))
	h.Counts = make([]float64, buckets)
	stat.Histogram(h.Counts, h.Edges, x, nil)
	return h
}

// ParamHistograms summarizes every parameter under "vars/<name>" and its
// gradient under "grads/<name>". With ratio set it also summarizes
// grad/(value+RatioEpsilon) under "g_ratio/<name>".
func ParamHistograms(params []*autograd.Param, grads []*mat.Dense, ratio bool, buckets int) []Histogram {
	var out []Histogram
	for i, p := range params {
		v := flatten(p.Value)
		out = append(out, NewHistogram("vars/"+p.Name, v, buckets))
		if i >= len(grads) || grads[i] == nil {
			continue
		}
		g := flatten(grads[i])
		out = append(out, NewHistogram("grads/"+p.Name, g, buckets))
		if ratio {
			r := make([]float64, len(g))
			for k := range g {
				r[k] = g[k] / (v[k] + RatioEpsilon)
			}
			out = append(out, NewHistogram("g_ratio/"+p.Name, r, buckets))
		}
	}
	return out
}

func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}

package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam optimiser with bias correction.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	params []*Param
	m, v   []*mat.Dense
	step   int
}

// NewAdam returns an optimiser over params with the usual defaults.
func NewAdam(params []*Param, lr float64) *Adam {
	a := &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		params:       params,
	}
	for _, p := range params {
		r, c := p.Value.Dims()
		a.m = append(a.m, mat.NewDense(r, c, nil))
		a.v = append(a.v, mat.NewDense(r, c, nil))
	}
	return a
}

// ZeroGrad clears the gradients of the optimised parameters.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.Grad.Zero()
	}
}

// Step applies one update from the accumulated gradients.
func (a *Adam) Step() {
	a.step++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.step))
	stepSize := a.LearningRate / bc1
	sqrtBC2 := math.Sqrt(bc2)

	for i, p := range a.params {
		w, g := p.data(), p.grad()
		m, v := a.m[i].RawMatrix().Data, a.v[i].RawMatrix().Data
		for j := range w {
			m[j] = a.Beta1*m[j] + (1-a.Beta1)*g[j]
			v[j] = a.Beta2*v[j] + (1-a.Beta2)*g[j]*g[j]
			w[j] -= stepSize * m[j] / (math.Sqrt(v[j])/sqrtBC2 + a.Epsilon)
		}
	}
}

// Steps returns how many updates have been applied.
func (a *Adam) Steps() int { return a.step }

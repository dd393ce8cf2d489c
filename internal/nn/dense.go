package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// dense computes y = Wx + b with W stored out×in.
type dense struct {
	in, out int
	w, b    *Param
}

func newDense(name string, in, out int, rng *rand.Rand) *dense {
	d := &dense{
		in:  in,
		out: out,
		w:   newParam(name+".w", out, in),
		b:   newParam(name+".b", 1, out),
	}
	bound := 1 / math.Sqrt(float64(in))
	d.w.uniform(rng, bound)
	d.b.uniform(rng, bound)
	return d
}

func (d *dense) params() []*Param { return []*Param{d.w, d.b} }

func (d *dense) forward(x []float64) []float64 {
	y := mat.NewVecDense(d.out, nil)
	y.MulVec(d.w.Value, mat.NewVecDense(d.in, x))
	out := y.RawVector().Data
	floats.Add(out, d.b.data())
	return out
}

// backward accumulates dW, db and returns dL/dx.
func (d *dense) backward(x, dy []float64) []float64 {
	dyv := mat.NewVecDense(d.out, dy)
	d.w.Grad.RankOne(d.w.Grad, 1, dyv, mat.NewVecDense(d.in, x))
	floats.Add(d.b.grad(), dy)

	dx := mat.NewVecDense(d.in, nil)
	dx.MulVec(d.w.Value.T(), dyv)
	return dx.RawVector().Data
}

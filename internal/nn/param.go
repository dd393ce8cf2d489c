package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Param is a trainable tensor and its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

func (p *Param) uniform(rng *rand.Rand, bound float64) {
	data := p.data()
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
}

func (p *Param) fill(v float64) {
	data := p.data()
	for i := range data {
		data[i] = v
	}
}

func (p *Param) data() []float64 { return p.Value.RawMatrix().Data }

func (p *Param) grad() []float64 { return p.Grad.RawMatrix().Data }

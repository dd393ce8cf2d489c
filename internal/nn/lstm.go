package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// lstm is a single-layer recurrent encoder with gates ordered i, f, g, o.
type lstm struct {
	in, hidden         int
	wih, whh, bih, bhh *Param
}

type lstmCache struct {
	xs         [][]float64
	hPrev      [][]float64
	cPrev      [][]float64
	i, f, g, o [][]float64
	tanhC      [][]float64
}

func newLSTM(in, hidden int, rng *rand.Rand) *lstm {
	l := &lstm{
		in:     in,
		hidden: hidden,
		wih:    newParam("lstm.w_ih", 4*hidden, in),
		whh:    newParam("lstm.w_hh", 4*hidden, hidden),
		bih:    newParam("lstm.b_ih", 1, 4*hidden),
		bhh:    newParam("lstm.b_hh", 1, 4*hidden),
	}
	bound := 1 / math.Sqrt(float64(hidden))
	for _, p := range l.params() {
		p.uniform(rng, bound)
	}
	return l
}

func (l *lstm) params() []*Param { return []*Param{l.wih, l.whh, l.bih, l.bhh} }

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// forward runs the sequence and returns every hidden state, flattened.
func (l *lstm) forward(xs [][]float64, cache *lstmCache) []float64 {
	H := l.hidden
	out := make([]float64, 0, len(xs)*H)
	h := make([]float64, H)
	c := make([]float64, H)

	for _, x := range xs {
		zv := mat.NewVecDense(4*H, nil)
		zv.MulVec(l.wih.Value, mat.NewVecDense(l.in, x))
		rec := mat.NewVecDense(4*H, nil)
		rec.MulVec(l.whh.Value, mat.NewVecDense(H, h))
		z := zv.RawVector().Data
		floats.Add(z, rec.RawVector().Data)
		floats.Add(z, l.bih.data())
		floats.Add(z, l.bhh.data())

		ig := make([]float64, H)
		fg := make([]float64, H)
		gg := make([]float64, H)
		og := make([]float64, H)
		tc := make([]float64, H)
		nc := make([]float64, H)
		nh := make([]float64, H)
		for k := 0; k < H; k++ {
			ig[k] = sigmoid(z[k])
			fg[k] = sigmoid(z[H+k])
			gg[k] = math.Tanh(z[2*H+k])
			og[k] = sigmoid(z[3*H+k])
			nc[k] = fg[k]*c[k] + ig[k]*gg[k]
			tc[k] = math.Tanh(nc[k])
			nh[k] = og[k] * tc[k]
		}
		if cache != nil {
			cache.xs = append(cache.xs, x)
			cache.hPrev = append(cache.hPrev, h)
			cache.cPrev = append(cache.cPrev, c)
			cache.i = append(cache.i, ig)
			cache.f = append(cache.f, fg)
			cache.g = append(cache.g, gg)
			cache.o = append(cache.o, og)
			cache.tanhC = append(cache.tanhC, tc)
		}
		h, c = nh, nc
		out = append(out, h...)
	}
	return out
}

// backward runs full BPTT given dL/d(hidden sequence).
func (l *lstm) backward(cache *lstmCache, dOut []float64) {
	H := l.hidden
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)

	for t := len(cache.xs) - 1; t >= 0; t-- {
		dh := make([]float64, H)
		copy(dh, dOut[t*H:(t+1)*H])
		floats.Add(dh, dhNext)

		ig, fg, gg, og, tc := cache.i[t], cache.f[t], cache.g[t], cache.o[t], cache.tanhC[t]
		dz := make([]float64, 4*H)
		dc := make([]float64, H)
		for k := 0; k < H; k++ {
			do := dh[k] * tc[k]
			dck := dh[k]*og[k]*(1-tc[k]*tc[k]) + dcNext[k]
			di := dck * gg[k]
			dg := dck * ig[k]
			df := dck * cache.cPrev[t][k]
			dc[k] = dck * fg[k]

			dz[k] = di * ig[k] * (1 - ig[k])
			dz[H+k] = df * fg[k] * (1 - fg[k])
			dz[2*H+k] = dg * (1 - gg[k]*gg[k])
			dz[3*H+k] = do * og[k] * (1 - og[k])
		}

		dzv := mat.NewVecDense(4*H, dz)
		l.wih.Grad.RankOne(l.wih.Grad, 1, dzv, mat.NewVecDense(l.in, cache.xs[t]))
		l.whh.Grad.RankOne(l.whh.Grad, 1, dzv, mat.NewVecDense(H, cache.hPrev[t]))
		floats.Add(l.bih.grad(), dz)
		floats.Add(l.bhh.grad(), dz)

		next := mat.NewVecDense(H, nil)
		next.MulVec(l.whh.Value.T(), dzv)
		dhNext = next.RawVector().Data
		dcNext = dc
	}
}

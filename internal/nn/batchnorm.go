package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// batchNorm normalises each channel of a single CHW sample. In training
// mode the statistics come from the sample's spatial positions and the
// running estimates are updated; otherwise the running estimates are used.
type batchNorm struct {
	channels, size  int
	gamma, beta     *Param
	runMean, runVar *mat.Dense
	momentum, eps   float64
}

type bnCache struct {
	xhat   []float64
	invStd []float64
	train  bool
}

func newBatchNorm(name string, channels, size int, momentum, eps float64) *batchNorm {
	bn := &batchNorm{
		channels: channels,
		size:     size,
		gamma:    newParam(name+".gamma", 1, channels),
		beta:     newParam(name+".beta", 1, channels),
		runMean:  mat.NewDense(1, channels, nil),
		runVar:   mat.NewDense(1, channels, nil),
		momentum: momentum,
		eps:      eps,
	}
	bn.gamma.fill(1)
	rv := bn.runVar.RawMatrix().Data
	for i := range rv {
		rv[i] = 1
	}
	return bn
}

func (bn *batchNorm) params() []*Param { return []*Param{bn.gamma, bn.beta} }

func (bn *batchNorm) forward(x []float64, train bool, cache *bnCache) []float64 {
	C, N := bn.channels, bn.size
	out := make([]float64, len(x))
	xhat := make([]float64, len(x))
	invStd := make([]float64, C)
	gamma, beta := bn.gamma.data(), bn.beta.data()
	rm, rv := bn.runMean.RawMatrix().Data, bn.runVar.RawMatrix().Data

	for c := 0; c < C; c++ {
		ch := x[c*N : (c+1)*N]
		var mean, variance float64
		if train {
			mean = floats.Sum(ch) / float64(N)
			for _, v := range ch {
				d := v - mean
				variance += d * d
			}
			variance /= float64(N)
			unbiased := variance
			if N > 1 {
				unbiased = variance * float64(N) / float64(N-1)
			}
			rm[c] = (1-bn.momentum)*rm[c] + bn.momentum*mean
			rv[c] = (1-bn.momentum)*rv[c] + bn.momentum*unbiased
		} else {
			mean, variance = rm[c], rv[c]
		}
		inv := 1 / math.Sqrt(variance+bn.eps)
		invStd[c] = inv
		for i, v := range ch {
			xh := (v - mean) * inv
			xhat[c*N+i] = xh
			out[c*N+i] = gamma[c]*xh + beta[c]
		}
	}
	if cache != nil {
		cache.xhat = xhat
		cache.invStd = invStd
		cache.train = train
	}
	return out
}

func (bn *batchNorm) backward(cache *bnCache, dy []float64) []float64 {
	C, N := bn.channels, bn.size
	gamma := bn.gamma.data()
	gGamma, gBeta := bn.gamma.grad(), bn.beta.grad()
	dx := make([]float64, len(dy))
	n := float64(N)

	for c := 0; c < C; c++ {
		dyc := dy[c*N : (c+1)*N]
		xh := cache.xhat[c*N : (c+1)*N]
		var sumDy, sumDyXh float64
		for i := range dyc {
			sumDy += dyc[i]
			sumDyXh += dyc[i] * xh[i]
		}
		gGamma[c] += sumDyXh
		gBeta[c] += sumDy

		scale := gamma[c] * cache.invStd[c]
		for i := range dyc {
			if cache.train {
				dx[c*N+i] = scale / n * (n*dyc[i] - sumDy - xh[i]*sumDyXh)
			} else {
				dx[c*N+i] = scale * dyc[i]
			}
		}
	}
	return dx
}

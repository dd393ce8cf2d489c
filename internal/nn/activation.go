package nn

import (
	"math"
	"math/rand"
)

func leakyReLU(x []float64, slope float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v > 0 {
			out[i] = v
		} else {
			out[i] = slope * v
		}
	}
	return out
}

func leakyReLUBackward(x, dy []float64, slope float64) []float64 {
	dx := make([]float64, len(dy))
	for i, v := range x {
		if v > 0 {
			dx[i] = dy[i]
		} else {
			dx[i] = slope * dy[i]
		}
	}
	return dx
}

// softmax is numerically stable: the max logit is subtracted first.
func softmax(z []float64) []float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func softmaxBackward(p, dp []float64) []float64 {
	var dot float64
	for i := range p {
		dot += p[i] * dp[i]
	}
	dz := make([]float64, len(p))
	for i := range p {
		dz[i] = p[i] * (dp[i] - dot)
	}
	return dz
}

// dropout uses inverted scaling. A nil mask means the layer was a pass-through.
func dropout(x []float64, rate float64, rng *rand.Rand, train bool) ([]float64, []float64) {
	if !train || rate == 0 {
		return x, nil
	}
	keep := 1 / (1 - rate)
	mask := make([]float64, len(x))
	out := make([]float64, len(x))
	for i, v := range x {
		if rng.Float64() >= rate {
			mask[i] = keep
			out[i] = v * keep
		}
	}
	return out, mask
}

func dropoutBackward(mask, dy []float64) []float64 {
	if mask == nil {
		return dy
	}
	dx := make([]float64, len(dy))
	for i := range dy {
		dx[i] = dy[i] * mask[i]
	}
	return dx
}

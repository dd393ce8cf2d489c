package nn

import "math"

// maxPool is a 2D max pool with implicit -Inf padding. The winner of a
// window is always an in-bounds input, even when every value is NaN.
type maxPool struct {
	g poolGeom
}

func (p *maxPool) forward(x []float64, argmax *[]int) []float64 {
	g := p.g
	out := make([]float64, g.channels*g.outH*g.outW)
	var idx []int
	if argmax != nil {
		idx = make([]int, len(out))
	}

	for c := 0; c < g.channels; c++ {
		base := c * g.inH * g.inW
		for oy := 0; oy < g.outH; oy++ {
			for ox := 0; ox < g.outW; ox++ {
				best, bestAt := math.Inf(-1), -1
				for ky := 0; ky < g.kernel; ky++ {
					iy := oy*g.stride + ky - g.pad
					if iy < 0 || iy >= g.inH {
						continue
					}
					for kx := 0; kx < g.kernel; kx++ {
						ix := ox*g.stride + kx - g.pad
						if ix < 0 || ix >= g.inW {
							continue
						}
						at := base + iy*g.inW + ix
						if v := x[at]; bestAt < 0 || v > best {
							best, bestAt = v, at
						}
					}
				}
				o := (c*g.outH+oy)*g.outW + ox
				out[o] = best
				if idx != nil {
					idx[o] = bestAt
				}
			}
		}
	}
	if argmax != nil {
		*argmax = idx
	}
	return out
}

func (p *maxPool) backward(argmax []int, dy []float64) []float64 {
	g := p.g
	dx := make([]float64, g.channels*g.inH*g.inW)
	for o, at := range argmax {
		dx[at] += dy[o]
	}
	return dx
}

package nn

import (
	"math"
	"math/rand"
)

// conv2d is a direct (im2col-free) 2D convolution over CHW tensors.
// The weight row for output channel oc holds inC*k*k values.
type conv2d struct {
	g    convGeom
	w, b *Param
}

func newConv2d(name string, g convGeom, rng *rand.Rand) *conv2d {
	fanIn := g.inC * g.kernel * g.kernel
	c := &conv2d{
		g: g,
		w: newParam(name+".w", g.outC, fanIn),
		b: newParam(name+".b", 1, g.outC),
	}
	bound := 1 / math.Sqrt(float64(fanIn))
	c.w.uniform(rng, bound)
	c.b.uniform(rng, bound)
	return c
}

func (c *conv2d) params() []*Param { return []*Param{c.w, c.b} }

func (c *conv2d) forward(x []float64) []float64 {
	g := c.g
	w, b := c.w.data(), c.b.data()
	kk := g.kernel * g.kernel
	out := make([]float64, g.outC*g.outH*g.outW)

	for oc := 0; oc < g.outC; oc++ {
		for oy := 0; oy < g.outH; oy++ {
			for ox := 0; ox < g.outW; ox++ {
				sum := b[oc]
				for ic := 0; ic < g.inC; ic++ {
					wBase := (oc*g.inC + ic) * kk
					xBase := ic * g.inH * g.inW
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
							sum += w[wBase+ky*g.kernel+kx] * x[xBase+iy*g.inW+ix]
						}
					}
				}
				out[(oc*g.outH+oy)*g.outW+ox] = sum
			}
		}
	}
	return out
}

// backward accumulates dW, db. dL/dx is only computed when needInput is set.
func (c *conv2d) backward(x, dy []float64, needInput bool) []float64 {
	g := c.g
	w := c.w.data()
	gw, gb := c.w.grad(), c.b.grad()
	kk := g.kernel * g.kernel

	var dx []float64
	if needInput {
		dx = make([]float64, g.inC*g.inH*g.inW)
	}
	for oc := 0; oc < g.outC; oc++ {
		for oy := 0; oy < g.outH; oy++ {
			for ox := 0; ox < g.outW; ox++ {
				d := dy[(oc*g.outH+oy)*g.outW+ox]
				if d == 0 {
					continue
				}
				gb[oc] += d
				for ic := 0; ic < g.inC; ic++ {
					wBase := (oc*g.inC + ic) * kk
					xBase := ic * g.inH * g.inW
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
							xi := xBase + iy*g.inW + ix
							wi := wBase + ky*g.kernel + kx
							gw[wi] += d * x[xi]
							if needInput {
								dx[xi] += d * w[wi]
							}
						}
					}
				}
			}
		}
	}
	return dx
}

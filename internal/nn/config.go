package nn

import (
	"errors"
	"fmt"
	"math"

	"FusionTrader/internal/model"
)

// ErrShape is returned when an observation does not match the input shape
// fixed at construction.
var ErrShape = errors.New("observation shape mismatch")

// Config fixes the network architecture.
type Config struct {
	WindowSize    int
	Features      int
	ImageChannels int
	ImageHeight   int
	ImageWidth    int

	HiddenSize int
	// RecurrentDropout is applied between stacked recurrent layers only.
	// The encoder has a single layer, so it never fires.
	RecurrentDropout float64

	ConvChannels []int // output channels of the two conv stages
	KernelSize   int
	LeakySlope   float64
	BNMomentum   float64
	BNEpsilon    float64

	FusionSizes []int
	Dropout     float64
	Actions     int

	Seed int64
}

// DefaultConfig returns the reference architecture.
func DefaultConfig() Config {
	return Config{
		WindowSize:       10,
		Features:         6,
		ImageChannels:    3,
		ImageHeight:      64,
		ImageWidth:       64,
		HiddenSize:       50,
		RecurrentDropout: 0.8,
		ConvChannels:     []int{8, 16},
		KernelSize:       7,
		LeakySlope:       0.01,
		BNMomentum:       0.1,
		BNEpsilon:        1e-5,
		FusionSizes:      []int{256, 128, 32},
		Dropout:          0.5,
		Actions:          model.NumActions,
		Seed:             1,
	}
}

type convGeom struct {
	inC, outC      int
	inH, inW       int
	kernel, stride int
	pad            int
	outH, outW     int
}

type poolGeom struct {
	channels       int
	inH, inW       int
	kernel, stride int
	pad            int
	outH, outW     int
}

type stageGeom struct {
	conv convGeom
	pool poolGeom
}

func outSize(n, kernel, stride, pad int) int {
	if n+2*pad < kernel {
		return 0
	}
	return (n+2*pad-kernel)/stride + 1
}

// stages lays out conv(stride 1, same) + pool(3/2, pad 0) followed by
// conv(stride 2) + pool(3/2, pad 1).
func (c Config) stages() []stageGeom {
	convStride := []int{1, 2}
	poolPad := []int{0, 1}
	h, w, ch := c.ImageHeight, c.ImageWidth, c.ImageChannels
	out := make([]stageGeom, 0, len(c.ConvChannels))
	for i, outC := range c.ConvChannels {
		pad := c.KernelSize / 2
		cg := convGeom{
			inC: ch, outC: outC,
			inH: h, inW: w,
			kernel: c.KernelSize, stride: convStride[i], pad: pad,
		}
		cg.outH = outSize(h, cg.kernel, cg.stride, pad)
		cg.outW = outSize(w, cg.kernel, cg.stride, pad)
		pg := poolGeom{
			channels: outC,
			inH:      cg.outH, inW: cg.outW,
			kernel: 3, stride: 2, pad: poolPad[i],
		}
		pg.outH = outSize(pg.inH, pg.kernel, pg.stride, pg.pad)
		pg.outW = outSize(pg.inW, pg.kernel, pg.stride, pg.pad)
		out = append(out, stageGeom{conv: cg, pool: pg})
		h, w, ch = pg.outH, pg.outW, outC
	}
	return out
}

func (c Config) recurrentSize() int {
	return c.WindowSize * c.HiddenSize
}

func (c Config) convSize() int {
	st := c.stages()
	last := st[len(st)-1].pool
	return last.channels * last.outH * last.outW
}

// FusionInput is the width of the concatenated branch features.
func (c Config) FusionInput() int {
	return c.recurrentSize() + c.convSize()
}

// Validate checks that the architecture produces non-empty tensors.
func (c Config) Validate() error {
	switch {
	case c.WindowSize <= 0:
		return fmt.Errorf("window size must be positive")
	case c.Features <= 0:
		return fmt.Errorf("features must be positive")
	case c.ImageChannels <= 0 || c.ImageHeight <= 0 || c.ImageWidth <= 0:
		return fmt.Errorf("image shape must be positive")
	case c.HiddenSize <= 0:
		return fmt.Errorf("hidden size must be positive")
	case len(c.ConvChannels) != 2:
		return fmt.Errorf("expected 2 conv stages, got %d", len(c.ConvChannels))
	case c.KernelSize <= 0 || c.KernelSize%2 == 0:
		return fmt.Errorf("kernel size must be odd and positive")
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0, 1)")
	case c.RecurrentDropout < 0 || c.RecurrentDropout > 1:
		return fmt.Errorf("recurrent dropout must be in [0, 1]")
	case c.Actions != model.NumActions:
		return fmt.Errorf("actions must be %d", model.NumActions)
	case c.BNEpsilon <= 0:
		return fmt.Errorf("batch-norm epsilon must be positive")
	}
	for _, ch := range c.ConvChannels {
		if ch <= 0 {
			return fmt.Errorf("conv channels must be positive")
		}
	}
	for _, size := range c.FusionSizes {
		if size <= 0 {
			return fmt.Errorf("fusion sizes must be positive")
		}
	}
	for i, st := range c.stages() {
		if st.conv.outH <= 0 || st.conv.outW <= 0 || st.pool.outH <= 0 || st.pool.outW <= 0 {
			return fmt.Errorf("image %dx%d too small for conv stage %d", c.ImageHeight, c.ImageWidth, i+1)
		}
	}
	return nil
}

// CheckObservation verifies obs has exactly the configured shape and holds
// only finite values.
func (c Config) CheckObservation(obs model.Observation) error {
	if len(obs.Series) != c.WindowSize {
		return fmt.Errorf("%w: series has %d steps, want %d", ErrShape, len(obs.Series), c.WindowSize)
	}
	for i, row := range obs.Series {
		if len(row) != c.Features {
			return fmt.Errorf("%w: series step %d has %d features, want %d", ErrShape, i, len(row), c.Features)
		}
	}
	im := obs.Image
	if im.Channels != c.ImageChannels || im.Height != c.ImageHeight || im.Width != c.ImageWidth {
		return fmt.Errorf("%w: image is %dx%dx%d, want %dx%dx%d", ErrShape,
			im.Channels, im.Height, im.Width, c.ImageChannels, c.ImageHeight, c.ImageWidth)
	}
	if len(im.Pix) != im.Channels*im.Height*im.Width {
		return fmt.Errorf("%w: image has %d values, want %d", ErrShape, len(im.Pix), im.Channels*im.Height*im.Width)
	}
	for i, row := range obs.Series {
		for j, v := range row {
			if !finite(v) {
				return fmt.Errorf("%w: non-finite value %v at series step %d feature %d", ErrShape, v, i, j)
			}
		}
	}
	for i, v := range im.Pix {
		if !finite(float64(v)) {
			return fmt.Errorf("%w: non-finite value %v at image index %d", ErrShape, v, i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

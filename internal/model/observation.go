package model

// Image is a dense CHW tensor with values in [0, 1]. Pixels are kept in
// single precision: replay memory holds two images per transition.
type Image struct {
	Channels int
	Height   int
	Width    int
	Pix      []float32
}

// NewImage allocates a zeroed image of the given shape.
func NewImage(channels, height, width int) Image {
	return Image{
		Channels: channels,
		Height:   height,
		Width:    width,
		Pix:      make([]float32, channels*height*width),
	}
}

// At returns the value at channel c, row y, column x.
func (im Image) At(c, y, x int) float64 {
	return float64(im.Pix[(c*im.Height+y)*im.Width+x])
}

// Set stores v at channel c, row y, column x.
func (im Image) Set(c, y, x int, v float64) {
	im.Pix[(c*im.Height+y)*im.Width+x] = float32(v)
}

// Float64s returns the pixels widened to float64, in CHW order.
func (im Image) Float64s() []float64 {
	out := make([]float64, len(im.Pix))
	for i, v := range im.Pix {
		out[i] = float64(v)
	}
	return out
}

// Observation pairs a feature window with a chart image of the same window.
// Series is ordered oldest first; every row holds one value per feature.
type Observation struct {
	Series [][]float64
	Image  Image
}

// Transition is one step of experience. It is never modified after creation.
type Transition struct {
	State  Observation
	Action Action
	Reward float64
	Next   Observation
	Done   bool
}

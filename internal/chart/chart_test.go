package chart

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FusionTrader/internal/model"
)

func TestRenderColoursCandles(t *testing.T) {
	bars := []model.OHLCV{
		{Open: 10, High: 12, Low: 9, Close: 11},  // up
		{Open: 11, High: 11.5, Low: 8, Close: 9}, // down
	}
	img := Render(bars, 20, 20)
	require.Equal(t, 20, img.Bounds().Dx())

	var green, red int
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			switch img.RGBAAt(x, y) {
			case upColor:
				green++
				assert.Less(t, x, 10)
			case downColor:
				red++
				assert.GreaterOrEqual(t, x, 10)
			}
		}
	}
	assert.Positive(t, green)
	assert.Positive(t, red)

	// The highest high touches the top row, the lowest low the bottom row.
	assert.Equal(t, upColor, img.RGBAAt(4, 0))
	assert.Equal(t, downColor, img.RGBAAt(14, 19))
}

func TestRenderEmpty(t *testing.T) {
	img := Render(nil, 4, 4)
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(2, 2))
}

func TestToImage(t *testing.T) {
	img := Render([]model.OHLCV{{Open: 1, High: 2, Low: 1, Close: 2}}, 8, 6)
	im := ToImage(img)
	assert.Equal(t, 3, im.Channels)
	assert.Equal(t, 6, im.Height)
	assert.Equal(t, 8, im.Width)
	require.Len(t, im.Pix, 3*6*8)
	for _, v := range im.Pix {
		assert.True(t, v >= 0 && v <= 1)
	}
	assert.InDelta(t, 200.0/255, im.At(1, 0, 4), 1e-6)
}

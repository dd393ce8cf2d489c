// Package chart rasterises a window of bars into a candlestick image.
package chart

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"FusionTrader/internal/calculator"
	"FusionTrader/internal/model"
)

var (
	background = color.RGBA{A: 255}
	upColor    = color.RGBA{G: 200, A: 255}
	downColor  = color.RGBA{R: 220, A: 255}
)

// Render draws bars as candlesticks on a width x height canvas. Prices are
// scaled to the window's own high/low; up bars are green and down bars red.
func Render(bars []model.OHLCV, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	if len(bars) == 0 || width <= 0 || height <= 0 {
		return img
	}
	high, low, _ := calculator.PriceRange(bars)

	toY := func(price float64) int {
		pos, _ := calculator.Position(price, high, low)
		return int(math.Round((1 - pos) * float64(height-1)))
	}

	slot := float64(width) / float64(len(bars))
	for i, b := range bars {
		c := upColor
		if b.Close < b.Open {
			c = downColor
		}
		left := int(math.Floor(float64(i) * slot))
		right := int(math.Ceil(float64(i+1)*slot)) - 1
		if right >= width {
			right = width - 1
		}
		mid := (left + right) / 2
		if slot >= 3 {
			left++
			right--
		}

		wickTop, wickBottom := toY(b.High), toY(b.Low)
		fill(img, image.Rect(mid, wickTop, mid+1, wickBottom+1), c)

		bodyTop, bodyBottom := toY(math.Max(b.Open, b.Close)), toY(math.Min(b.Open, b.Close))
		fill(img, image.Rect(left, bodyTop, right+1, bodyBottom+1), c)
	}
	return img
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// ToImage converts img to a CHW tensor of RGB values in [0, 1].
func ToImage(img *image.RGBA) model.Image {
	bounds := img.Bounds()
	out := model.NewImage(3, bounds.Dy(), bounds.Dx())
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			px := img.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			out.Set(0, y, x, float64(px.R)/255)
			out.Set(1, y, x, float64(px.G)/255)
			out.Set(2, y, x, float64(px.B)/255)
		}
	}
	return out
}

// Package dataset turns a bar history into fused observations: a scaled
// feature window plus a candlestick image of the same window.
package dataset

import (
	"errors"
	"fmt"
	"math"

	"FusionTrader/internal/calculator"
	"FusionTrader/internal/chart"
	"FusionTrader/internal/model"
)

// NumFeatures is open, high, low, close, volume and the moving average.
const NumFeatures = 6

var (
	ErrTooShort  = errors.New("not enough bars")
	ErrNonFinite = errors.New("non-finite bar value")
)

// Dataset is an immutable view over one symbol's daily bars.
type Dataset struct {
	symbol   string
	bars     []model.OHLCV
	features [][]float64
	window   int
	height   int
	width    int
}

// New validates bars and precomputes the raw features. At least window+1
// bars are needed to produce a single transition.
func New(symbol string, bars []model.OHLCV, window, height, width int) (*Dataset, error) {
	if window <= 0 || height <= 0 || width <= 0 {
		return nil, fmt.Errorf("window and image size must be positive")
	}
	if len(bars) < window+1 {
		return nil, fmt.Errorf("%w: %s has %d, need %d", ErrTooShort, symbol, len(bars), window+1)
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s bar %d (%s)", ErrNonFinite, symbol, i, b.Time.Format("2006-01-02"))
			}
		}
		closes[i] = b.Close
	}
	ma, err := calculator.MovingAverage(closes, calculator.DefaultMAPeriod)
	if err != nil {
		return nil, err
	}
	features := make([][]float64, len(bars))
	for i, b := range bars {
		features[i] = []float64{b.Open, b.High, b.Low, b.Close, b.Volume, ma[i]}
	}
	return &Dataset{
		symbol:   symbol,
		bars:     bars,
		features: features,
		window:   window,
		height:   height,
		width:    width,
	}, nil
}

func (d *Dataset) Symbol() string { return d.symbol }

// Len is the number of bars.
func (d *Dataset) Len() int { return len(d.bars) }

// Window is the number of bars in every observation.
func (d *Dataset) Window() int { return d.window }

// Price returns the close at t.
func (d *Dataset) Price(t int) float64 { return d.bars[t].Close }

// Bar returns the bar at t.
func (d *Dataset) Bar(t int) model.OHLCV { return d.bars[t] }

// windowIndices returns the bar indices of the window ending at t. Positions
// before the first bar repeat bar 0.
func (d *Dataset) windowIndices(t int) []int {
	idx := make([]int, d.window)
	for i := range idx {
		j := t - d.window + 1 + i
		if j < 0 {
			j = 0
		}
		idx[i] = j
	}
	return idx
}

// Observation builds the observation for the window ending at t (inclusive).
// Each feature column is min-max scaled within the window.
func (d *Dataset) Observation(t int) (model.Observation, error) {
	if t < 0 || t >= len(d.bars) {
		return model.Observation{}, fmt.Errorf("index %d out of range [0, %d)", t, len(d.bars))
	}
	idx := d.windowIndices(t)

	series := make([][]float64, d.window)
	for i := range series {
		series[i] = make([]float64, NumFeatures)
	}
	column := make([]float64, d.window)
	for f := 0; f < NumFeatures; f++ {
		for i, j := range idx {
			column[i] = d.features[j][f]
		}
		for i, v := range calculator.ScaleToRange(column) {
			series[i][f] = v
		}
	}

	bars := make([]model.OHLCV, d.window)
	for i, j := range idx {
		bars[i] = d.bars[j]
	}
	img := chart.ToImage(chart.Render(bars, d.width, d.height))
	return model.Observation{Series: series, Image: img}, nil
}

// Last is the observation for the most recent bar.
func (d *Dataset) Last() (model.Observation, error) {
	return d.Observation(len(d.bars) - 1)
}

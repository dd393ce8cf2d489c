package calculator

import (
	"errors"
	"math"

	"FusionTrader/internal/model"
)

// PriceRange returns the highest high and lowest low of bars.
func PriceRange(bars []model.OHLCV) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// Position returns where v sits within [low, high], clamped to 0.0~1.0.
// A flat range maps to 0.5.
func Position(v, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (v - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// ScaleToRange min-max scales values into [0, 1]. A constant series becomes
// all 0.5.
func ScaleToRange(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for i, v := range values {
		out[i], _ = Position(v, hi, lo)
	}
	return out
}

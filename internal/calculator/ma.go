package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"

	"FusionTrader/internal/model"
)

// DefaultMAPeriod is the moving-average length used as the sixth feature.
const DefaultMAPeriod = 15

// MovingAverage returns one simple moving average value per close. The first
// period-1 entries hold the mean of the closes seen so far, so the feature is
// defined from the very first bar.
func MovingAverage(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]float64, len(closes))
	var sum float64
	for i := 0; i < len(closes) && i < period-1; i++ {
		sum += closes[i]
		out[i] = sum / float64(i+1)
	}
	if len(closes) < period {
		return out, nil
	}
	sma := talib.Sma(closes, period)
	copy(out[period-1:], sma[period-1:])
	return out, nil
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

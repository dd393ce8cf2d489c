package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"

	"FusionTrader/internal/model"
)

// CalculateRSI returns the latest Wilder-smoothed RSI over period.
// Returns 50.0 if there are fewer than period+1 bars.
func CalculateRSI(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 50.0, nil // neutral when data insufficient
	}
	series := talib.Rsi(extractCloses(bars), period)
	return series[len(series)-1], nil
}

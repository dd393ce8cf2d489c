package collector

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"FusionTrader/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return GenerateBars(m.Price, days), nil
}

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, _ string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Price, nil
}

// GenerateBars produces a deterministic oscillating series around basePrice.
func GenerateBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.05*math.Sin(float64(i)/5) + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + float64(i%7)*50000,
		}
	}
	return bars
}

// Collector fetches the bar history and live quote for one symbol.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol}
}

// Collect fetches daily bars and the current price concurrently. The quote
// replaces the close of the latest bar; if it cannot be fetched the latest
// close stands in.
func (c *Collector) Collect(ctx context.Context, days int) (*model.PriceSeries, error) {
	var (
		bars  []model.OHLCV
		quote float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bars, err = c.Fetcher.FetchDailyBars(gctx, c.Symbol, days)
		if err != nil {
			return fmt.Errorf("fetch daily bars: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := c.Fetcher.FetchCurrentPrice(gctx, c.Symbol)
		if err != nil {
			log.Printf("[WARN] %s current price failed: %v, using last close", c.Fetcher.Name(), err)
			return nil
		}
		quote = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch daily bars: no data for %s", c.Symbol)
	}

	bars = append([]model.OHLCV(nil), bars...)
	last := &bars[len(bars)-1]
	if quote > 0 {
		last.Close = quote
		last.High = math.Max(last.High, quote)
		last.Low = math.Min(last.Low, quote)
	}
	return &model.PriceSeries{
		Symbol:       c.Symbol,
		DailyBars:    bars,
		CurrentPrice: last.Close,
		FetchedAt:    time.Now(),
	}, nil
}

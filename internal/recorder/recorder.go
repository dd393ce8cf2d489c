package recorder

import (
	"time"

	"github.com/shopspring/decimal"

	"FusionTrader/internal/model"
)

// Run describes one training or evaluation session.
type Run struct {
	ID        string
	Symbol    string
	Mode      string // "training" or "evaluation"
	Episodes  int
	BatchSize int
	Bars      int
	StartedAt time.Time
}

// Episode is the summary written at the end of every episode.
type Episode struct {
	RunID       string
	Episode     int
	Steps       int
	Trades      int
	TotalProfit decimal.Decimal
	MeanLoss    float64
	Epsilon     float64
	Checkpoint  string
	Duration    time.Duration
}

// SignalEvent is one daemon prediction.
type SignalEvent struct {
	Signal *model.TradeSignal
	Model  string
}

// TradeEvent is one paper-portfolio fill.
type TradeEvent struct {
	Symbol    string
	Side      model.Action
	Price     decimal.Decimal
	Profit    decimal.Decimal
	CashAfter decimal.Decimal
	Holdings  int
	Note      string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRun(run *Run) error
	RecordEpisode(ep *Episode) error
	RecordSignal(evt *SignalEvent) error
	RecordTrade(evt *TradeEvent) error
	Close() error
}

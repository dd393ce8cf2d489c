package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one open unit of the paper portfolio.
type Lot struct {
	Price    decimal.Decimal `json:"price"`
	OpenedAt time.Time       `json:"opened_at"`
}

// PortfolioState is persisted to a JSON file between runs.
type PortfolioState struct {
	Version     int             `json:"version"`
	Symbol      string          `json:"symbol"`
	InitialCash decimal.Decimal `json:"initial_cash"`
	Cash        decimal.Decimal `json:"cash"`
	Lots        []Lot           `json:"lots"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	Trades      int             `json:"trades"`
	LastAction  string          `json:"last_action"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

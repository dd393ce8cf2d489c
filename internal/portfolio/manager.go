// Package portfolio keeps a one-unit-per-signal paper portfolio that follows
// the daemon's signals.
package portfolio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"FusionTrader/internal/model"
)

// Fill describes what Apply did with a signal.
type Fill struct {
	Action   model.Action // action actually taken; HOLD when skipped
	Price    decimal.Decimal
	Profit   decimal.Decimal // realised on SELL
	Executed bool
	Note     string
}

// Snapshot values the portfolio at a price.
type Snapshot struct {
	Symbol      string
	Cash        decimal.Decimal
	Holdings    int
	MarketValue decimal.Decimal
	Equity      decimal.Decimal
	Unrealized  decimal.Decimal
	RealizedPnL decimal.Decimal
	Return      decimal.Decimal // equity / initial cash - 1
	Trades      int
}

// Manager applies signals to the persisted state with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.PortfolioState
	filePath string
}

// NewManager creates a Manager, loading or initialising state from disk.
func NewManager(filePath, symbol string, initialCash float64) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}

	// Initialise if fresh state
	if state.InitialCash.IsZero() {
		if initialCash <= 0 {
			return nil, errors.New("initial cash must be positive")
		}
		state.Symbol = symbol
		state.InitialCash = decimal.NewFromFloat(initialCash)
		state.Cash = state.InitialCash
	} else if state.Symbol != symbol {
		return nil, fmt.Errorf("portfolio %s tracks %s, not %s", filePath, state.Symbol, symbol)
	}

	m := &Manager{state: state, filePath: filePath}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() model.PortfolioState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.state
	s.Lots = append([]model.Lot(nil), m.state.Lots...)
	return s
}

// Apply acts on signal at signal.Price: BUY opens one unit if cash allows,
// SELL closes the oldest unit, anything else (or a non-tradable tier) holds.
func (m *Manager) Apply(signal *model.TradeSignal) (*Fill, error) {
	if signal.Price <= 0 {
		return nil, fmt.Errorf("signal price must be positive, got %v", signal.Price)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	price := decimal.NewFromFloat(signal.Price)
	fill := &Fill{Action: model.ActionHold, Price: price}

	switch {
	case !signal.Tier.Tradable && signal.Action != model.ActionHold:
		fill.Note = fmt.Sprintf("%s confidence too low to trade", signal.Tier.Label)
	case signal.Action == model.ActionBuy:
		if m.state.Cash.LessThan(price) {
			fill.Note = "insufficient cash"
			break
		}
		m.state.Cash = m.state.Cash.Sub(price)
		m.state.Lots = append(m.state.Lots, model.Lot{Price: price, OpenedAt: time.Now()})
		fill.Action, fill.Executed = model.ActionBuy, true
	case signal.Action == model.ActionSell:
		if len(m.state.Lots) == 0 {
			fill.Note = "nothing to sell"
			break
		}
		lot := m.state.Lots[0]
		m.state.Lots = m.state.Lots[1:]
		m.state.Cash = m.state.Cash.Add(price)
		fill.Profit = price.Sub(lot.Price)
		m.state.RealizedPnL = m.state.RealizedPnL.Add(fill.Profit)
		fill.Action, fill.Executed = model.ActionSell, true
	}

	if fill.Executed {
		m.state.Trades++
	}
	m.state.LastAction = fill.Action.String()
	if err := m.save(); err != nil {
		log.Printf("[ERROR] failed to save portfolio state: %v", err)
	}
	return fill, nil
}

// Snapshot values open lots at price.
func (m *Manager) Snapshot(price float64) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := decimal.NewFromFloat(price)
	cost := decimal.Zero
	for _, lot := range m.state.Lots {
		cost = cost.Add(lot.Price)
	}
	value := p.Mul(decimal.NewFromInt(int64(len(m.state.Lots))))
	equity := m.state.Cash.Add(value)
	ret := decimal.Zero
	if !m.state.InitialCash.IsZero() {
		ret = equity.Div(m.state.InitialCash).Sub(decimal.NewFromInt(1))
	}
	return Snapshot{
		Symbol:      m.state.Symbol,
		Cash:        m.state.Cash,
		Holdings:    len(m.state.Lots),
		MarketValue: value,
		Equity:      equity,
		Unrealized:  value.Sub(cost),
		RealizedPnL: m.state.RealizedPnL,
		Return:      ret,
		Trades:      m.state.Trades,
	}
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}

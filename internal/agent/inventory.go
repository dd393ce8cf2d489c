package agent

import "github.com/shopspring/decimal"

// Inventory is the FIFO list of open long positions, one unit each.
type Inventory struct {
	lots []decimal.Decimal
}

// Buy opens one unit at price.
func (inv *Inventory) Buy(price float64) {
	inv.lots = append(inv.lots, decimal.NewFromFloat(price))
}

// Sell closes the oldest unit at price and returns the realised profit.
// ok is false when nothing is held.
func (inv *Inventory) Sell(price float64) (profit decimal.Decimal, ok bool) {
	if len(inv.lots) == 0 {
		return decimal.Zero, false
	}
	bought := inv.lots[0]
	inv.lots = inv.lots[1:]
	return decimal.NewFromFloat(price).Sub(bought), true
}

// Len returns the number of open units.
func (inv *Inventory) Len() int { return len(inv.lots) }

// Reset drops every open unit.
func (inv *Inventory) Reset() { inv.lots = inv.lots[:0] }

// Lots returns a copy of the open entry prices, oldest first.
func (inv *Inventory) Lots() []decimal.Decimal {
	out := make([]decimal.Decimal, len(inv.lots))
	copy(out, inv.lots)
	return out
}

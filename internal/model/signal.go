package model

import "fmt"

// Action is the discrete decision taken by the agent.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

// NumActions is the size of the action space.
const NumActions = 3

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Valid reports whether a is one of the three known actions.
func (a Action) Valid() bool {
	return a >= ActionHold && a <= ActionSell
}

// ConfidenceTier maps the winning probability to a label.
type ConfidenceTier struct {
	Label    string
	MinProb  float64
	Tradable bool // false keeps the paper portfolio flat for this signal
}

// TradeSignal is the interpreted output of the value network.
type TradeSignal struct {
	Symbol        string
	Action        Action
	Confidence    float64
	Probabilities []float64
	Tier          ConfidenceTier
	Price         float64
	RSI           float64
	WarningMsg    string
}

package strategy

import (
	"fmt"
	"sort"
	"strings"

	"FusionTrader/internal/model"
)

// Tiers maps the winning probability to a confidence level, highest first.
var Tiers = []model.ConfidenceTier{
	{Label: "strong", MinProb: 0.8, Tradable: true},
	{Label: "firm", MinProb: 0.6, Tradable: true},
	{Label: "moderate", MinProb: 0.45, Tradable: true},
}

// DefaultTier is used below the lowest threshold.
var DefaultTier = model.ConfidenceTier{Label: "weak", MinProb: 0, Tradable: false}

// AmbiguityMargin is the probability gap under which the top two actions
// are reported as a near tie.
const AmbiguityMargin = 0.05

// RSI levels that flag a signal running against an extended market.
const (
	OverboughtRSI = 85.0
	OversoldRSI   = 15.0
)

func mapTier(confidence float64) model.ConfidenceTier {
	for _, t := range Tiers {
		if confidence >= t.MinProb {
			return t
		}
	}
	return DefaultTier
}

// Interpret turns an action distribution into a signal: the argmax action,
// its probability as confidence and the matching tier.
func Interpret(probs []float64) (*model.TradeSignal, error) {
	if len(probs) != model.NumActions {
		return nil, fmt.Errorf("expected %d probabilities, got %d", model.NumActions, len(probs))
	}
	order := []int{0, 1, 2}
	sort.SliceStable(order, func(i, j int) bool { return probs[order[i]] > probs[order[j]] })

	best := model.Action(order[0])
	signal := &model.TradeSignal{
		Action:        best,
		Confidence:    probs[best],
		Probabilities: append([]float64(nil), probs...),
		Tier:          mapTier(probs[best]),
	}
	runnerUp := model.Action(order[1])
	if probs[best]-probs[runnerUp] < AmbiguityMargin {
		signal.WarningMsg = fmt.Sprintf("⚠️ %s and %s are nearly tied (%.2f vs %.2f)",
			best, runnerUp, probs[best], probs[runnerUp])
	}
	return signal, nil
}

// Evaluate interprets probs for symbol at price and adds RSI warnings when
// the signal buys into an overbought market or sells into an oversold one.
func Evaluate(symbol string, probs []float64, price, rsi float64) (*model.TradeSignal, error) {
	signal, err := Interpret(probs)
	if err != nil {
		return nil, err
	}
	signal.Symbol = symbol
	signal.Price = price
	signal.RSI = rsi

	var warnings []string
	if signal.WarningMsg != "" {
		warnings = append(warnings, signal.WarningMsg)
	}
	switch {
	case signal.Action == model.ActionBuy && rsi > OverboughtRSI:
		warnings = append(warnings, fmt.Sprintf("⚠️ RSI %.1f > %.0f: buying into an overbought market", rsi, OverboughtRSI))
	case signal.Action == model.ActionSell && rsi < OversoldRSI:
		warnings = append(warnings, fmt.Sprintf("⚠️ RSI %.1f < %.0f: selling into an oversold market", rsi, OversoldRSI))
	}
	signal.WarningMsg = strings.Join(warnings, "\n")
	return signal, nil
}

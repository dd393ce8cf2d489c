package notifier

import (
	"fmt"
	"strings"
	"time"

	"FusionTrader/internal/model"
	"FusionTrader/internal/portfolio"
)

var actionIcons = map[model.Action]string{
	model.ActionHold: "⏸",
	model.ActionBuy:  "🟢",
	model.ActionSell: "🔴",
}

// FormatSignalReport formats a daemon signal and the paper fill it produced.
// fill may be nil.
func FormatSignalReport(signal *model.TradeSignal, fill *portfolio.Fill) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>FusionTrader signal</b> | %s | %s\n\n", signal.Symbol, time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Price: %.2f | RSI(14): %.1f\n\n", signal.Price, signal.RSI))

	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%s, %.1f%%)\n", actionIcons[signal.Action], signal.Action,
		signal.Tier.Label, signal.Confidence*100))
	for i, p := range signal.Probabilities {
		b.WriteString(fmt.Sprintf("  %-4s %5.1f%%\n", model.Action(i), p*100))
	}

	if fill != nil {
		b.WriteString("\n💼 <b>Paper trade:</b> ")
		switch {
		case fill.Executed && fill.Action == model.ActionSell:
			b.WriteString(fmt.Sprintf("sold 1 @ %s (P&L %s)\n", fill.Price.StringFixed(2), fill.Profit.StringFixed(2)))
		case fill.Executed:
			b.WriteString(fmt.Sprintf("bought 1 @ %s\n", fill.Price.StringFixed(2)))
		case fill.Note != "":
			b.WriteString(fmt.Sprintf("none (%s)\n", fill.Note))
		default:
			b.WriteString("none\n")
		}
	}

	if signal.WarningMsg != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", signal.WarningMsg))
	}
	return b.String()
}

// FormatPortfolioStatus formats a portfolio valuation for display.
func FormatPortfolioStatus(snap portfolio.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Paper portfolio</b> | %s\n\n", snap.Symbol))
	b.WriteString(fmt.Sprintf("Cash: %s\n", snap.Cash.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Holdings: %d (value %s)\n", snap.Holdings, snap.MarketValue.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Equity: %s (%s%%)\n", snap.Equity.StringFixed(2), snap.Return.Shift(2).StringFixed(2)))
	b.WriteString(fmt.Sprintf("Realised P&L: %s | Unrealised: %s\n", snap.RealizedPnL.StringFixed(2), snap.Unrealized.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Trades: %d\n", snap.Trades))
	return b.String()
}

// TrainingSummary is the outcome of a training run as shown to users.
type TrainingSummary struct {
	RunID       string
	Symbol      string
	Episodes    int
	FinalProfit string
	BestEpisode int
	BestProfit  string
	Epsilon     float64
	Checkpoint  string
	Duration    time.Duration
}

// FormatTrainingSummary formats the end-of-run report.
func FormatTrainingSummary(s TrainingSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧠 <b>Training finished</b> | %s\n\n", s.Symbol))
	b.WriteString(fmt.Sprintf("Run: %s\n", s.RunID))
	b.WriteString(fmt.Sprintf("Episodes: %d in %s\n", s.Episodes, s.Duration.Round(time.Second)))
	b.WriteString(fmt.Sprintf("Last profit: %s | Best: %s (ep %d)\n", s.FinalProfit, s.BestProfit, s.BestEpisode))
	b.WriteString(fmt.Sprintf("Epsilon: %.4f\n", s.Epsilon))
	if s.Checkpoint != "" {
		b.WriteString(fmt.Sprintf("Checkpoint: %s\n", s.Checkpoint))
	}
	return b.String()
}

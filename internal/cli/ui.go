package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"FusionTrader/internal/model"
	"FusionTrader/internal/trainer"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1).
			MarginBottom(1)

	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(1, 2).
			Width(72)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

func renderTitle(text string) string {
	return titleStyle.Render(text)
}

func renderError(err error) string {
	return errorStyle.Render("✗ " + err.Error())
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-12s", label)) + value
}

// episodeLine is printed as each episode finishes.
func episodeLine(sum trainer.EpisodeSummary) string {
	profit := sum.TotalProfit.StringFixed(2)
	if sum.TotalProfit.IsNegative() {
		profit = lossStyle.Render(profit)
	} else {
		profit = gainStyle.Render(profit)
	}
	line := fmt.Sprintf("ep %3d  profit %s  trades %3d  loss %.6f  ε %.4f  %s",
		sum.Episode, profit, sum.Trades, sum.MeanLoss, sum.Epsilon,
		sum.Duration.Round(time.Millisecond))
	if sum.Checkpoint != "" {
		line += labelStyle.Render("  → " + sum.Checkpoint)
	}
	return line
}

// summaryBox renders the outcome of a run.
func summaryBox(title, runID, symbol string, sums []trainer.EpisodeSummary) string {
	if len(sums) == 0 {
		return summaryStyle.Render(title + "\n\nno episodes completed")
	}
	last := sums[len(sums)-1]
	best := bestEpisode(sums)

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(row("Run", runID) + "\n")
	b.WriteString(row("Symbol", symbol) + "\n")
	b.WriteString(row("Episodes", fmt.Sprintf("%d", len(sums))) + "\n")
	b.WriteString(row("Last profit", last.TotalProfit.StringFixed(2)) + "\n")
	b.WriteString(row("Best", fmt.Sprintf("%s (ep %d)", best.TotalProfit.StringFixed(2), best.Episode)) + "\n")
	b.WriteString(row("Actions", fmt.Sprintf("%s %d / %s %d / %s %d",
		model.ActionHold, last.Actions[model.ActionHold],
		model.ActionBuy, last.Actions[model.ActionBuy],
		model.ActionSell, last.Actions[model.ActionSell])) + "\n")
	b.WriteString(row("Epsilon", fmt.Sprintf("%.4f", last.Epsilon)))
	if cp := lastCheckpoint(sums); cp != "" {
		b.WriteString("\n" + row("Checkpoint", cp))
	}
	return summaryStyle.Render(b.String())
}

func bestEpisode(sums []trainer.EpisodeSummary) trainer.EpisodeSummary {
	best := sums[0]
	for _, s := range sums[1:] {
		if s.TotalProfit.GreaterThan(best.TotalProfit) {
			best = s
		}
	}
	return best
}

func lastCheckpoint(sums []trainer.EpisodeSummary) string {
	for i := len(sums) - 1; i >= 0; i-- {
		if sums[i].Checkpoint != "" {
			return sums[i].Checkpoint
		}
	}
	return ""
}

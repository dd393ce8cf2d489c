package portfolio

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FusionTrader/internal/model"
)

var tradable = model.ConfidenceTier{Label: "firm", MinProb: 0.6, Tradable: true}

func signal(a model.Action, price float64) *model.TradeSignal {
	return &model.TradeSignal{Symbol: "AAPL", Action: a, Price: price, Tier: tradable}
}

func TestBuySellRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	m, err := NewManager(path, "AAPL", 250)
	require.NoError(t, err)

	fill, err := m.Apply(signal(model.ActionBuy, 100))
	require.NoError(t, err)
	assert.True(t, fill.Executed)
	_, err = m.Apply(signal(model.ActionBuy, 110))
	require.NoError(t, err)

	fill, err = m.Apply(signal(model.ActionBuy, 120))
	require.NoError(t, err)
	assert.False(t, fill.Executed, "only 50 cash left")
	assert.Equal(t, model.ActionHold, fill.Action)

	fill, err = m.Apply(signal(model.ActionSell, 130))
	require.NoError(t, err)
	assert.True(t, fill.Executed)
	assert.True(t, fill.Profit.Equal(decimal.NewFromInt(30)), "oldest lot closes first")

	snap := m.Snapshot(120)
	assert.Equal(t, 1, snap.Holdings)
	assert.True(t, snap.Cash.Equal(decimal.NewFromInt(170)))
	assert.True(t, snap.Equity.Equal(decimal.NewFromInt(290)))
	assert.True(t, snap.Unrealized.Equal(decimal.NewFromInt(10)))
	assert.True(t, snap.RealizedPnL.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 3, snap.Trades)
	assert.Equal(t, "0.16", snap.Return.StringFixed(2))
}

func TestStatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	m, err := NewManager(path, "AAPL", 1000)
	require.NoError(t, err)
	_, err = m.Apply(signal(model.ActionBuy, 100))
	require.NoError(t, err)

	reloaded, err := NewManager(path, "AAPL", 5)
	require.NoError(t, err)
	st := reloaded.GetState()
	assert.True(t, st.InitialCash.Equal(decimal.NewFromInt(1000)))
	assert.True(t, st.Cash.Equal(decimal.NewFromInt(900)))
	require.Len(t, st.Lots, 1)
	assert.Equal(t, "BUY", st.LastAction)

	_, err = NewManager(path, "MSFT", 1000)
	assert.Error(t, err)
}

func TestHoldCases(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "p.json"), "AAPL", 1000)
	require.NoError(t, err)

	fill, err := m.Apply(signal(model.ActionSell, 100))
	require.NoError(t, err)
	assert.False(t, fill.Executed)
	assert.Equal(t, "nothing to sell", fill.Note)

	weak := signal(model.ActionBuy, 100)
	weak.Tier = model.ConfidenceTier{Label: "weak"}
	fill, err = m.Apply(weak)
	require.NoError(t, err)
	assert.False(t, fill.Executed)
	assert.Contains(t, fill.Note, "weak")

	_, err = m.Apply(signal(model.ActionBuy, 0))
	assert.Error(t, err)

	_, err = NewManager(filepath.Join(t.TempDir(), "q.json"), "AAPL", 0)
	assert.Error(t, err)
}

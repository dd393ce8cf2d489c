package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FusionTrader/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRunAndEpisodes(t *testing.T) {
	r := openTemp(t)
	require.NoError(t, r.RecordRun(&Run{
		ID: "run-1", Symbol: "AAPL", Mode: "training", Episodes: 2, BatchSize: 32, Bars: 250,
		StartedAt: time.Now(),
	}))
	for ep := 1; ep <= 2; ep++ {
		require.NoError(t, r.RecordEpisode(&Episode{
			RunID: "run-1", Episode: ep, Steps: 249, Trades: 3,
			TotalProfit: decimal.RequireFromString("12.75"),
			MeanLoss:    0.01, Epsilon: 0.9, Duration: 1500 * time.Millisecond,
		}))
	}

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM episodes WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 2, count)

	var profit decimal.Decimal
	var ms int64
	require.NoError(t, r.db.QueryRow(`SELECT total_profit, duration_ms FROM episodes WHERE episode = 2`).Scan(&profit, &ms))
	assert.True(t, profit.Equal(decimal.RequireFromString("12.75")))
	assert.Equal(t, int64(1500), ms)

	assert.Error(t, r.RecordRun(&Run{ID: "run-1", StartedAt: time.Now()}), "duplicate run id")
}

func TestSignalsAndTrades(t *testing.T) {
	r := openTemp(t)
	require.NoError(t, r.RecordSignal(&SignalEvent{
		Model: "AAPL/AAPL_model_ep10",
		Signal: &model.TradeSignal{
			Symbol: "AAPL", Action: model.ActionSell, Confidence: 0.7,
			Probabilities: []float64{0.2, 0.1, 0.7},
			Tier:          model.ConfidenceTier{Label: "firm"},
		},
	}))
	require.NoError(t, r.RecordTrade(&TradeEvent{
		Symbol: "AAPL", Side: model.ActionSell,
		Price: decimal.NewFromInt(190), Profit: decimal.NewFromInt(5),
		CashAfter: decimal.NewFromInt(10190), Holdings: 0,
	}))

	var action string
	var pSell float64
	require.NoError(t, r.db.QueryRow(`SELECT action, p_sell FROM signals`).Scan(&action, &pSell))
	assert.Equal(t, "SELL", action)
	assert.Equal(t, 0.7, pSell)

	var side, cash string
	require.NoError(t, r.db.QueryRow(`SELECT side, cash_after FROM trades`).Scan(&side, &cash))
	assert.Equal(t, "SELL", side)
	assert.Equal(t, "10190", cash)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&Run{}))
	assert.NoError(t, r.RecordEpisode(&Episode{}))
	assert.NoError(t, r.RecordSignal(&SignalEvent{}))
	assert.NoError(t, r.RecordTrade(&TradeEvent{}))
	assert.NoError(t, r.Close())
}

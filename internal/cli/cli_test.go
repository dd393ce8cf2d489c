package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FusionTrader/internal/collector"
	"FusionTrader/internal/config"
	"FusionTrader/internal/trainer"
)

func TestNewFetcherByProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Training.HistoryDays = 30

	for provider, name := range map[string]string{
		"yahoo":    "yahoo",
		"vstrader": "vstrader",
		"csv":      "csv",
		"mock":     "mock",
		"":         "yahoo",
	} {
		cfg.DataSource.Provider = provider
		assert.Equal(t, name, newFetcher(cfg).Name(), provider)
	}

	cfg.DataSource.Provider = "mock"
	mock, ok := newFetcher(cfg).(*collector.MockFetcher)
	require.True(t, ok)
	assert.Len(t, mock.DailyData, 30)
}

func TestBestEpisodeAndCheckpoint(t *testing.T) {
	sums := []trainer.EpisodeSummary{
		{Episode: 1, TotalProfit: decimal.NewFromInt(3), Checkpoint: "a.pt"},
		{Episode: 2, TotalProfit: decimal.NewFromInt(9)},
		{Episode: 3, TotalProfit: decimal.NewFromInt(-1)},
	}
	assert.Equal(t, 2, bestEpisode(sums).Episode)
	assert.Equal(t, "a.pt", lastCheckpoint(sums))
	assert.Contains(t, summaryBox("Training", "run-1", "AAPL", sums), "AAPL")
	assert.Contains(t, summaryBox("Training", "run-1", "AAPL", nil), "no episodes")
}

func TestTrainCommandOnMockData(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := `
network:
  window_size: 3
  image_height: 12
  image_width: 12
  hidden_size: 4
  conv_channels: [2, 3]
  kernel_size: 3
  fusion_sizes: [8]
  dropout: 0.1
training:
  batch_size: 4
  history_days: 12
data_source:
  provider: mock
  symbol: TEST
checkpoint:
  root: ` + filepath.Join(dir, "models") + `
database:
  sqlite_path: ` + filepath.Join(dir, "runs.db") + `
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "train", "--episodes", "2"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	_, err := os.Stat(filepath.Join(dir, "models", "TEST", "TEST_model_ep2.pt"))
	assert.NoError(t, err)

	cmd = NewRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "evaluate", "TEST/TEST_model_ep2"})
	assert.NoError(t, cmd.ExecuteContext(context.Background()))
}

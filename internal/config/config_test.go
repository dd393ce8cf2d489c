package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0.95, cfg.Agent.Gamma)
	assert.Equal(t, 10000, cfg.Agent.MemorySize)
	assert.Equal(t, 0.0005, cfg.Agent.LearningRate)
	assert.Equal(t, 4, cfg.Training.TargetUpdatePeriod)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, "models", cfg.Checkpoint.Root)
	assert.Equal(t, []int{8, 16}, cfg.Network.ConvChannels)
	require.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateDaemon(), "daemon needs a model and telegram")
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
agent:
  gamma: 0.9
network:
  window_size: 20
  fusion_sizes: [64, 16]
training:
  episodes: 3
data_source:
  provider: csv
  csv_path: data/AAPL.csv
  symbol: AAPL
checkpoint:
  model_name: AAPL/AAPL_model_ep3
telegram:
  bot_token: from-yaml
  chat_id: "1"
`)
	t.Setenv("FT_EPISODES", "7")
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("FT_SYMBOL", "MSFT")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Agent.Gamma)
	assert.Equal(t, 7, cfg.Training.Episodes)
	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, "MSFT", cfg.DataSource.Symbol)
	require.NoError(t, cfg.ValidateDaemon())

	nc := cfg.NetworkConfig()
	assert.Equal(t, 20, nc.WindowSize)
	assert.Equal(t, []int{64, 16}, nc.FusionSizes)
	assert.Equal(t, 6, nc.Features)

	ac := cfg.AgentConfig()
	assert.Equal(t, "AAPL/AAPL_model_ep3", ac.ModelName)
	assert.Equal(t, 20, ac.Network.WindowSize)

	tc := cfg.TrainerConfig()
	assert.Equal(t, "MSFT", tc.Label)
	assert.Equal(t, 7, tc.Episodes)
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	path := writeConfig(t, `
agent:
  gamma: 0
  epsilon: 0
  epsilon_min: 0
  seed: 0
network:
  dropout: 0
  recurrent_dropout: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Zero(t, cfg.Agent.Gamma)
	assert.Zero(t, cfg.Agent.Epsilon)
	assert.Zero(t, cfg.Agent.EpsilonMin)
	assert.Zero(t, cfg.Agent.Seed)
	assert.Zero(t, cfg.Network.Dropout)
	assert.Zero(t, cfg.Network.RecurrentDropout)
	assert.Equal(t, 0.995, cfg.Agent.EpsilonDecay, "omitted keys keep defaults")
	assert.Equal(t, 50, cfg.Network.HiddenSize)
	require.NoError(t, cfg.Validate())

	ac := cfg.AgentConfig()
	assert.Zero(t, ac.Epsilon)
	assert.Zero(t, ac.Network.Dropout)
}

func TestValidateRejectsExplicitInvalidZeros(t *testing.T) {
	for _, body := range []string{
		"network:\n  window_size: 0\n",
		"training:\n  episodes: 0\n",
		"training:\n  target_update_period: 0\n",
		"agent:\n  memory_size: 0\n",
		"data_source:\n  symbol: \"\"\n",
	} {
		cfg, err := Load(writeConfig(t, body))
		require.NoError(t, err, body)
		assert.Error(t, cfg.Validate(), body)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load(writeConfig(t, "agent: [unclosed"))
	assert.Error(t, err)

	t.Setenv("FT_BATCH_SIZE", "many")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.DataSource.Provider = "ftp"
	assert.Error(t, cfg.Validate())

	cfg.DataSource.Provider = "vstrader"
	assert.Error(t, cfg.Validate())
	cfg.DataSource.BaseURL = "http://localhost"
	assert.NoError(t, cfg.Validate())

	cfg.Network.ImageHeight = 0
	assert.Error(t, cfg.Validate())
}

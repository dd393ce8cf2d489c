package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FusionTrader/internal/agent"
	"FusionTrader/internal/nn"
	"FusionTrader/internal/trainer"
)

// Config holds all application configuration.
type Config struct {
	Agent struct {
		Gamma        float64 `yaml:"gamma"`
		Epsilon      float64 `yaml:"epsilon"`
		EpsilonMin   float64 `yaml:"epsilon_min"`
		EpsilonDecay float64 `yaml:"epsilon_decay"`
		MemorySize   int     `yaml:"memory_size"`
		LearningRate float64 `yaml:"learning_rate"`
		Seed         int64   `yaml:"seed"`
	} `yaml:"agent"`
	Network struct {
		WindowSize       int     `yaml:"window_size"`
		ImageHeight      int     `yaml:"image_height"`
		ImageWidth       int     `yaml:"image_width"`
		HiddenSize       int     `yaml:"hidden_size"`
		RecurrentDropout float64 `yaml:"recurrent_dropout"`
		ConvChannels     []int   `yaml:"conv_channels"`
		KernelSize       int     `yaml:"kernel_size"`
		FusionSizes      []int   `yaml:"fusion_sizes"`
		Dropout          float64 `yaml:"dropout"`
		Seed             int64   `yaml:"seed"`
	} `yaml:"network"`
	Training struct {
		Episodes           int `yaml:"episodes"`
		BatchSize          int `yaml:"batch_size"`
		TargetUpdatePeriod int `yaml:"target_update_period"`
		SaveEvery          int `yaml:"save_every"`
		HistoryDays        int `yaml:"history_days"`
	} `yaml:"training"`
	Checkpoint struct {
		Root      string `yaml:"root"`
		ModelName string `yaml:"model_name"`
	} `yaml:"checkpoint"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo, vstrader, csv or mock
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Symbol   string `yaml:"symbol"`
		CSVPath  string `yaml:"csv_path"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		SignalCron string `yaml:"signal_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Portfolio struct {
		InitialCash float64 `yaml:"initial_cash"`
		StateFile   string  `yaml:"state_file"`
	} `yaml:"portfolio"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env (if present) and config from a YAML file over the
// defaults, then applies environment variable overrides. Keys present in
// the file win even when their value is zero.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// Environment variable overrides
func (c *Config) applyEnv() error {
	envString("FT_SYMBOL", &c.DataSource.Symbol)
	envString("FT_CSV_PATH", &c.DataSource.CSVPath)
	envString("FT_CHECKPOINT_ROOT", &c.Checkpoint.Root)
	envString("FT_MODEL_NAME", &c.Checkpoint.ModelName)
	envString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	envString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	envString("VSTRADER_BASE_URL", &c.DataSource.BaseURL)
	envString("VSTRADER_API_KEY", &c.DataSource.APIKey)
	envString("HTTPS_PROXY", &c.Proxy)
	envString("CRON_SIGNAL", &c.Schedule.SignalCron)
	envString("SQLITE_PATH", &c.Database.SQLitePath)
	if err := envInt("FT_EPISODES", &c.Training.Episodes); err != nil {
		return err
	}
	return envInt("FT_BATCH_SIZE", &c.Training.BatchSize)
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	c := &Config{}

	ad := agent.DefaultConfig()
	c.Agent.Gamma = ad.Gamma
	c.Agent.Epsilon = ad.Epsilon
	c.Agent.EpsilonMin = ad.EpsilonMin
	c.Agent.EpsilonDecay = ad.EpsilonDecay
	c.Agent.MemorySize = ad.MemorySize
	c.Agent.LearningRate = ad.LearningRate
	c.Agent.Seed = ad.Seed

	nd := nn.DefaultConfig()
	c.Network.WindowSize = nd.WindowSize
	c.Network.ImageHeight = nd.ImageHeight
	c.Network.ImageWidth = nd.ImageWidth
	c.Network.HiddenSize = nd.HiddenSize
	c.Network.RecurrentDropout = nd.RecurrentDropout
	c.Network.ConvChannels = nd.ConvChannels
	c.Network.KernelSize = nd.KernelSize
	c.Network.FusionSizes = nd.FusionSizes
	c.Network.Dropout = nd.Dropout
	c.Network.Seed = nd.Seed

	td := trainer.DefaultConfig("")
	c.Training.Episodes = td.Episodes
	c.Training.BatchSize = td.BatchSize
	c.Training.TargetUpdatePeriod = td.TargetUpdatePeriod
	c.Training.SaveEvery = td.SaveEvery
	c.Training.HistoryDays = 500

	c.Checkpoint.Root = ad.CheckpointRoot
	c.DataSource.Provider = "yahoo"
	c.DataSource.Symbol = "SPX500"
	c.Schedule.SignalCron = "0 30 16 * * 1-5"
	c.Portfolio.InitialCash = 10000
	c.Portfolio.StateFile = "data/portfolio_state.json"
	c.Database.SQLitePath = "data/fusiontrader.db"
	return c
}

// Validate checks the fields needed to train.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "vstrader":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for vstrader")
		}
	case "csv":
		if c.DataSource.CSVPath == "" {
			return fmt.Errorf("data_source.csv_path is required for csv")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.Training.Episodes <= 0 {
		return fmt.Errorf("training.episodes must be positive")
	}
	if c.Training.BatchSize <= 0 {
		return fmt.Errorf("training.batch_size must be positive")
	}
	if c.Training.TargetUpdatePeriod <= 0 || c.Training.SaveEvery <= 0 {
		return fmt.Errorf("training.target_update_period and training.save_every must be positive")
	}
	if c.Agent.MemorySize <= 0 {
		return fmt.Errorf("agent.memory_size must be positive")
	}
	if c.Agent.LearningRate <= 0 {
		return fmt.Errorf("agent.learning_rate must be positive")
	}
	if c.DataSource.Symbol == "" {
		return fmt.Errorf("data_source.symbol is required")
	}
	if c.Checkpoint.Root == "" {
		return fmt.Errorf("checkpoint.root is required")
	}
	if c.Training.HistoryDays <= c.Network.WindowSize {
		return fmt.Errorf("training.history_days must exceed network.window_size")
	}
	if err := c.NetworkConfig().Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	return nil
}

// ValidateDaemon checks the fields needed to run the signal daemon.
func (c *Config) ValidateDaemon() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Checkpoint.ModelName == "" {
		return fmt.Errorf("checkpoint.model_name is required")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Portfolio.InitialCash <= 0 {
		return fmt.Errorf("portfolio.initial_cash must be positive")
	}
	return nil
}

// NetworkConfig translates the network section.
func (c *Config) NetworkConfig() nn.Config {
	n := nn.DefaultConfig()
	n.WindowSize = c.Network.WindowSize
	n.ImageHeight = c.Network.ImageHeight
	n.ImageWidth = c.Network.ImageWidth
	n.HiddenSize = c.Network.HiddenSize
	n.RecurrentDropout = c.Network.RecurrentDropout
	n.ConvChannels = append([]int(nil), c.Network.ConvChannels...)
	n.KernelSize = c.Network.KernelSize
	n.FusionSizes = append([]int(nil), c.Network.FusionSizes...)
	n.Dropout = c.Network.Dropout
	n.Seed = c.Network.Seed
	return n
}

// AgentConfig translates the agent and checkpoint sections.
func (c *Config) AgentConfig() agent.Config {
	return agent.Config{
		Gamma:          c.Agent.Gamma,
		Epsilon:        c.Agent.Epsilon,
		EpsilonMin:     c.Agent.EpsilonMin,
		EpsilonDecay:   c.Agent.EpsilonDecay,
		MemorySize:     c.Agent.MemorySize,
		LearningRate:   c.Agent.LearningRate,
		CheckpointRoot: c.Checkpoint.Root,
		ModelName:      c.Checkpoint.ModelName,
		Seed:           c.Agent.Seed,
		Network:        c.NetworkConfig(),
	}
}

// TrainerConfig translates the training section. Checkpoints are labelled
// by symbol.
func (c *Config) TrainerConfig() trainer.Config {
	return trainer.Config{
		Episodes:           c.Training.Episodes,
		BatchSize:          c.Training.BatchSize,
		TargetUpdatePeriod: c.Training.TargetUpdatePeriod,
		SaveEvery:          c.Training.SaveEvery,
		Label:              c.DataSource.Symbol,
	}
}

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"FusionTrader/internal/agent"
	"FusionTrader/internal/collector"
	"FusionTrader/internal/config"
	"FusionTrader/internal/dataset"
	"FusionTrader/internal/env"
	"FusionTrader/internal/notifier"
	"FusionTrader/internal/portfolio"
	"FusionTrader/internal/recorder"
	"FusionTrader/internal/scheduler"
	"FusionTrader/internal/trainer"
)

// Version is set at build time.
var Version = "dev"

const rsiPeriod = 14

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var cfgPath string
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "fusiontrader",
		Short: "FusionTrader - DQN trading agent over price windows and chart images",
		Long: `FusionTrader trains a deep Q-learning agent whose network fuses an LSTM
over the recent price window with a CNN over a candlestick chart of the same window.
Trained checkpoints can be evaluated offline or served as a daily signal bot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if cfgPath == "" {
				cfgPath = os.Getenv("CONFIG_PATH")
			}
			if cfgPath == "" {
				cfgPath = "configs/config.yaml"
			}
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Configuration file path")

	// cfg is only populated once PersistentPreRunE has run.
	current := func() *config.Config { return cfg }
	rootCmd.AddCommand(newTrainCmd(current))
	rootCmd.AddCommand(newEvaluateCmd(current))
	rootCmd.AddCommand(newServeCmd(current))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newTrainCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train [SYMBOL]",
		Short: "Train the agent on historical daily bars",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if len(args) == 1 {
				c.DataSource.Symbol = args[0]
			}
			if n, _ := cmd.Flags().GetInt("episodes"); n > 0 {
				c.Training.Episodes = n
			}
			notify, _ := cmd.Flags().GetBool("notify")
			return runTrain(cmd.Context(), c, notify)
		},
	}
	cmd.Flags().Int("episodes", 0, "Override training.episodes")
	cmd.Flags().Bool("notify", false, "Send the run summary to Telegram")
	return cmd
}

func newEvaluateCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate MODEL",
		Short: "Replay history greedily with a saved checkpoint",
		Long: `Load the online network from <checkpoint.root>/MODEL.pt and walk the
history once without exploration or learning.
Example: fusiontrader evaluate AAPL/AAPL_model_ep10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			c.Checkpoint.ModelName = args[0]
			return runEvaluate(cmd.Context(), c)
		},
	}
	return cmd
}

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled signal bot with a trained checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("FusionTrader %s\n", Version)
		},
	}
}

// newFetcher picks the market data source.
func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	switch ds.Provider {
	case "vstrader":
		return collector.NewVsTraderFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy)
	case "csv":
		return &collector.CSVFetcher{Path: ds.CSVPath}
	case "mock":
		return &collector.MockFetcher{DailyData: collector.GenerateBars(100, cfg.Training.HistoryDays)}
	default:
		return collector.NewYahooFetcher("", cfg.Proxy)
	}
}

// openRecorder falls back to a no-op recorder when SQLite is unavailable.
func openRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func loadDataset(ctx context.Context, cfg *config.Config) (*dataset.Dataset, error) {
	fetcher := newFetcher(cfg)
	log.Printf("[INFO] data source: %s", fetcher.Name())
	series, err := collector.NewCollector(fetcher, cfg.DataSource.Symbol).Collect(ctx, cfg.Training.HistoryDays)
	if err != nil {
		return nil, err
	}
	return dataset.New(series.Symbol, series.DailyBars,
		cfg.Network.WindowSize, cfg.Network.ImageHeight, cfg.Network.ImageWidth)
}

func runTrain(ctx context.Context, cfg *config.Config, notify bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := loadDataset(ctx, cfg)
	if err != nil {
		return err
	}
	ag, err := agent.New(cfg.AgentConfig(), agent.ModeTraining)
	if err != nil {
		return err
	}
	rec := openRecorder(cfg.Database.SQLitePath)
	defer rec.Close()

	tr, err := trainer.New(cfg.TrainerConfig(), ag, env.New(data), rec)
	if err != nil {
		return err
	}
	tr.OnEpisode = func(sum trainer.EpisodeSummary) {
		fmt.Println(episodeLine(sum))
	}

	fmt.Println(renderTitle(fmt.Sprintf("Training %s on %d bars", data.Symbol(), data.Len())))
	start := time.Now()
	sums, runErr := tr.Run(ctx)
	fmt.Println(summaryBox("Training summary", tr.RunID(), data.Symbol(), sums))
	if runErr != nil {
		fmt.Println(renderError(runErr))
		return runErr
	}

	if notify && len(sums) > 0 {
		best := bestEpisode(sums)
		last := sums[len(sums)-1]
		text := notifier.FormatTrainingSummary(notifier.TrainingSummary{
			RunID:       tr.RunID(),
			Symbol:      data.Symbol(),
			Episodes:    len(sums),
			FinalProfit: last.TotalProfit.StringFixed(2),
			BestEpisode: best.Episode,
			BestProfit:  best.TotalProfit.StringFixed(2),
			Epsilon:     last.Epsilon,
			Checkpoint:  lastCheckpoint(sums),
			Duration:    time.Since(start),
		})
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err := tn.SendWithRetry(ctx, text, 3); err != nil {
			log.Printf("[WARN] send training summary: %v", err)
		}
	}
	return nil
}

func runEvaluate(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	data, err := loadDataset(ctx, cfg)
	if err != nil {
		return err
	}
	ag, err := agent.New(cfg.AgentConfig(), agent.ModeEvaluation)
	if err != nil {
		return err
	}
	rec := openRecorder(cfg.Database.SQLitePath)
	defer rec.Close()

	tr, err := trainer.New(cfg.TrainerConfig(), ag, env.New(data), rec)
	if err != nil {
		return err
	}
	sum, err := tr.Evaluate(ctx)
	if err != nil {
		return err
	}
	fmt.Println(summaryBox("Evaluation of "+cfg.Checkpoint.ModelName, tr.RunID(), data.Symbol(),
		[]trainer.EpisodeSummary{sum}))
	return nil
}

func runServe(cfg *config.Config) error {
	log.Println("[INFO] FusionTrader signal bot starting...")
	if err := cfg.ValidateDaemon(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	ag, err := agent.New(cfg.AgentConfig(), agent.ModeEvaluation)
	if err != nil {
		return err
	}
	fetcher := newFetcher(cfg)
	log.Printf("[INFO] data source: %s", fetcher.Name())
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbol)

	pm, err := portfolio.NewManager(cfg.Portfolio.StateFile, cfg.DataSource.Symbol, cfg.Portfolio.InitialCash)
	if err != nil {
		return fmt.Errorf("init portfolio: %w", err)
	}
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	rec := openRecorder(cfg.Database.SQLitePath)
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, scheduler.Settings{
		Model:       cfg.Checkpoint.ModelName,
		HistoryDays: cfg.Training.HistoryDays,
		Window:      cfg.Network.WindowSize,
		ImageHeight: cfg.Network.ImageHeight,
		ImageWidth:  cfg.Network.ImageWidth,
		RSIPeriod:   rsiPeriod,
	}, col, ag, pm, tn, rec)
	if err := sched.RegisterAll(cfg.Schedule.SignalCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	if cfg.Schedule.RunOnStart || os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] run_on_start enabled, executing signal task now")
		go func() {
			if _, err := sched.RunSignalNow(); err != nil {
				log.Printf("[ERROR] startup signal: %v", err)
			}
		}()
	}

	log.Printf("[INFO] serving %s with %s. Press Ctrl+C to stop.", cfg.DataSource.Symbol, cfg.Checkpoint.ModelName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] FusionTrader stopped")
	return nil
}

package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"FusionTrader/internal/calculator"
	"FusionTrader/internal/collector"
	"FusionTrader/internal/dataset"
	"FusionTrader/internal/model"
	"FusionTrader/internal/notifier"
	"FusionTrader/internal/portfolio"
	"FusionTrader/internal/recorder"
	"FusionTrader/internal/strategy"

	"github.com/robfig/cron/v3"
)

// Predictor returns an action distribution for an observation.
// *agent.Agent satisfies it.
type Predictor interface {
	Predict(obs model.Observation) ([]float64, error)
}

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Settings describes how observations are built for the model.
type Settings struct {
	Model       string // checkpoint name, for the record
	HistoryDays int
	Window      int
	ImageHeight int
	ImageWidth  int
	RSIPeriod   int
}

// Scheduler manages the signal cron task and user commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Portfolio *portfolio.Manager
	Notifier  Sender
	Recorder  recorder.Recorder
	Ctx       context.Context
	Settings  Settings

	// mu serialises every use of the agent, which is not safe for
	// concurrent use, and guards last.
	mu    sync.Mutex
	agent Predictor
	last  *model.TradeSignal
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, settings Settings, col *collector.Collector, ag Predictor,
	pm *portfolio.Manager, n Sender, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Portfolio: pm,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		Settings:  settings,
		agent:     ag,
	}
}

// RegisterAll registers the signal task.
func (s *Scheduler) RegisterAll(signalCron string) error {
	if _, err := s.Cron.AddFunc(signalCron, s.signalTask); err != nil {
		return fmt.Errorf("register signal task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) signalTask() {
	log.Println("[INFO] running signal task")
	if _, err := s.RunSignalNow(); err != nil {
		log.Printf("[ERROR] signal task: %v", err)
		s.trySend(fmt.Sprintf("❌ Signal task failed: %v", err))
	}
}

// RunSignalNow collects fresh bars, predicts on the latest window, applies
// the signal to the paper portfolio, then notifies and records the result.
func (s *Scheduler) RunSignalNow() (*model.TradeSignal, error) {
	series, err := s.Collector.Collect(s.Ctx, s.Settings.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	data, err := dataset.New(series.Symbol, series.DailyBars,
		s.Settings.Window, s.Settings.ImageHeight, s.Settings.ImageWidth)
	if err != nil {
		return nil, err
	}
	obs, err := data.Last()
	if err != nil {
		return nil, err
	}

	rsi, err := calculator.CalculateRSI(series.DailyBars, s.Settings.RSIPeriod)
	if err != nil {
		log.Printf("[WARN] RSI calculation failed: %v, defaulting to 50", err)
		rsi = 50
	}

	s.mu.Lock()
	probs, err := s.agent.Predict(obs)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	signal, err := strategy.Evaluate(series.Symbol, probs, series.CurrentPrice, rsi)
	if err != nil {
		return nil, err
	}
	fill, err := s.Portfolio.Apply(signal)
	if err != nil {
		return nil, fmt.Errorf("apply signal: %w", err)
	}

	s.mu.Lock()
	s.last = signal
	s.mu.Unlock()

	report := notifier.FormatSignalReport(signal, fill)
	report += "\n" + notifier.FormatPortfolioStatus(s.Portfolio.Snapshot(signal.Price))
	s.trySend(report)

	if err := s.Recorder.RecordSignal(&recorder.SignalEvent{Signal: signal, Model: s.Settings.Model}); err != nil {
		log.Printf("[ERROR] record signal: %v", err)
	}
	if fill.Executed {
		snap := s.Portfolio.Snapshot(signal.Price)
		if err := s.Recorder.RecordTrade(&recorder.TradeEvent{
			Symbol:    signal.Symbol,
			Side:      fill.Action,
			Price:     fill.Price,
			Profit:    fill.Profit,
			CashAfter: snap.Cash,
			Holdings:  snap.Holdings,
			Note:      signal.Tier.Label,
		}); err != nil {
			log.Printf("[ERROR] record trade: %v", err)
		}
	}
	log.Printf("[INFO] signal %s %s (%.2f, %s)", signal.Symbol, signal.Action, signal.Confidence, signal.Tier.Label)
	return signal, nil
}

// LastSignal returns the most recent signal, or nil before the first run.
func (s *Scheduler) LastSignal() *model.TradeSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/signal":
		if _, err := s.RunSignalNow(); err != nil {
			return fmt.Sprintf("❌ Signal failed: %v", err)
		}
		return ""
	case "/portfolio":
		price, err := s.Collector.Fetcher.FetchCurrentPrice(s.Ctx, s.Collector.Symbol)
		if err != nil {
			last := s.LastSignal()
			if last == nil {
				return fmt.Sprintf("❌ Price unavailable: %v", err)
			}
			price = last.Price
		}
		return notifier.FormatPortfolioStatus(s.Portfolio.Snapshot(price))
	case "/last":
		last := s.LastSignal()
		if last == nil {
			return "No signal yet."
		}
		return notifier.FormatSignalReport(last, nil)
	default:
		return "Available commands:\n• /signal\n• /portfolio\n• /last"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

// Package trainer drives the agent through episodes over a trading
// environment.
package trainer

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"FusionTrader/internal/agent"
	"FusionTrader/internal/env"
	"FusionTrader/internal/model"
	"FusionTrader/internal/recorder"
)

// Config controls the episode loop.
type Config struct {
	Episodes           int
	BatchSize          int
	TargetUpdatePeriod int
	SaveEvery          int
	Label              string // checkpoint directory and file prefix
}

// DefaultConfig returns the reference schedule for label.
func DefaultConfig(label string) Config {
	return Config{
		Episodes:           10,
		BatchSize:          32,
		TargetUpdatePeriod: 4,
		SaveEvery:          10,
		Label:              label,
	}
}

func (c Config) validate() error {
	switch {
	case c.Episodes <= 0:
		return fmt.Errorf("episodes must be positive")
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive")
	case c.TargetUpdatePeriod <= 0:
		return fmt.Errorf("target update period must be positive")
	case c.SaveEvery <= 0:
		return fmt.Errorf("save_every must be positive")
	case c.Label == "":
		return fmt.Errorf("label is required")
	}
	return nil
}

// EpisodeSummary is the outcome of one pass over the environment.
type EpisodeSummary struct {
	Episode     int
	Steps       int
	Trades      int
	Actions     [model.NumActions]int
	TotalProfit decimal.Decimal
	MeanLoss    float64
	Replays     int
	Epsilon     float64
	Checkpoint  string
	Duration    time.Duration
}

// Trainer owns one training run.
type Trainer struct {
	cfg   Config
	agent *agent.Agent
	env   *env.Trading
	rec   recorder.Recorder
	runID string

	// OnEpisode, if set, is called after every finished episode.
	OnEpisode func(EpisodeSummary)
}

// New creates a trainer. rec may be nil.
func New(cfg Config, a *agent.Agent, e *env.Trading, rec recorder.Recorder) (*Trainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("trainer config: %w", err)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Trainer{
		cfg:   cfg,
		agent: a,
		env:   e,
		rec:   rec,
		runID: uuid.NewString(),
	}, nil
}

// RunID identifies this run in the recorder.
func (t *Trainer) RunID() string { return t.runID }

// Run trains for the configured number of episodes. The target network is
// synchronised every TargetUpdatePeriod episodes and checkpoints are saved
// every SaveEvery episodes and after the last one. Cancelling ctx stops the
// run between steps.
func (t *Trainer) Run(ctx context.Context) ([]EpisodeSummary, error) {
	if t.agent.Mode() != agent.ModeTraining {
		return nil, agent.ErrEvaluationMode
	}
	t.recordRun("training", t.cfg.Episodes)
	log.Printf("[INFO] run %s: training %s for %d episodes over %d bars",
		t.runID, t.env.Symbol(), t.cfg.Episodes, t.env.Steps()+1)

	summaries := make([]EpisodeSummary, 0, t.cfg.Episodes)
	for ep := 1; ep <= t.cfg.Episodes; ep++ {
		sum, err := t.episode(ctx, ep, true)
		if err != nil {
			return summaries, fmt.Errorf("episode %d: %w", ep, err)
		}

		if ep%t.cfg.TargetUpdatePeriod == 0 {
			if err := t.agent.UpdateTarget(); err != nil {
				return summaries, fmt.Errorf("episode %d: update target: %w", ep, err)
			}
		}
		if ep%t.cfg.SaveEvery == 0 || ep == t.cfg.Episodes {
			path, err := t.agent.Save(ep, t.cfg.Label)
			if err != nil {
				return summaries, err
			}
			sum.Checkpoint = path
			log.Printf("[INFO] checkpoint saved: %s", path)
		}

		t.finish(sum)
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Evaluate runs one pass without learning and reports its outcome.
func (t *Trainer) Evaluate(ctx context.Context) (EpisodeSummary, error) {
	t.recordRun("evaluation", 1)
	sum, err := t.episode(ctx, 1, false)
	if err != nil {
		return sum, err
	}
	t.finish(sum)
	return sum, nil
}

func (t *Trainer) recordRun(mode string, episodes int) {
	err := t.rec.RecordRun(&recorder.Run{
		ID:        t.runID,
		Symbol:    t.env.Symbol(),
		Mode:      mode,
		Episodes:  episodes,
		BatchSize: t.cfg.BatchSize,
		Bars:      t.env.Steps() + 1,
		StartedAt: time.Now(),
	})
	if err != nil {
		log.Printf("[WARN] record run failed: %v", err)
	}
}

func (t *Trainer) finish(sum EpisodeSummary) {
	log.Printf("[INFO] episode %d: profit=%s trades=%d loss=%.6f epsilon=%.4f (%s)",
		sum.Episode, sum.TotalProfit.StringFixed(2), sum.Trades, sum.MeanLoss, sum.Epsilon,
		sum.Duration.Round(time.Millisecond))
	err := t.rec.RecordEpisode(&recorder.Episode{
		RunID:       t.runID,
		Episode:     sum.Episode,
		Steps:       sum.Steps,
		Trades:      sum.Trades,
		TotalProfit: sum.TotalProfit,
		MeanLoss:    sum.MeanLoss,
		Epsilon:     sum.Epsilon,
		Checkpoint:  sum.Checkpoint,
		Duration:    sum.Duration,
	})
	if err != nil {
		log.Printf("[WARN] record episode failed: %v", err)
	}
	if t.OnEpisode != nil {
		t.OnEpisode(sum)
	}
}

// episode walks the environment once. Buying opens one unit at the current
// close; selling closes the oldest unit and is rewarded with the positive
// part of its profit. When learn is set every transition is remembered and
// a replay step runs once memory exceeds the batch size.
func (t *Trainer) episode(ctx context.Context, ep int, learn bool) (EpisodeSummary, error) {
	start := time.Now()
	sum := EpisodeSummary{Episode: ep, TotalProfit: decimal.Zero}
	inv := t.agent.Inventory()
	inv.Reset()

	state, err := t.env.Reset()
	if err != nil {
		return sum, err
	}
	var lossTotal float64
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		action, err := t.agent.Act(state)
		if err != nil {
			return sum, err
		}
		sum.Actions[action]++

		price := t.env.Price()
		reward := 0.0
		switch action {
		case model.ActionBuy:
			inv.Buy(price)
		case model.ActionSell:
			if profit, ok := inv.Sell(price); ok {
				reward = math.Max(profit.InexactFloat64(), 0)
				sum.TotalProfit = sum.TotalProfit.Add(profit)
				sum.Trades++
			}
		}

		next, done, err := t.env.Step()
		if err != nil {
			return sum, err
		}
		sum.Steps++

		if learn {
			t.agent.Remember(model.Transition{
				State:  state,
				Action: action,
				Reward: reward,
				Next:   next,
				Done:   done,
			})
			if t.agent.MemoryLen() > t.cfg.BatchSize {
				loss, err := t.agent.ExpReplay(t.cfg.BatchSize)
				if err != nil {
					return sum, fmt.Errorf("replay: %w", err)
				}
				lossTotal += loss
				sum.Replays++
			}
		}
		state = next
		if done {
			break
		}
	}

	if sum.Replays > 0 {
		sum.MeanLoss = lossTotal / float64(sum.Replays)
	}
	sum.Epsilon = t.agent.Epsilon()
	sum.Duration = time.Since(start)
	return sum, nil
}

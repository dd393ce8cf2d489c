package agent

import (
	"errors"
	"fmt"

	"FusionTrader/internal/nn"
	"FusionTrader/internal/replay"
)

// Mode is fixed when the agent is created.
type Mode int

const (
	ModeTraining Mode = iota
	ModeEvaluation
)

func (m Mode) String() string {
	if m == ModeEvaluation {
		return "evaluation"
	}
	return "training"
}

var (
	ErrEvaluationMode = errors.New("agent is in evaluation mode")
	ErrBatchSize      = errors.New("batch size must be positive")
)

// Config holds the learning hyper-parameters.
type Config struct {
	Gamma        float64
	Epsilon      float64
	EpsilonMin   float64
	EpsilonDecay float64
	MemorySize   int
	LearningRate float64

	CheckpointRoot string
	ModelName      string // loaded from <CheckpointRoot>/<ModelName>.pt in evaluation mode

	Seed    int64
	Network nn.Config
}

// DefaultConfig returns the reference hyper-parameters.
func DefaultConfig() Config {
	return Config{
		Gamma:          0.95,
		Epsilon:        1.0,
		EpsilonMin:     0.01,
		EpsilonDecay:   0.995,
		MemorySize:     replay.DefaultCapacity,
		LearningRate:   0.0005,
		CheckpointRoot: "models",
		Seed:           1,
		Network:        nn.DefaultConfig(),
	}
}

func (c Config) validate(mode Mode) error {
	switch {
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("gamma must be in [0, 1]")
	case c.Epsilon < 0 || c.Epsilon > 1:
		return fmt.Errorf("epsilon must be in [0, 1]")
	case c.EpsilonMin < 0 || c.EpsilonMin > c.Epsilon:
		return fmt.Errorf("epsilon_min must be in [0, epsilon]")
	case c.EpsilonDecay <= 0 || c.EpsilonDecay > 1:
		return fmt.Errorf("epsilon_decay must be in (0, 1]")
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive")
	case mode == ModeEvaluation && c.ModelName == "":
		return fmt.Errorf("model name is required in evaluation mode")
	}
	return nil
}

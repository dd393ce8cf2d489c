// Package agent implements the DQN controller: epsilon-greedy action
// selection, experience replay against a target network, hard target
// synchronisation and checkpointing.
package agent

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"FusionTrader/internal/checkpoint"
	"FusionTrader/internal/model"
	"FusionTrader/internal/nn"
	"FusionTrader/internal/replay"
)

// Agent owns the online and target networks, the replay memory and the
// exploration state. It is not safe for concurrent use.
type Agent struct {
	cfg       Config
	mode      Mode
	online    *nn.Network
	target    *nn.Network
	optimizer *nn.Adam
	memory    *replay.Buffer
	store     checkpoint.Store
	rng       *rand.Rand
	epsilon   float64
	inventory Inventory
}

// Option customises an Agent.
type Option func(*Agent)

// WithStore replaces the file-system checkpoint store.
func WithStore(s checkpoint.Store) Option {
	return func(a *Agent) { a.store = s }
}

// WithRand replaces the exploration and sampling source.
func WithRand(rng *rand.Rand) Option {
	return func(a *Agent) { a.rng = rng }
}

// New builds an agent. In evaluation mode the online network is restored
// from <CheckpointRoot>/<ModelName>.pt and switched to inference.
func New(cfg Config, mode Mode, opts ...Option) (*Agent, error) {
	if err := cfg.validate(mode); err != nil {
		return nil, fmt.Errorf("agent config: %w", err)
	}
	online, err := nn.New(cfg.Network)
	if err != nil {
		return nil, err
	}
	targetCfg := cfg.Network
	targetCfg.Seed++
	target, err := nn.New(targetCfg)
	if err != nil {
		return nil, err
	}
	target.SetTraining(false)
	memory, err := replay.New(cfg.MemorySize)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:     cfg,
		mode:    mode,
		online:  online,
		target:  target,
		memory:  memory,
		store:   checkpoint.FileStore{},
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		epsilon: cfg.Epsilon,
	}
	for _, opt := range opts {
		opt(a)
	}

	if mode == ModeEvaluation {
		if err := a.Load(); err != nil {
			return nil, err
		}
		a.online.SetTraining(false)
	}
	a.optimizer = nn.NewAdam(a.online.Params(), cfg.LearningRate)
	return a, nil
}

// Act picks an action for obs. In training mode a uniformly random action is
// returned with probability epsilon; otherwise the online network's argmax.
func (a *Agent) Act(obs model.Observation) (model.Action, error) {
	if err := a.cfg.Network.CheckObservation(obs); err != nil {
		return model.ActionHold, err
	}
	if a.mode == ModeTraining && a.rng.Float64() <= a.epsilon {
		return model.Action(a.rng.Intn(model.NumActions)), nil
	}
	probs, err := a.online.Forward(obs)
	if err != nil {
		return model.ActionHold, err
	}
	return model.Action(floats.MaxIdx(probs)), nil
}

// Predict returns the online network's action distribution for obs.
func (a *Agent) Predict(obs model.Observation) ([]float64, error) {
	return a.online.Forward(obs)
}

// Remember stores a transition, evicting the oldest one when memory is full.
func (a *Agent) Remember(t model.Transition) {
	a.memory.Push(t)
}

// ExpReplay runs one gradient step on batchSize transitions drawn with
// replacement and returns the mean squared TD error. Epsilon decays
// afterwards until it reaches its floor.
func (a *Agent) ExpReplay(batchSize int) (float64, error) {
	if a.mode == ModeEvaluation {
		return 0, ErrEvaluationMode
	}
	if batchSize <= 0 {
		return 0, ErrBatchSize
	}
	batch, err := a.memory.Sample(a.rng, batchSize)
	if err != nil {
		return 0, err
	}
	for _, tr := range batch {
		if err := a.checkTransition(tr); err != nil {
			return 0, err
		}
	}

	a.optimizer.ZeroGrad()
	scale := float64(batchSize)
	var loss float64
	for _, tr := range batch {
		y, err := a.tdTarget(tr)
		if err != nil {
			return 0, err
		}
		probs, trace, err := a.online.ForwardTrace(tr.State)
		if err != nil {
			return 0, err
		}
		diff := y - probs[tr.Action]
		loss += diff * diff

		dOut := make([]float64, len(probs))
		dOut[tr.Action] = -2 * diff / scale
		a.online.Backward(trace, dOut)
	}
	loss /= scale
	a.optimizer.Step()

	if a.epsilon > a.cfg.EpsilonMin {
		a.epsilon = math.Max(a.cfg.EpsilonMin, a.epsilon*a.cfg.EpsilonDecay)
	}
	return loss, nil
}

// checkTransition rejects a transition whose observations cannot be fed to
// the networks, before any gradient or running statistic is touched.
func (a *Agent) checkTransition(tr model.Transition) error {
	if !tr.Action.Valid() {
		return fmt.Errorf("transition action %d out of range", int(tr.Action))
	}
	if math.IsNaN(tr.Reward) || math.IsInf(tr.Reward, 0) {
		return fmt.Errorf("%w: non-finite reward %v", nn.ErrShape, tr.Reward)
	}
	if err := a.cfg.Network.CheckObservation(tr.State); err != nil {
		return fmt.Errorf("transition state: %w", err)
	}
	if !tr.Done {
		if err := a.cfg.Network.CheckObservation(tr.Next); err != nil {
			return fmt.Errorf("transition next: %w", err)
		}
	}
	return nil
}

// tdTarget is reward + gamma * max_a target(next)[a], or reward alone for a
// terminal transition. The target network runs in inference mode so its
// tensors only ever change through UpdateTarget.
func (a *Agent) tdTarget(tr model.Transition) (float64, error) {
	if tr.Done {
		return tr.Reward, nil
	}
	next, err := a.target.Forward(tr.Next)
	if err != nil {
		return 0, err
	}
	return tr.Reward + a.cfg.Gamma*floats.Max(next), nil
}

// UpdateTarget overwrites every target tensor with the online one.
func (a *Agent) UpdateTarget() error {
	return a.target.CopyFrom(a.online)
}

// Save writes the target network to <root>/<label>/<label>_model_ep<episode>.pt
// and returns the path.
func (a *Agent) Save(episode int, label string) (string, error) {
	path := checkpoint.SavePath(a.cfg.CheckpointRoot, label, episode)
	if err := a.store.Save(path, a.target.StateDict()); err != nil {
		return "", fmt.Errorf("save checkpoint %s: %w", path, err)
	}
	return path, nil
}

// Load restores the online network from <root>/<model name>.pt.
func (a *Agent) Load() error {
	path := checkpoint.LoadPath(a.cfg.CheckpointRoot, a.cfg.ModelName)
	state, err := a.store.Load(path)
	if err != nil {
		return fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	if err := a.online.LoadStateDict(state); err != nil {
		return fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	return nil
}

// Epsilon returns the current exploration rate.
func (a *Agent) Epsilon() float64 { return a.epsilon }

// Mode returns the mode chosen at construction.
func (a *Agent) Mode() Mode { return a.mode }

// MemoryLen returns the number of stored transitions.
func (a *Agent) MemoryLen() int { return a.memory.Len() }

// Steps returns how many gradient steps have been applied.
func (a *Agent) Steps() int { return a.optimizer.Steps() }

// Inventory returns the agent's open positions.
func (a *Agent) Inventory() *Inventory { return &a.inventory }

// Config returns the configuration the agent was built with.
func (a *Agent) Config() Config { return a.cfg }

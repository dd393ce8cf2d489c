package trainer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"FusionTrader/internal/agent"
	"FusionTrader/internal/checkpoint"
	"FusionTrader/internal/collector"
	"FusionTrader/internal/dataset"
	"FusionTrader/internal/env"
	"FusionTrader/internal/recorder"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordRun(run *recorder.Run) error          { return m.Called(run).Error(0) }
func (m *mockRecorder) RecordEpisode(ep *recorder.Episode) error   { return m.Called(ep).Error(0) }
func (m *mockRecorder) RecordSignal(e *recorder.SignalEvent) error { return m.Called(e).Error(0) }
func (m *mockRecorder) RecordTrade(e *recorder.TradeEvent) error   { return m.Called(e).Error(0) }
func (m *mockRecorder) Close() error                               { return m.Called().Error(0) }

func smallAgentConfig(t *testing.T) agent.Config {
	cfg := agent.DefaultConfig()
	cfg.CheckpointRoot = t.TempDir()
	cfg.MemorySize = 50
	cfg.Network.WindowSize = 3
	cfg.Network.ImageHeight = 12
	cfg.Network.ImageWidth = 12
	cfg.Network.HiddenSize = 4
	cfg.Network.ConvChannels = []int{2, 3}
	cfg.Network.KernelSize = 3
	cfg.Network.FusionSizes = []int{8, 6}
	return cfg
}

func smallEnv(t *testing.T, cfg agent.Config) *env.Trading {
	t.Helper()
	data, err := dataset.New("TEST", collector.GenerateBars(100, 12),
		cfg.Network.WindowSize, cfg.Network.ImageHeight, cfg.Network.ImageWidth)
	require.NoError(t, err)
	return env.New(data)
}

func TestRunTrainsSavesAndRecords(t *testing.T) {
	acfg := smallAgentConfig(t)
	a, err := agent.New(acfg, agent.ModeTraining)
	require.NoError(t, err)

	rec := new(mockRecorder)
	rec.On("RecordRun", mock.MatchedBy(func(r *recorder.Run) bool {
		return r.Mode == "training" && r.Symbol == "TEST" && r.Bars == 12
	})).Return(nil).Once()
	rec.On("RecordEpisode", mock.Anything).Return(nil).Times(4)

	cfg := Config{Episodes: 4, BatchSize: 4, TargetUpdatePeriod: 2, SaveEvery: 3, Label: "TEST"}
	tr, err := New(cfg, a, smallEnv(t, acfg), rec)
	require.NoError(t, err)
	require.NotEmpty(t, tr.RunID())

	var seen []int
	tr.OnEpisode = func(s EpisodeSummary) { seen = append(seen, s.Episode) }

	sums, err := tr.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sums, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
	rec.AssertExpectations(t)

	for _, s := range sums {
		assert.Equal(t, 11, s.Steps)
		assert.Equal(t, 11, s.Actions[0]+s.Actions[1]+s.Actions[2])
		assert.LessOrEqual(t, s.Trades, s.Actions[2])
	}
	assert.Positive(t, sums[0].Replays)
	assert.Less(t, sums[3].Epsilon, 1.0)

	assert.Empty(t, sums[0].Checkpoint)
	assert.Equal(t, filepath.Join(acfg.CheckpointRoot, "TEST", "TEST_model_ep3.pt"), sums[2].Checkpoint)
	assert.Equal(t, filepath.Join(acfg.CheckpointRoot, "TEST", "TEST_model_ep4.pt"), sums[3].Checkpoint)
	for _, s := range sums[2:] {
		_, err := os.Stat(s.Checkpoint)
		assert.NoError(t, err)
	}
}

func loadCheckpoint(t *testing.T, path string) map[string]*mat.Dense {
	t.Helper()
	state, err := checkpoint.FileStore{}.Load(path)
	require.NoError(t, err)
	return state
}

func sameState(a, b map[string]*mat.Dense) bool {
	if len(a) != len(b) {
		return false
	}
	for name, t := range a {
		u, ok := b[name]
		if !ok || !mat.Equal(t, u) {
			return false
		}
	}
	return true
}

// Saving the target after every episode exposes exactly when it was synced.
func TestTargetSyncFollowsPeriod(t *testing.T) {
	acfg := smallAgentConfig(t)
	fresh, err := agent.New(acfg, agent.ModeTraining)
	require.NoError(t, err)
	initial, err := fresh.Save(0, "FRESH")
	require.NoError(t, err)

	a, err := agent.New(acfg, agent.ModeTraining)
	require.NoError(t, err)
	cfg := Config{Episodes: 4, BatchSize: 4, TargetUpdatePeriod: 2, SaveEvery: 1, Label: "TEST"}
	tr, err := New(cfg, a, smallEnv(t, acfg), nil)
	require.NoError(t, err)
	sums, err := tr.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sums, 4)

	ep := make([]map[string]*mat.Dense, len(sums))
	for i, s := range sums {
		require.NotEmpty(t, s.Checkpoint)
		require.Positive(t, s.Replays)
		ep[i] = loadCheckpoint(t, s.Checkpoint)
	}

	assert.True(t, sameState(loadCheckpoint(t, initial), ep[0]), "no sync after episode 1")
	assert.False(t, sameState(ep[0], ep[1]), "sync after episode 2")
	assert.True(t, sameState(ep[1], ep[2]), "no sync after episode 3")
	assert.False(t, sameState(ep[2], ep[3]), "sync after episode 4")
}

func TestEvaluateAfterTraining(t *testing.T) {
	acfg := smallAgentConfig(t)
	a, err := agent.New(acfg, agent.ModeTraining)
	require.NoError(t, err)
	cfg := Config{Episodes: 1, BatchSize: 2, TargetUpdatePeriod: 1, SaveEvery: 1, Label: "TEST"}
	tr, err := New(cfg, a, smallEnv(t, acfg), nil)
	require.NoError(t, err)
	_, err = tr.Run(context.Background())
	require.NoError(t, err)

	acfg.ModelName = "TEST/TEST_model_ep1"
	evalAgent, err := agent.New(acfg, agent.ModeEvaluation)
	require.NoError(t, err)
	ev, err := New(cfg, evalAgent, smallEnv(t, acfg), nil)
	require.NoError(t, err)

	first, err := ev.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, first.Steps)
	assert.Zero(t, first.Replays)
	assert.Equal(t, 0, evalAgent.MemoryLen())

	second, err := ev.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Actions, second.Actions)
	assert.True(t, first.TotalProfit.Equal(second.TotalProfit))

	_, err = ev.Run(context.Background())
	assert.ErrorIs(t, err, agent.ErrEvaluationMode)
}

func TestRunStopsOnCancel(t *testing.T) {
	acfg := smallAgentConfig(t)
	a, err := agent.New(acfg, agent.ModeTraining)
	require.NoError(t, err)
	tr, err := New(DefaultConfig("TEST"), a, smallEnv(t, acfg), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sums, err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sums)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil)
	assert.Error(t, err)

	cfg := DefaultConfig("")
	_, err = New(cfg, nil, nil, nil)
	assert.Error(t, err)
}

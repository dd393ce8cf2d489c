package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"FusionTrader/internal/collector"
	"FusionTrader/internal/model"
	"FusionTrader/internal/portfolio"
	"FusionTrader/internal/recorder"
)

type fixedPredictor struct {
	probs []float64
	err   error
	calls int
}

func (f *fixedPredictor) Predict(obs model.Observation) ([]float64, error) {
	f.calls++
	if len(obs.Series) != 5 || obs.Image.Height != 16 {
		return nil, errors.New("unexpected observation shape")
	}
	return f.probs, f.err
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	return m.Called(text, maxRetries).Error(0)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordRun(r *recorder.Run) error            { return m.Called(r).Error(0) }
func (m *mockRecorder) RecordEpisode(e *recorder.Episode) error    { return m.Called(e).Error(0) }
func (m *mockRecorder) RecordSignal(e *recorder.SignalEvent) error { return m.Called(e).Error(0) }
func (m *mockRecorder) RecordTrade(e *recorder.TradeEvent) error   { return m.Called(e).Error(0) }
func (m *mockRecorder) Close() error                               { return m.Called().Error(0) }

var settings = Settings{Model: "TEST/TEST_model_ep1", HistoryDays: 40, Window: 5, ImageHeight: 16, ImageWidth: 16, RSIPeriod: 14}

func newTestScheduler(t *testing.T, pred Predictor, sender Sender, rec recorder.Recorder) *Scheduler {
	t.Helper()
	pm, err := portfolio.NewManager(filepath.Join(t.TempDir(), "portfolio.json"), "TEST", 1000)
	require.NoError(t, err)
	col := collector.NewCollector(&collector.MockFetcher{Price: 100}, "TEST")
	return NewScheduler(context.Background(), settings, col, pred, pm, sender, rec)
}

func TestRunSignalNowBuysAndReports(t *testing.T) {
	pred := &fixedPredictor{probs: []float64{0.1, 0.85, 0.05}}
	sender := new(mockSender)
	sender.On("SendWithRetry", mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "<b>BUY</b>") && strings.Contains(text, "bought 1 @ 100.00")
	}), 3).Return(nil).Once()
	rec := new(mockRecorder)
	rec.On("RecordSignal", mock.MatchedBy(func(e *recorder.SignalEvent) bool {
		return e.Model == settings.Model && e.Signal.Action == model.ActionBuy
	})).Return(nil).Once()
	rec.On("RecordTrade", mock.MatchedBy(func(e *recorder.TradeEvent) bool {
		return e.Side == model.ActionBuy && e.Holdings == 1
	})).Return(nil).Once()

	s := newTestScheduler(t, pred, sender, rec)
	sig, err := s.RunSignalNow()
	require.NoError(t, err)

	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.Equal(t, "strong", sig.Tier.Label)
	assert.Equal(t, 100.0, sig.Price)
	assert.Equal(t, sig, s.LastSignal())
	assert.Equal(t, 1, s.Portfolio.Snapshot(100).Holdings)
	sender.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestWeakSignalDoesNotTrade(t *testing.T) {
	pred := &fixedPredictor{probs: []float64{0.3, 0.4, 0.3}}
	sender := new(mockSender)
	sender.On("SendWithRetry", mock.Anything, 3).Return(nil)
	rec := new(mockRecorder)
	rec.On("RecordSignal", mock.Anything).Return(nil).Once()

	s := newTestScheduler(t, pred, sender, rec)
	_, err := s.RunSignalNow()
	require.NoError(t, err)
	assert.Zero(t, s.Portfolio.Snapshot(100).Holdings)
	rec.AssertNotCalled(t, "RecordTrade", mock.Anything)
}

func TestPredictErrorSurfaces(t *testing.T) {
	pred := &fixedPredictor{err: errors.New("shape")}
	s := newTestScheduler(t, pred, nil, nil)
	_, err := s.RunSignalNow()
	assert.ErrorContains(t, err, "predict")
	assert.Nil(t, s.LastSignal())
}

func TestHandleCommand(t *testing.T) {
	pred := &fixedPredictor{probs: []float64{0.1, 0.1, 0.8}}
	s := newTestScheduler(t, pred, nil, nil)

	assert.Equal(t, "No signal yet.", s.HandleCommand("/last"))
	assert.Contains(t, s.HandleCommand("/portfolio"), "Cash: 1000.00")
	assert.Contains(t, s.HandleCommand("/help"), "/signal")

	assert.Empty(t, s.HandleCommand("/signal"))
	assert.Equal(t, 1, pred.calls)
	assert.Contains(t, s.HandleCommand("/last"), "<b>SELL</b>")
}

func TestRegisterAllRejectsBadCronExpression(t *testing.T) {
	s := newTestScheduler(t, &fixedPredictor{}, nil, nil)
	assert.Error(t, s.RegisterAll("not a cron"))
	assert.NoError(t, s.RegisterAll("0 30 16 * * 1-5"))
}

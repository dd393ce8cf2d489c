package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FusionTrader/internal/collector"
	"FusionTrader/internal/dataset"
)

func TestEpisodeWalksEveryBar(t *testing.T) {
	bars := collector.GenerateBars(100, 8)
	data, err := dataset.New("X", bars, 3, 8, 8)
	require.NoError(t, err)
	e := New(data)

	first, err := e.Reset()
	require.NoError(t, err)
	require.Len(t, first.Series, 3)
	assert.Equal(t, bars[0].Close, e.Price())

	steps := 0
	for {
		_, done, err := e.Step()
		require.NoError(t, err)
		steps++
		assert.Equal(t, bars[e.Index()].Close, e.Price())
		if done {
			break
		}
	}
	assert.Equal(t, e.Steps(), steps)
	assert.Equal(t, 7, e.Index())

	_, done, err := e.Step()
	assert.True(t, done)
	assert.ErrorIs(t, err, ErrDone)

	_, err = e.Reset()
	require.NoError(t, err)
	assert.Zero(t, e.Index())
}

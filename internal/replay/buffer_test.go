package replay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FusionTrader/internal/model"
)

func tagged(reward float64) model.Transition {
	return model.Transition{Reward: reward}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestPushEvictsOldestFirst(t *testing.T) {
	const capacity = 5
	b, err := New(capacity)
	require.NoError(t, err)

	for i := 0; i < capacity+1; i++ {
		b.Push(tagged(float64(i)))
	}
	require.Equal(t, capacity, b.Len())
	for i := 0; i < capacity; i++ {
		assert.Equal(t, float64(i+1), b.At(i).Reward)
	}

	for i := capacity + 1; i < 3*capacity; i++ {
		b.Push(tagged(float64(i)))
	}
	assert.Equal(t, capacity, b.Len())
	assert.Equal(t, float64(2*capacity), b.At(0).Reward)
	assert.Equal(t, float64(3*capacity-1), b.At(capacity-1).Reward)
}

func TestAtPanicsOutOfRange(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)
	b.Push(tagged(1))
	assert.Panics(t, func() { b.At(1) })
}

func TestSampleEmpty(t *testing.T) {
	b, err := New(3)
	require.NoError(t, err)
	_, err = b.Sample(rand.New(rand.NewSource(1)), 1)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSampleWithReplacement(t *testing.T) {
	b, err := New(DefaultCapacity)
	require.NoError(t, err)
	b.Push(tagged(1))
	b.Push(tagged(2))

	got, err := b.Sample(rand.New(rand.NewSource(1)), 50)
	require.NoError(t, err)
	require.Len(t, got, 50)

	seen := map[float64]int{}
	for _, tr := range got {
		seen[tr.Reward]++
	}
	assert.Len(t, seen, 2)
	assert.Equal(t, 50, seen[1]+seen[2])
}

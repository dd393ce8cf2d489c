// Package replay holds the agent's experience memory.
package replay

import (
	"errors"
	"math/rand"

	"FusionTrader/internal/model"
)

// DefaultCapacity is the number of transitions kept before eviction starts.
// At the default 3x64x64 float32 chart, a full buffer holds roughly 1 GB
// of images when state and next are stored separately, half that when the
// driver reuses next as the following state.
const DefaultCapacity = 10000

var (
	ErrEmpty    = errors.New("replay buffer is empty")
	ErrCapacity = errors.New("capacity must be greater than zero")
)

// Buffer is a bounded FIFO ring of transitions. Pushing into a full buffer
// evicts the oldest entry. It is not safe for concurrent use.
type Buffer struct {
	items []model.Transition
	head  int // index of the oldest entry
	size  int
}

// New returns an empty buffer holding at most capacity transitions.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	return &Buffer{items: make([]model.Transition, capacity)}, nil
}

// Push appends t at the tail, evicting the oldest entry when full.
func (b *Buffer) Push(t model.Transition) {
	capacity := len(b.items)
	if b.size < capacity {
		b.items[(b.head+b.size)%capacity] = t
		b.size++
		return
	}
	b.items[b.head] = t
	b.head = (b.head + 1) % capacity
}

// Len returns the number of stored transitions.
func (b *Buffer) Len() int { return b.size }

// Capacity returns the maximum number of stored transitions.
func (b *Buffer) Capacity() int { return len(b.items) }

// At returns the i-th stored transition, 0 being the oldest.
func (b *Buffer) At(i int) model.Transition {
	if i < 0 || i >= b.size {
		panic("replay: index out of range")
	}
	return b.items[(b.head+i)%len(b.items)]
}

// Sample draws k transitions uniformly WITH replacement, so the same
// transition may appear more than once in a batch.
func (b *Buffer) Sample(rng *rand.Rand, k int) ([]model.Transition, error) {
	if b.size == 0 {
		return nil, ErrEmpty
	}
	out := make([]model.Transition, k)
	for i := range out {
		out[i] = b.At(rng.Intn(b.size))
	}
	return out, nil
}

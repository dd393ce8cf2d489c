// Package env replays a dataset one bar at a time.
package env

import (
	"errors"

	"FusionTrader/internal/dataset"
	"FusionTrader/internal/model"
)

var ErrDone = errors.New("episode is over")

// Trading walks a dataset from the first bar to the last. An episode has
// Len()-1 steps.
type Trading struct {
	data *dataset.Dataset
	t    int
}

func New(data *dataset.Dataset) *Trading {
	return &Trading{data: data}
}

// Reset rewinds to the first bar and returns its observation.
func (e *Trading) Reset() (model.Observation, error) {
	e.t = 0
	return e.data.Observation(0)
}

// Step advances one bar. done is true when the new bar is the last one.
func (e *Trading) Step() (next model.Observation, done bool, err error) {
	if e.t >= e.data.Len()-1 {
		return model.Observation{}, true, ErrDone
	}
	e.t++
	next, err = e.data.Observation(e.t)
	if err != nil {
		return model.Observation{}, false, err
	}
	return next, e.t == e.data.Len()-1, nil
}

// Price is the close of the current bar.
func (e *Trading) Price() float64 { return e.data.Price(e.t) }

// Index is the current bar.
func (e *Trading) Index() int { return e.t }

// Steps is the number of Step calls in one episode.
func (e *Trading) Steps() int { return e.data.Len() - 1 }

func (e *Trading) Symbol() string { return e.data.Symbol() }

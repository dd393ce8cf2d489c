package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FusionTrader/internal/model"
)

// StateVersion is the layout written by SaveState. Files without a version
// predate it and are read as version 1.
const StateVersion = 1

var ErrStateVersion = errors.New("unsupported portfolio state version")

// LoadState reads the portfolio state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.PortfolioState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PortfolioState{Version: StateVersion}, nil
		}
		return nil, err
	}
	var state model.PortfolioState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	switch {
	case state.Version == 0:
		state.Version = StateVersion
	case state.Version > StateVersion:
		return nil, fmt.Errorf("%w: %s has %d, this build reads up to %d",
			ErrStateVersion, filePath, state.Version, StateVersion)
	}
	if state.Cash.IsNegative() {
		return nil, fmt.Errorf("parse %s: negative cash %s", filePath, state.Cash)
	}
	return &state, nil
}

// SaveState writes the portfolio state through a temp file in the same
// directory and renames it over filePath. Readers see either the old or the
// new file.
func SaveState(filePath string, state *model.PortfolioState) error {
	state.Version = StateVersion
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

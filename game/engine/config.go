package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a game configuration cannot be played
	ErrInvalidConfig = errors.New("invalid game config")
	// ErrInvalidState is returned when a restored state is inconsistent
	ErrInvalidState = errors.New("invalid game state")
)

// DefaultMessages are used for any message a config leaves empty
var DefaultMessages = Messages{
	Welcome: "Clear every cube that is not a mine.",
	Victory: "Field cleared! You win!",
	Defeat:  "Boom! You hit a mine.",
}

// ValidateGameConfig checks dimensions and mine count.
// A mine count that does not leave a safe cell is accepted and clamped by NormalizeConfig.
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	dims := []struct {
		name  string
		value int
	}{
		{"width", config.Width},
		{"height", config.Height},
		{"depth", config.Depth},
	}
	for _, d := range dims {
		if d.value < MinDimension || d.value > MaxDimension {
			return fmt.Errorf("%w: %s must be between %d and %d, got %d",
				ErrInvalidConfig, d.name, MinDimension, MaxDimension, d.value)
		}
	}

	if config.MineCount < MinMines {
		return fmt.Errorf("%w: mine_count must be at least %d, got %d", ErrInvalidConfig, MinMines, config.MineCount)
	}

	return nil
}

// NormalizeConfig returns a copy of config with the mine count clamped to
// cells-1 and empty messages filled from DefaultMessages.
func NormalizeConfig(config *GameConfig) *GameConfig {
	c := *config
	if total := TotalCells(c.Width, c.Height, c.Depth); c.MineCount > total-1 {
		c.MineCount = total - 1
	}
	if c.Messages.Welcome == "" {
		c.Messages.Welcome = DefaultMessages.Welcome
	}
	if c.Messages.Victory == "" {
		c.Messages.Victory = DefaultMessages.Victory
	}
	if c.Messages.Defeat == "" {
		c.Messages.Defeat = DefaultMessages.Defeat
	}
	return &c
}

// InitGameStateFromConfig creates a fresh, unmined state for a normalized config
func InitGameStateFromConfig(config *GameConfig) *GameState {
	return &GameState{
		Cells:      newCells(config.Width, config.Height, config.Depth),
		Width:      config.Width,
		Height:     config.Height,
		Depth:      config.Depth,
		MineCount:  config.MineCount,
		GameStatus: StatusPlaying,
		FirstClick: true,
		MinePhase:  MinesUnassigned,
		Message:    config.Messages.Welcome,
		ConfigName: config.Name,
	}
}

// ValidateState checks a state for internal consistency against config
func ValidateState(state *GameState, config *GameConfig) error {
	if state == nil {
		return fmt.Errorf("%w: state is nil", ErrInvalidState)
	}
	if state.Width != config.Width || state.Height != config.Height || state.Depth != config.Depth {
		return fmt.Errorf("%w: dimensions %dx%dx%d do not match config %dx%dx%d", ErrInvalidState,
			state.Width, state.Height, state.Depth, config.Width, config.Height, config.Depth)
	}
	if len(state.Cells) != TotalCells(state.Width, state.Height, state.Depth) {
		return fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidState,
			TotalCells(state.Width, state.Height, state.Depth), len(state.Cells))
	}

	switch state.GameStatus {
	case StatusPlaying, StatusWon, StatusLost:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, state.GameStatus)
	}
	if state.MinePhase != MinesUnassigned && state.MinePhase != MinesPlaced {
		return fmt.Errorf("%w: unknown mine phase %q", ErrInvalidState, state.MinePhase)
	}

	mines, flags, revealed := 0, 0, 0
	for i, c := range state.Cells {
		if c.Index != i {
			return fmt.Errorf("%w: cell %d has index %d", ErrInvalidState, i, c.Index)
		}
		if c.IsRevealed && c.IsFlagged {
			return fmt.Errorf("%w: cell %d is both revealed and flagged", ErrInvalidState, i)
		}
		if c.IsMine {
			mines++
		}
		if c.IsFlagged {
			flags++
		}
		if c.IsRevealed {
			revealed++
		}
	}

	if state.MinePhase == MinesPlaced && mines != state.MineCount {
		return fmt.Errorf("%w: %d mines placed but mine_count is %d", ErrInvalidState, mines, state.MineCount)
	}
	if state.MinePhase == MinesUnassigned && mines != 0 {
		return fmt.Errorf("%w: mines present before placement", ErrInvalidState)
	}
	if flags != state.FlagCount {
		return fmt.Errorf("%w: flag_count %d does not match %d flagged cells", ErrInvalidState, state.FlagCount, flags)
	}
	if flags > state.MineCount {
		return fmt.Errorf("%w: flag_count %d exceeds mine_count %d", ErrInvalidState, flags, state.MineCount)
	}
	if revealed != state.RevealedCount {
		return fmt.Errorf("%w: revealed_count %d does not match %d revealed cells", ErrInvalidState, state.RevealedCount, revealed)
	}

	return nil
}

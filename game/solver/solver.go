// Package solver suggests moves from what a player can see.
//
// Deductions are local: a numbered cell whose flags already account for its
// mines makes its other hidden neighbours safe, and one whose hidden
// neighbours equal its number makes them all mines. When neither applies the
// solver guesses among hidden cells.
package solver

import (
	"math/rand/v2"

	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
)

// MoveType is the kind of action a move suggests
type MoveType string

const (
	MoveReveal MoveType = "reveal"
	MoveFlag   MoveType = "flag"
)

// Strategy names
const (
	StrategyLogic  = "logic"
	StrategyRandom = "random"
	StrategyOpener = "opener"
)

// Move is a suggested action
type Move struct {
	Index      int      `json:"index"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Z          int      `json:"z"`
	Type       MoveType `json:"type"`
	IsGuess    bool     `json:"is_guess"`
	Strategy   string   `json:"strategy"`
	Confidence float64  `json:"confidence"` // probability the move is correct
}

// Solver picks moves for a game state
type Solver struct {
	rng *rand.Rand
}

// New creates a solver whose guesses are reproducible for a seed
func New(seed uint64) *Solver {
	return &Solver{rng: rand.New(rand.NewPCG(seed, seed+1))}
}

// NextMove returns the next suggested move, or nil when the game is over or
// no hidden cell remains. Only revealed cells and flags are consulted.
func (s *Solver) NextMove(state *engine.GameState) *Move {
	if state == nil || state.GameStatus != engine.StatusPlaying {
		return nil
	}

	if state.FirstClick {
		return s.at(state, &Move{
			Index:      centerIndex(state),
			Type:       MoveReveal,
			IsGuess:    true,
			Strategy:   StrategyOpener,
			Confidence: safeProbability(state),
		})
	}

	if move := s.findSafeMove(state); move != nil {
		return move
	}
	if move := s.findFlagMove(state); move != nil {
		return move
	}
	return s.findRandomMove(state)
}

func (s *Solver) findSafeMove(state *engine.GameState) *Move {
	for i, cell := range state.Cells {
		if !cell.IsRevealed || cell.IsMine || cell.NeighborMineCount == 0 {
			continue
		}
		flags, hidden := neighborsInfo(state, i)
		if flags == cell.NeighborMineCount && len(hidden) > 0 {
			return s.at(state, &Move{Index: hidden[0], Type: MoveReveal, Strategy: StrategyLogic, Confidence: 1})
		}
	}
	return nil
}

func (s *Solver) findFlagMove(state *engine.GameState) *Move {
	if state.FlagCount >= state.MineCount {
		return nil
	}
	for i, cell := range state.Cells {
		if !cell.IsRevealed || cell.IsMine || cell.NeighborMineCount == 0 {
			continue
		}
		flags, hidden := neighborsInfo(state, i)
		if len(hidden) > 0 && flags+len(hidden) == cell.NeighborMineCount {
			return s.at(state, &Move{Index: hidden[0], Type: MoveFlag, Strategy: StrategyLogic, Confidence: 1})
		}
	}
	return nil
}

func (s *Solver) findRandomMove(state *engine.GameState) *Move {
	var candidates []int
	for i, cell := range state.Cells {
		if !cell.IsRevealed && !cell.IsFlagged {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return s.at(state, &Move{
		Index:      candidates[s.rng.IntN(len(candidates))],
		Type:       MoveReveal,
		IsGuess:    true,
		Strategy:   StrategyRandom,
		Confidence: safeProbability(state),
	})
}

func (s *Solver) at(state *engine.GameState, m *Move) *Move {
	m.X, m.Y, m.Z = state.Coords(m.Index)
	return m
}

// neighborsInfo returns the flagged count and the hidden, unflagged neighbours of index
func neighborsInfo(state *engine.GameState, index int) (int, []int) {
	flags := 0
	var hidden []int
	for _, n := range state.Neighbors(index) {
		c := state.Cells[n]
		switch {
		case c.IsFlagged:
			flags++
		case !c.IsRevealed:
			hidden = append(hidden, n)
		}
	}
	return flags, hidden
}

// safeProbability estimates the chance a random hidden, unflagged cell is safe
func safeProbability(state *engine.GameState) float64 {
	unknown := engine.CountCells(state, func(c engine.Cell) bool { return !c.IsRevealed && !c.IsFlagged })
	if unknown == 0 {
		return 0
	}
	remaining := state.MineCount - state.FlagCount
	if remaining < 0 {
		remaining = 0
	}
	return 1 - float64(remaining)/float64(unknown)
}

func centerIndex(state *engine.GameState) int {
	return engine.IndexOf(state.Width/2, state.Height/2, state.Depth/2, state.Width, state.Height)
}

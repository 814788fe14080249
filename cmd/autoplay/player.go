package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/solver"
)

var errStuck = errors.New("solver has no move")

// Game abstracts the calls a Player makes, so it can drive a remote or fake session
type Game interface {
	Reset(ctx context.Context) (*engine.GameState, error)
	Act(ctx context.Context, action string, index int) (*ActionOutcome, error)
}

// ActionOutcome is the part of an action response the player needs
type ActionOutcome struct {
	Success bool
	Reason  engine.RejectReason
	State   *engine.GameState
}

// Result summarises one played game
type Result struct {
	Won      bool
	Moves    int
	Guesses  int
	Flags    int
	Rejected int
	Status   engine.GameStatus
}

// Player plays games with the deterministic solver, guessing only when stuck
type Player struct {
	game     Game
	solver   *solver.Solver
	logger   logrus.FieldLogger
	maxMoves int
	delay    time.Duration
}

func NewPlayer(game Game, seed uint64, maxMoves int, delay time.Duration, logger logrus.FieldLogger) *Player {
	return &Player{
		game:     game,
		solver:   solver.New(seed),
		logger:   logger,
		maxMoves: maxMoves,
		delay:    delay,
	}
}

// Play drives state until the game ends or maxMoves is reached
func (p *Player) Play(ctx context.Context, state *engine.GameState) (Result, error) {
	var res Result
	lastRejected := -1

	for state.GameStatus == engine.StatusPlaying && res.Moves < p.maxMoves {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		move := p.solver.NextMove(state)
		if move == nil {
			res.Status = state.GameStatus
			return res, errStuck
		}

		outcome, err := p.game.Act(ctx, string(move.Type), move.Index)
		if err != nil {
			return res, err
		}
		res.Moves++
		if move.IsGuess {
			res.Guesses++
		}

		if !outcome.Success {
			res.Rejected++
			// the same rejected suggestion again means the solver cannot progress
			if lastRejected == move.Index {
				res.Status = state.GameStatus
				return res, fmt.Errorf("%s %d rejected twice: %s", move.Type, move.Index, outcome.Reason)
			}
			lastRejected = move.Index
		} else {
			lastRejected = -1
			if move.Type == solver.MoveFlag {
				res.Flags++
			}
		}
		if outcome.State != nil {
			state = outcome.State
		}

		p.logger.WithFields(logrus.Fields{
			"move":       res.Moves,
			"action":     move.Type,
			"index":      move.Index,
			"xyz":        fmt.Sprintf("%d,%d,%d", move.X, move.Y, move.Z),
			"strategy":   move.Strategy,
			"confidence": move.Confidence,
			"success":    outcome.Success,
			"revealed":   fmt.Sprintf("%d/%d", state.RevealedCount, len(state.Cells)-state.MineCount),
		}).Debug("move")

		if p.delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(p.delay):
			}
		}
	}

	res.Status = state.GameStatus
	res.Won = state.GameStatus == engine.StatusWon
	return res, nil
}

// PlayUntilWin resets and plays up to attempts games, stopping at the first win
func (p *Player) PlayUntilWin(ctx context.Context, attempts int) (Result, int, error) {
	var last Result
	for attempt := 1; attempt <= attempts; attempt++ {
		state, err := p.game.Reset(ctx)
		if err != nil {
			return last, attempt, err
		}

		last, err = p.Play(ctx, state)
		entry := p.logger.WithFields(logrus.Fields{
			"attempt":  attempt,
			"moves":    last.Moves,
			"guesses":  last.Guesses,
			"flags":    last.Flags,
			"rejected": last.Rejected,
			"status":   last.Status,
		})
		if err != nil && !errors.Is(err, errStuck) {
			return last, attempt, err
		}
		if err != nil {
			entry.WithError(err).Warn("attempt stopped")
		} else {
			entry.Info("attempt finished")
		}

		if last.Won {
			return last, attempt, nil
		}
	}
	return last, attempts, nil
}

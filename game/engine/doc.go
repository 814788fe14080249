// Package engine provides the core game logic for three-dimensional Minesweeper.
//
// The engine package implements the game mechanics including:
//   - A width x height x depth grid of cells addressed by a linear index
//   - Deferred, first-click-safe mine placement
//   - 26-neighbour mine counts
//   - Flood-fill auto reveal, flagging with a mine budget and chord clicks
//   - Win and loss detection
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState represents the current game state,
// while GameConfig defines the dimensions, mine count and mechanics.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(&engine.GameConfig{
//		Name:           "beginner-3d",
//		Width:          3,
//		Height:         3,
//		Depth:          3,
//		MineCount:      5,
//		FirstClickSafe: true,
//		AutoReveal:     true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := gameEngine.RevealCell(13)
//	stats := gameEngine.GetStats()
//
// Game Rules:
//
// A cell at (x, y, z) has index x + y*width + z*width*height. Revealing a
// mine loses the game. Revealing a cell with no neighbouring mines uncovers
// the surrounding region automatically. The game is won once every cell that
// is not a mine has been revealed. Flags never exceed the mine count, and a
// chord click on a numbered cell whose flags match its number reveals all of
// its other neighbours at once.
//
// Configurations whose mine count leaves no safe cell are clamped to
// cells-1 mines at construction. Rejected actions return an ActionResult with
// Success false and a Reason, and leave the state untouched.
//
// A GameEngine is safe for concurrent use; each instance serializes its own
// operations.
package engine

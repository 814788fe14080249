package engine

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Player actions
	RevealCell(index int) ActionResult
	ToggleFlag(index int) ActionResult
	ChordClick(index int) ActionResult

	// Queries
	GetCell(index int) (Cell, bool)
	GetCellVariant(index int) CellVariant
	GetCellNumber(index int) (int, bool)
	GetGameState() *GameState
	GetStats() Stats
	Neighbors(index int) []int
	Status() GameStatus
	IsGameOver() bool
	IsVictory() bool

	// State management
	Reset() *GameState
	SetState(state *GameState) error
	GetConfig() *GameConfig
}

// GameEngine implements the Engine interface
type GameEngine struct {
	mu     sync.Mutex
	state  *GameState
	config *GameConfig
	placer MinePlacer
	now    func() time.Time
}

// Option customizes a GameEngine
type Option func(*GameEngine)

// WithPlacer sets the mine placement strategy
func WithPlacer(p MinePlacer) Option {
	return func(e *GameEngine) {
		e.placer = p
	}
}

// WithSeed makes mine placement reproducible
func WithSeed(seed uint64) Option {
	return func(e *GameEngine) {
		e.placer = NewRandomPlacer(seed)
	}
}

// WithClock overrides the time source used for start and end stamps
func WithClock(now func() time.Time) Option {
	return func(e *GameEngine) {
		e.now = now
	}
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: NormalizeConfig(config),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.placer == nil {
		e.placer = NewRandomPlacer(rand.Uint64())
	}

	e.state = e.freshState()
	return e, nil
}

func (e *GameEngine) freshState() *GameState {
	state := InitGameStateFromConfig(e.config)
	e.state = state
	if !e.config.FirstClickSafe {
		e.placeMines(-1)
	}
	return state
}

// RevealCell uncovers a cell, placing mines on the first reveal of a game
func (e *GameEngine) RevealCell(index int) ActionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := e.reveal(index)
	if result.Success {
		e.state.Moves++
	}
	return result
}

func (e *GameEngine) reveal(index int) ActionResult {
	s := e.state
	if s.GameStatus != StatusPlaying {
		return rejected(ReasonNotPlaying)
	}
	if !s.ValidIndex(index) {
		return rejected(ReasonOutOfRange)
	}
	cell := &s.Cells[index]
	if cell.IsRevealed {
		return rejected(ReasonAlreadyRevealed)
	}
	if cell.IsFlagged {
		return rejected(ReasonFlagged)
	}

	if s.FirstClick {
		e.placeMines(index)
		s.FirstClick = false
		start := e.now()
		s.StartTime = &start
	}

	cell.IsRevealed = true
	s.RevealedCount++
	result := ActionResult{Success: true, Revealed: []int{index}}

	if cell.IsMine {
		e.finish(StatusLost)
		result.GameOver = true
		return result
	}

	if cell.NeighborMineCount == 0 && e.config.AutoReveal {
		result.Revealed = append(result.Revealed, e.floodFill(index)...)
	}

	if s.RevealedCount >= len(s.Cells)-s.MineCount {
		e.finish(StatusWon)
		result.GameOver = true
		result.Won = true
	}

	return result
}

// floodFill reveals the connected region of zero-count cells around origin
// together with its numbered border. Mines are never revealed.
func (e *GameEngine) floodFill(origin int) []int {
	s := e.state
	visited := make([]bool, len(s.Cells))
	visited[origin] = true

	var revealed []int
	queue := []int{origin}
	for head := 0; head < len(queue); head++ {
		s.forEachNeighbor(queue[head], func(n int) {
			if visited[n] {
				return
			}
			visited[n] = true

			c := &s.Cells[n]
			if c.IsRevealed || c.IsFlagged || c.IsMine {
				return
			}
			c.IsRevealed = true
			s.RevealedCount++
			revealed = append(revealed, n)

			if c.NeighborMineCount == 0 {
				queue = append(queue, n)
			}
		})
	}
	return revealed
}

func (e *GameEngine) finish(status GameStatus) {
	s := e.state
	s.GameStatus = status
	end := e.now()
	s.EndTime = &end
	if status == StatusWon {
		s.Message = e.config.Messages.Victory
	} else {
		s.Message = e.config.Messages.Defeat
	}
}

// ToggleFlag places or removes a flag, bounded by the mine count
func (e *GameEngine) ToggleFlag(index int) ActionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	if s.GameStatus != StatusPlaying {
		return rejected(ReasonNotPlaying)
	}
	if !s.ValidIndex(index) {
		return rejected(ReasonOutOfRange)
	}
	cell := &s.Cells[index]
	if cell.IsRevealed {
		return rejected(ReasonAlreadyRevealed)
	}

	if cell.IsFlagged {
		cell.IsFlagged = false
		s.FlagCount--
	} else {
		if s.FlagCount >= s.MineCount {
			return rejected(ReasonFlagLimit)
		}
		cell.IsFlagged = true
		s.FlagCount++
	}
	s.Moves++

	return ActionResult{Success: true}
}

// ChordClick reveals the unflagged neighbors of a satisfied numbered cell
func (e *GameEngine) ChordClick(index int) ActionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	if s.GameStatus != StatusPlaying {
		return rejected(ReasonNotPlaying)
	}
	if !s.ValidIndex(index) {
		return rejected(ReasonOutOfRange)
	}
	cell := s.Cells[index]
	if !cell.IsRevealed {
		return rejected(ReasonNotRevealed)
	}
	if cell.NeighborMineCount == 0 {
		return rejected(ReasonNoNumber)
	}
	if s.CountFlaggedNeighbors(index) != cell.NeighborMineCount {
		return rejected(ReasonFlagMismatch)
	}

	result := ActionResult{Success: true}
	for _, n := range s.Neighbors(index) {
		c := s.Cells[n]
		if c.IsRevealed || c.IsFlagged {
			continue
		}
		r := e.reveal(n)
		result.Revealed = append(result.Revealed, r.Revealed...)
		if r.GameOver {
			result.GameOver = true
			result.Won = r.Won
			break
		}
	}
	s.Moves++

	return result
}

// GetCell returns a copy of the cell at index
func (e *GameEngine) GetCell(index int) (Cell, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.ValidIndex(index) {
		return Cell{}, false
	}
	return e.state.Cells[index], true
}

// GetCellVariant classifies a cell for presentation
func (e *GameEngine) GetCellVariant(index int) CellVariant {
	cell, ok := e.GetCell(index)
	if !ok {
		return VariantEmpty
	}
	return VariantOf(cell)
}

// VariantOf classifies a cell: flag, then hidden, then bomb, then number
func VariantOf(cell Cell) CellVariant {
	switch {
	case cell.IsFlagged:
		return VariantFlag
	case !cell.IsRevealed:
		return VariantEmpty
	case cell.IsMine:
		return VariantBomb
	case cell.NeighborMineCount > 0:
		return VariantNumber
	default:
		return VariantEmpty
	}
}

// GetCellNumber returns the neighbor count of a revealed, numbered, non-mine cell
func (e *GameEngine) GetCellNumber(index int) (int, bool) {
	cell, ok := e.GetCell(index)
	if !ok || !cell.IsRevealed || cell.IsMine || cell.NeighborMineCount == 0 {
		return 0, false
	}
	return cell.NeighborMineCount, true
}

// GetGameState returns a detached copy of the current state
func (e *GameEngine) GetGameState() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Clone()
}

// GetStats returns counters, progress and elapsed time
func (e *GameEngine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.stats(e.now())
}

func (s *GameState) stats(now time.Time) Stats {
	st := Stats{
		RevealedCount:  s.RevealedCount,
		FlagCount:      s.FlagCount,
		MineCount:      s.MineCount,
		RemainingMines: s.MineCount - s.FlagCount,
	}
	if safe := len(s.Cells) - s.MineCount; safe > 0 {
		st.Progress = int(math.Round(float64(s.RevealedCount) / float64(safe) * 100))
	}
	if s.StartTime != nil {
		end := now
		if s.EndTime != nil {
			end = *s.EndTime
		}
		st.ElapsedTime = end.Sub(*s.StartTime).Milliseconds()
	}
	return st
}

// Neighbors returns the in-bounds neighbor indices of index
func (e *GameEngine) Neighbors(index int) []int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Neighbors(index)
}

// Status returns the current game status
func (e *GameEngine) Status() GameStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.GameStatus
}

// IsGameOver returns whether the game has ended
func (e *GameEngine) IsGameOver() bool {
	return e.Status() != StatusPlaying
}

// IsVictory returns whether the player has won
func (e *GameEngine) IsVictory() bool {
	return e.Status() == StatusWon
}

// Reset starts a new game with the same configuration
func (e *GameEngine) Reset() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.freshState().Clone()
}

// SetState replaces the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ValidateState(state, e.config); err != nil {
		return err
	}
	e.state = state.Clone()
	return nil
}

// GetConfig returns a copy of the normalized configuration
func (e *GameEngine) GetConfig() *GameConfig {
	c := *e.config
	return &c
}

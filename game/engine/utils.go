package engine

import (
	"strconv"
	"strings"
	"time"
)

// Clone returns a deep copy of the state
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s
	c.Cells = make([]Cell, len(s.Cells))
	copy(c.Cells, s.Cells)
	c.StartTime = copyTime(s.StartTime)
	c.EndTime = copyTime(s.EndTime)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Stats computes statistics for the state at the given instant
func (s *GameState) Stats(now time.Time) Stats {
	return s.stats(now)
}

// PlayerView returns a copy that hides mines and counts of unrevealed cells
// while the game is still being played. Finished games are returned in full.
func (s *GameState) PlayerView() *GameState {
	view := s.Clone()
	if view == nil || view.GameStatus != StatusPlaying {
		return view
	}
	for i := range view.Cells {
		if !view.Cells[i].IsRevealed {
			view.Cells[i].IsMine = false
			view.Cells[i].NeighborMineCount = 0
		}
	}
	return view
}

// CellSymbol returns the single character used to draw a cell.
// Counts above 9 are written in base 36.
func CellSymbol(c Cell, showMines bool) byte {
	switch {
	case c.IsFlagged:
		return 'F'
	case c.IsRevealed && c.IsMine:
		return '*'
	case !c.IsRevealed && c.IsMine && showMines:
		return '*'
	case !c.IsRevealed:
		return '#'
	case c.NeighborMineCount == 0:
		return '.'
	default:
		return strconv.FormatInt(int64(c.NeighborMineCount), 36)[0]
	}
}

// RenderLayer draws the z-th layer of the grid, one row per line
func RenderLayer(s *GameState, z int) string {
	if z < 0 || z >= s.Depth {
		return ""
	}
	showMines := s.GameStatus != StatusPlaying

	var b strings.Builder
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			b.WriteByte(CellSymbol(s.Cells[IndexOf(x, y, z, s.Width, s.Height)], showMines))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Render draws every layer, separated by a "z=N" header
func Render(s *GameState) string {
	var b strings.Builder
	for z := 0; z < s.Depth; z++ {
		b.WriteString("z=")
		b.WriteString(strconv.Itoa(z))
		b.WriteByte('\n')
		b.WriteString(RenderLayer(s, z))
	}
	return b.String()
}

// CountCells counts the cells matching pred
func CountCells(s *GameState, pred func(Cell) bool) int {
	count := 0
	for _, c := range s.Cells {
		if pred(c) {
			count++
		}
	}
	return count
}

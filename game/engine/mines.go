package engine

import (
	"math/rand/v2"
	"sort"
)

// MinePlacer chooses which cells hold mines.
//
// Place returns up to count distinct indices in [0, total), never including
// exclude. exclude is -1 when no cell needs protecting.
type MinePlacer interface {
	Place(total, count, exclude int) []int
}

// RandomPlacer picks mines uniformly at random
type RandomPlacer struct {
	rng *rand.Rand
}

// NewRandomPlacer returns a placer driven by a seeded PCG source
func NewRandomPlacer(seed uint64) *RandomPlacer {
	return &RandomPlacer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Place draws count candidates without replacement
func (p *RandomPlacer) Place(total, count, exclude int) []int {
	candidates := make([]int, 0, total)
	for i := 0; i < total; i++ {
		if i != exclude {
			candidates = append(candidates, i)
		}
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	mines := make([]int, 0, count)
	for len(mines) < count {
		k := p.rng.IntN(len(candidates))
		mines = append(mines, candidates[k])
		candidates[k] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
	}
	return mines
}

// FixedLayout places mines at predetermined indices. Indices equal to the
// excluded cell are skipped, so a fixed layout still honours first-click safety.
type FixedLayout []int

// Place returns the layout filtered to valid indices
func (f FixedLayout) Place(total, count, exclude int) []int {
	mines := make([]int, 0, len(f))
	for _, i := range f {
		if i < 0 || i >= total || i == exclude {
			continue
		}
		mines = append(mines, i)
	}
	return mines
}

// placeMines assigns mines and neighbor counts. It runs once per game.
func (e *GameEngine) placeMines(exclude int) {
	s := e.state
	if s.MinePhase == MinesPlaced {
		return
	}

	placed := e.placer.Place(len(s.Cells), s.MineCount, exclude)
	sort.Ints(placed)
	count := 0
	for _, i := range placed {
		if i < 0 || i >= len(s.Cells) || i == exclude || s.Cells[i].IsMine {
			continue
		}
		s.Cells[i].IsMine = true
		count++
	}
	s.MineCount = count
	trimFlags(s)
	computeNeighborCounts(s)
	s.MinePhase = MinesPlaced
}

// trimFlags keeps FlagCount within a mine budget lowered by a short placer.
// Flags on safe cells go first, highest index first.
func trimFlags(s *GameState) {
	for i := len(s.Cells) - 1; i >= 0 && s.FlagCount > s.MineCount; i-- {
		if s.Cells[i].IsFlagged && !s.Cells[i].IsMine {
			s.Cells[i].IsFlagged = false
			s.FlagCount--
		}
	}
}

func computeNeighborCounts(s *GameState) {
	for i := range s.Cells {
		n := 0
		s.forEachNeighbor(i, func(j int) {
			if s.Cells[j].IsMine {
				n++
			}
		})
		s.Cells[i].NeighborMineCount = n
	}
}

package engine

// neighborOffsets holds the 26 (dx, dy, dz) displacements of a cube's neighbors.
var neighborOffsets = func() [NeighborCount][3]int {
	var offsets [NeighborCount][3]int
	i := 0
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offsets[i] = [3]int{dx, dy, dz}
				i++
			}
		}
	}
	return offsets
}()

// IndexOf returns the linear index of (x, y, z) in a width x height layered grid
func IndexOf(x, y, z, width, height int) int {
	return x + y*width + z*width*height
}

// TotalCells returns the number of cells of a width x height x depth grid
func TotalCells(width, height, depth int) int {
	return width * height * depth
}

// Size returns the number of cells in the state
func (s *GameState) Size() int {
	return len(s.Cells)
}

// InBounds reports whether (x, y, z) lies inside the grid
func (s *GameState) InBounds(x, y, z int) bool {
	return x >= 0 && x < s.Width && y >= 0 && y < s.Height && z >= 0 && z < s.Depth
}

// ValidIndex reports whether index addresses a cell
func (s *GameState) ValidIndex(index int) bool {
	return index >= 0 && index < len(s.Cells)
}

// Index converts coordinates to a linear index
func (s *GameState) Index(x, y, z int) (int, bool) {
	if !s.InBounds(x, y, z) {
		return -1, false
	}
	return IndexOf(x, y, z, s.Width, s.Height), true
}

// Coords converts a linear index back to coordinates
func (s *GameState) Coords(index int) (x, y, z int) {
	layer := s.Width * s.Height
	z = index / layer
	rem := index % layer
	return rem % s.Width, rem / s.Width, z
}

// Neighbors returns the indices of all in-bounds neighbors of index
func (s *GameState) Neighbors(index int) []int {
	if !s.ValidIndex(index) {
		return nil
	}
	out := make([]int, 0, NeighborCount)
	s.forEachNeighbor(index, func(n int) {
		out = append(out, n)
	})
	return out
}

func (s *GameState) forEachNeighbor(index int, fn func(n int)) {
	x, y, z := s.Coords(index)
	for _, off := range neighborOffsets {
		nx, ny, nz := x+off[0], y+off[1], z+off[2]
		if !s.InBounds(nx, ny, nz) {
			continue
		}
		fn(IndexOf(nx, ny, nz, s.Width, s.Height))
	}
}

// CountFlaggedNeighbors returns how many neighbors of index carry a flag
func (s *GameState) CountFlaggedNeighbors(index int) int {
	count := 0
	s.forEachNeighbor(index, func(n int) {
		if s.Cells[n].IsFlagged {
			count++
		}
	})
	return count
}

func newCells(width, height, depth int) []Cell {
	cells := make([]Cell, TotalCells(width, height, depth))
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := IndexOf(x, y, z, width, height)
				cells[i] = Cell{X: x, Y: y, Z: z, Index: i}
			}
		}
	}
	return cells
}

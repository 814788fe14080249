package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Difficulty is a named preset level
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Expert       Difficulty = "expert"
)

// Mode values accepted by the mode URL parameter
const (
	Mode3D = "3d"
	Mode2D = "2d"
)

// Difficulties lists the levels in increasing order
var Difficulties = []Difficulty{Beginner, Intermediate, Expert}

// Preset holds the dimensions and mine count of a difficulty level
type Preset struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	Depth  int `json:"depth" yaml:"depth"`
	Mines  int `json:"mines" yaml:"mines"`
}

// Cells returns the number of cells the preset describes
func (p Preset) Cells() int {
	return p.Width * p.Height * p.Depth
}

// Density returns the fraction of cells holding a mine
func (p Preset) Density() float64 {
	if p.Cells() == 0 {
		return 0
	}
	return float64(p.Mines) / float64(p.Cells())
}

// String formats the preset as WxHxD/M
func (p Preset) String() string {
	return fmt.Sprintf("%dx%dx%d/%d", p.Width, p.Height, p.Depth, p.Mines)
}

var spatialPresets = map[Difficulty]Preset{
	Beginner:     {Width: 3, Height: 3, Depth: 3, Mines: 5},
	Intermediate: {Width: 7, Height: 7, Depth: 7, Mines: 15},
	Expert:       {Width: 11, Height: 11, Depth: 11, Mines: 20},
}

var flatPresets = map[Difficulty]Preset{
	Beginner:     {Width: 9, Height: 9, Depth: 1, Mines: 10},
	Intermediate: {Width: 16, Height: 16, Depth: 1, Mines: 40},
	Expert:       {Width: 30, Height: 16, Depth: 1, Mines: 99},
}

// Resolve returns the preset for a level. Unknown levels resolve to Beginner.
func Resolve(level Difficulty, spatial bool) Preset {
	table := flatPresets
	if spatial {
		table = spatialPresets
	}
	if p, ok := table[level]; ok {
		return p
	}
	return table[Beginner]
}

// ParseDifficulty maps a string to a Difficulty, falling back to Beginner
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Beginner, Intermediate, Expert:
		return d
	default:
		return Beginner
	}
}

// UseSpatial decides between the 3D and 2D tables. Without a mode the host
// decides; any mode other than "3d" selects the flat board.
func UseSpatial(mode string, spatialHost bool) bool {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return spatialHost
	}
	return mode == Mode3D
}

// FromQuery reads the difficulty and mode parameters of a request URL
func FromQuery(q url.Values, spatialHost bool) (Difficulty, bool) {
	return ParseDifficulty(q.Get("difficulty")), UseSpatial(q.Get("mode"), spatialHost)
}

// ConfigID returns the identifier of a built-in preset, e.g. "expert-3d"
func ConfigID(level Difficulty, spatial bool) string {
	if spatial {
		return string(level) + "-" + Mode3D
	}
	return string(level) + "-" + Mode2D
}

// ParseConfigID splits an identifier produced by ConfigID. A bare level
// name is treated as the 3D variant.
func ParseConfigID(id string) (Difficulty, bool, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	name, mode, hasMode := strings.Cut(id, "-")
	level := Difficulty(name)
	switch level {
	case Beginner, Intermediate, Expert:
	default:
		return "", false, false
	}
	if !hasMode {
		return level, true, true
	}
	switch mode {
	case Mode3D:
		return level, true, true
	case Mode2D:
		return level, false, true
	default:
		return "", false, false
	}
}

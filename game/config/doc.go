// Package config provides difficulty presets and configuration management.
//
// The config package handles:
//   - Resolving a difficulty level and display mode to grid dimensions
//   - Reading the difficulty and mode request parameters
//   - Loading optional preset overrides from presets.yaml or presets.json
//   - Default configuration and gameplay mechanics
//
// Presets:
//
// Each level has a spatial (3D) and a flat (2D) variant:
//   - beginner: 3x3x3 with 5 mines, or 9x9 with 10 mines
//   - intermediate: 7x7x7 with 15 mines, or 16x16 with 40 mines
//   - expert: 11x11x11 with 20 mines, or 30x16 with 99 mines
//
// Preset identifiers combine both parts, e.g. "expert-3d". Unknown levels
// resolve to beginner, and an explicit mode parameter ("3d" or "2d") takes
// precedence over what the host supports.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("expert-3d")
//
//	level, spatial := config.FromQuery(r.URL.Query(), true)
//	preset := config.Resolve(level, spatial)
//
// Presets File:
//
//	default: tiny
//	mechanics:
//	  chord_click: false
//	presets:
//	  - id: tiny
//	    width: 2
//	    height: 2
//	    depth: 2
//	    mines: 1
//
// File presets, custom boards and the built-in table share one rule: every
// axis lies within the engine's dimension bounds and the mine count leaves at
// least one safe cell. The engine alone would clamp the count instead.
package config

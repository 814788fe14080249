// Command analyze prints quick, human-readable heuristics about the game
// presets: dimensions, mine density, neighbourhood size and how likely a
// click is to open a cascade. With a records database it also summarises
// finished games per preset.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/cubesweeper/game/config"
	"github.com/wricardo/mcp-training/cubesweeper/game/records"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
)

// densityWarning is the mine density above which boards are mostly guesswork
const densityWarning = 0.25

// PresetAnalysis holds the derived numbers for one preset.
type PresetAnalysis struct {
	ConfigID     string
	Width        int
	Height       int
	Depth        int
	Mines        int
	Cells        int
	SafeCells    int
	Density      float64
	MaxNeighbors int
	// OpeningChance estimates how often a safe cell has no adjacent mine.
	OpeningChance float64
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "print statistics about game presets and recorded games",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Usage: "directory containing a presets file", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "records-db", Usage: "SQLite records database to summarise", Sources: cli.EnvVars("RECORDS_DB")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, os.Stdout, cmd.String("config-dir"), cmd.String("records-db"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, configDir, recordsDB string) error {
	manager, err := config.NewManager(configDir)
	if err != nil {
		return err
	}

	presets, err := manager.ListConfigs()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Presets from %s\n", manager.Source())
	for _, info := range presets {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.ConfigID)
		printAnalysis(w, analyzePreset(info))
	}

	if recordsDB == "" {
		return nil
	}

	store, err := records.Open(recordsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.Summarize(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n=== Records (%s) ===\n", recordsDB)
	printSummaries(w, summaries)
	return nil
}

func analyzePreset(info *service.ConfigInfo) PresetAnalysis {
	cells := info.Width * info.Height * info.Depth
	a := PresetAnalysis{
		ConfigID:     info.ConfigID,
		Width:        info.Width,
		Height:       info.Height,
		Depth:        info.Depth,
		Mines:        info.MineCount,
		Cells:        cells,
		SafeCells:    cells - info.MineCount,
		MaxNeighbors: maxNeighbors(info.Width, info.Height, info.Depth),
	}
	if cells > 0 {
		a.Density = float64(info.MineCount) / float64(cells)
	}
	a.OpeningChance = math.Pow(1-a.Density, float64(a.MaxNeighbors))
	return a
}

// maxNeighbors is the neighbour count of the best-connected cell
func maxNeighbors(width, height, depth int) int {
	return min(width, 3)*min(height, 3)*min(depth, 3) - 1
}

func printAnalysis(w io.Writer, a PresetAnalysis) {
	fmt.Fprintf(w, "Grid: %d x %d x %d (%d cells)\n", a.Width, a.Height, a.Depth, a.Cells)
	fmt.Fprintf(w, "Mines: %d (density %.1f%%)\n", a.Mines, a.Density*100)
	fmt.Fprintf(w, "Safe cells: %d\n", a.SafeCells)
	fmt.Fprintf(w, "Max neighbours: %d\n", a.MaxNeighbors)
	fmt.Fprintf(w, "Opening chance: %.1f%%\n", a.OpeningChance*100)

	switch {
	case a.SafeCells < 1:
		fmt.Fprintf(w, "⚠️  CRITICAL: no safe cell, the mine count will be clamped\n")
	case a.Density > densityWarning:
		fmt.Fprintf(w, "⚠️  WARNING: density above %.0f%%, expect frequent guesses\n", densityWarning*100)
	default:
		fmt.Fprintf(w, "✅ Density is playable\n")
	}
}

func printSummaries(w io.Writer, summaries []records.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No finished games recorded")
		return
	}
	for _, s := range summaries {
		rate := 0.0
		if s.Played > 0 {
			rate = float64(s.Won) / float64(s.Played) * 100
		}
		best := "-"
		if s.BestMS > 0 {
			best = (time.Duration(s.BestMS) * time.Millisecond).String()
		}
		fmt.Fprintf(w, "%-16s played %4d  won %4d (%5.1f%%)  best %s\n", s.ConfigID, s.Played, s.Won, rate, best)
	}
}

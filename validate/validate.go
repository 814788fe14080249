// Command validate provides a small CLI that validates presets files
// (presets.yaml, presets.yml or presets.json). It checks:
//   - YAML/JSON structure
//   - Presence of at least one preset, each with a unique, non-empty ID
//   - Dimensions within bounds and a mine count that leaves a safe cell
//   - That the default, when set, names a declared or built-in preset
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/cubesweeper/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validatePresetFile loads and validates a single presets file.
func validatePresetFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	file, err := config.ParsePresetFile(filePath, data)
	if err != nil {
		result.fail("Invalid document: %v", err)
		return result
	}

	if len(file.Presets) == 0 {
		result.fail("Must declare at least 1 preset")
	}

	seen := make(map[string]bool, len(file.Presets))
	for i, entry := range file.Presets {
		id := strings.ToLower(strings.TrimSpace(entry.ID))
		if id == "" {
			result.fail("Preset %d has no id", i+1)
			continue
		}
		if seen[id] {
			result.fail("Duplicate preset id: %s", id)
		}
		seen[id] = true

		if err := config.ValidatePreset(entry.Preset); err != nil {
			result.fail("Preset %s: %v", id, err)
		}
	}

	if file.Default != "" && !seen[strings.ToLower(file.Default)] && !isBuiltin(file.Default) {
		result.fail("Default %q is not a declared or built-in preset", file.Default)
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Presets: %d", len(file.Presets)))
		for _, entry := range file.Presets {
			p := entry.Preset
			result.Errors = append(result.Errors, fmt.Sprintf("✓ %s: %dx%dx%d, %d mines (%.1f%%)",
				entry.ID, p.Width, p.Height, p.Depth, p.Mines, p.Density()*100))
		}
		if file.Default != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Default: %s", file.Default))
		}
	}

	return result
}

func isBuiltin(id string) bool {
	_, _, ok := config.ParseConfigID(strings.ToLower(id))
	return ok
}

// findPresetFiles returns the presets files present in dir
func findPresetFiles(dir string) []string {
	var files []string
	for _, name := range config.PresetFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	return files
}

// main validates the files given as arguments, or the presets files found in
// --config-dir, printing a concise report and exiting with non-zero status if
// any are invalid.
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "validate cubesweeper presets files",
		ArgsUsage: "[presets files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory searched when no file is given", Sources: cli.EnvVars("CONFIG_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				files = findPresetFiles(cmd.String("config-dir"))
			}
			if len(files) == 0 {
				return cli.Exit("no presets files found", 1)
			}
			if !report(files) {
				return cli.Exit("❌ Some presets files have errors", 1)
			}
			fmt.Println("✅ All presets files are valid!")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func report(files []string) bool {
	allValid := true
	for _, file := range files {
		result := validatePresetFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	return allValid
}

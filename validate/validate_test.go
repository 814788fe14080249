package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidatePresetFile_ValidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "presets.yaml", `
default: classic
mechanics:
  chord_click: false
presets:
  - id: classic
    name: Classic
    width: 9
    height: 9
    depth: 1
    mines: 10
  - id: cube
    name: Cube
    width: 4
    height: 4
    depth: 4
    mines: 8
`)

	result := validatePresetFile(path)
	if !result.Valid {
		t.Fatalf("Expected valid file, but got errors: %v", result.Errors)
	}
	if result.File != "presets.yaml" {
		t.Errorf("Expected file name presets.yaml, got %s", result.File)
	}
	if !hasMessage(result.Errors, "✓ Presets: 2") {
		t.Errorf("Expected preset count in %v", result.Errors)
	}
	if !hasMessage(result.Errors, "✓ cube: 4x4x4, 8 mines (12.5%)") {
		t.Errorf("Expected cube summary in %v", result.Errors)
	}
	if !hasMessage(result.Errors, "✓ Default: classic") {
		t.Errorf("Expected default in %v", result.Errors)
	}
}

func TestValidatePresetFile_ValidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "presets.json", `{
		"default": "expert-2d",
		"presets": [{"id": "tiny", "name": "Tiny", "width": 3, "height": 3, "depth": 1, "mines": 1}]
	}`)

	result := validatePresetFile(path)
	if !result.Valid {
		t.Errorf("Expected valid file, but got errors: %v", result.Errors)
	}
}

func TestValidatePresetFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "malformed",
			content:  "presets: [",
			expected: "Invalid document",
		},
		{
			name:     "empty",
			content:  "presets: []\n",
			expected: "at least 1 preset",
		},
		{
			name:     "missing id",
			content:  "presets:\n  - width: 3\n    height: 3\n    depth: 1\n    mines: 1\n",
			expected: "has no id",
		},
		{
			name:     "duplicate id",
			content:  "presets:\n  - {id: a, width: 3, height: 3, depth: 1, mines: 1}\n  - {id: A, width: 3, height: 3, depth: 1, mines: 1}\n",
			expected: "Duplicate preset id: a",
		},
		{
			name:     "too many mines",
			content:  "presets:\n  - {id: full, width: 2, height: 2, depth: 1, mines: 4}\n",
			expected: "must be less than cells",
		},
		{
			name:     "too deep",
			content:  "presets:\n  - {id: tower, width: 3, height: 3, depth: 51, mines: 4}\n",
			expected: "dimensions must be at most",
		},
		{
			name:     "zero width",
			content:  "presets:\n  - {id: flat, width: 0, height: 3, depth: 1, mines: 1}\n",
			expected: "dimensions must be at least",
		},
		{
			name:     "unknown default",
			content:  "default: nowhere\npresets:\n  - {id: a, width: 3, height: 3, depth: 1, mines: 1}\n",
			expected: `Default "nowhere"`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "presets.yaml", test.content)
			result := validatePresetFile(path)
			if result.Valid {
				t.Fatal("Expected invalid file")
			}
			if !hasMessage(result.Errors, test.expected) {
				t.Errorf("Expected error containing %q, got %v", test.expected, result.Errors)
			}
		})
	}
}

func TestValidatePresetFile_MissingFile(t *testing.T) {
	result := validatePresetFile(filepath.Join(t.TempDir(), "presets.yaml"))
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result.Errors, "Failed to read file") {
		t.Errorf("Unexpected errors: %v", result.Errors)
	}
}

func TestFindPresetFiles(t *testing.T) {
	dir := t.TempDir()
	if files := findPresetFiles(dir); len(files) != 0 {
		t.Errorf("Expected no files, got %v", files)
	}

	writeFile(t, dir, "presets.json", "{}")
	writeFile(t, dir, "presets.yaml", "presets: []\n")
	writeFile(t, dir, "other.yaml", "")

	files := findPresetFiles(dir)
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "presets.yaml" || filepath.Base(files[1]) != "presets.json" {
		t.Errorf("Unexpected order: %v", files)
	}
}

func TestIsBuiltin(t *testing.T) {
	for _, id := range []string{"beginner", "expert-3d", "Intermediate-2D"} {
		if !isBuiltin(id) {
			t.Errorf("Expected %s to be built-in", id)
		}
	}
	if isBuiltin("classic") {
		t.Error("classic should not be built-in")
	}
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "presets.yaml", "presets:\n  - {id: a, width: 3, height: 3, depth: 1, mines: 1}\n")
	invalid := writeFile(t, dir, "presets.json", `{"presets": []}`)

	if !report([]string{valid}) {
		t.Error("Expected valid report")
	}
	if report([]string{valid, invalid}) {
		t.Error("Expected invalid report")
	}
}

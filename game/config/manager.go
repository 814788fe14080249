package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// PresetFiles are the file names looked up in the config directory, in order
var PresetFiles = []string{"presets.yaml", "presets.yml", "presets.json"}

// PresetEntry is one preset declared in a presets file
type PresetEntry struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Preset      `yaml:",inline"`
}

// MechanicsFile mirrors service.Mechanics with optional fields
type MechanicsFile struct {
	FirstClickSafe *bool `json:"first_click_safe" yaml:"first_click_safe"`
	AutoReveal     *bool `json:"auto_reveal" yaml:"auto_reveal"`
	ChordClick     *bool `json:"chord_click" yaml:"chord_click"`
	FlagMode       *bool `json:"flag_mode" yaml:"flag_mode"`
}

// PresetFile is the document stored in presets.yaml or presets.json
type PresetFile struct {
	Default   string        `json:"default" yaml:"default"`
	Mechanics MechanicsFile `json:"mechanics" yaml:"mechanics"`
	Presets   []PresetEntry `json:"presets" yaml:"presets"`
}

// Manager handles game configuration loading and caching
type Manager struct {
	configDir   string
	source      string
	defaultID   string
	spatialHost bool
	mechanics   service.Mechanics
	presets     map[string]PresetEntry
	configs     map[string]*engine.GameConfig
	mu          sync.RWMutex
}

// Option customizes a Manager
type Option func(*Manager)

// WithSpatialHost sets whether requests without a mode get the 3D tables
func WithSpatialHost(spatial bool) Option {
	return func(m *Manager) {
		m.spatialHost = spatial
	}
}

// NewManager creates a new configuration manager. An empty configDir uses
// only the built-in presets.
func NewManager(configDir string, opts ...Option) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir:   configDir,
		spatialHost: true,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.RefreshCache(); err != nil {
		return nil, err
	}
	return m, nil
}

// RefreshCache rebuilds the preset table from the built-ins and the presets file
func (m *Manager) RefreshCache() error {
	presets := builtinPresets()
	mechanics := service.DefaultMechanics
	defaultID := ConfigID(Beginner, m.SpatialHost())

	file, source, err := readPresetFile(m.configDir)
	if err != nil {
		return err
	}
	if file != nil {
		for i, entry := range file.Presets {
			entry.ID = strings.ToLower(strings.TrimSpace(entry.ID))
			if entry.ID == "" {
				return fmt.Errorf("%w: %s: preset %d has no id", ErrInvalidConfig, source, i+1)
			}
			if err := ValidatePreset(entry.Preset); err != nil {
				return fmt.Errorf("%s: preset %q: %w", source, entry.ID, err)
			}
			if entry.Name == "" {
				entry.Name = entry.ID
			}
			presets[entry.ID] = entry
		}
		applyMechanics(&mechanics, file.Mechanics)
		if file.Default != "" {
			defaultID = strings.ToLower(file.Default)
			if _, ok := presets[defaultID]; !ok {
				return fmt.Errorf("%w: %s: default %q is not a preset", ErrConfigNotFound, source, file.Default)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets = presets
	m.mechanics = mechanics
	m.defaultID = defaultID
	m.source = source
	m.configs = make(map[string]*engine.GameConfig)
	return nil
}

// LoadConfig returns the game configuration of a preset id. Bare levels such
// as "expert" follow the host mode.
func (m *Manager) LoadConfig(id string) (*engine.GameConfig, error) {
	key := m.normalizeID(id)

	m.mu.RLock()
	if config, exists := m.configs[key]; exists {
		m.mu.RUnlock()
		return copyConfig(config), nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if config, exists := m.configs[key]; exists {
		return copyConfig(config), nil
	}

	entry, ok := m.presets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, id)
	}

	config := buildConfig(entry, m.mechanics)
	if err := engine.ValidateGameConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[key] = config
	return copyConfig(config), nil
}

// Resolve returns the game configuration of a level in the requested mode
func (m *Manager) Resolve(level Difficulty, spatial bool) (*engine.GameConfig, error) {
	return m.LoadConfig(ConfigID(level, spatial))
}

// ResolveID maps difficulty and mode parameters to a preset id
func (m *Manager) ResolveID(difficulty, mode string) string {
	return ConfigID(ParseDifficulty(difficulty), UseSpatial(mode, m.SpatialHost()))
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configs := make([]*service.ConfigInfo, 0, len(m.presets))
	for id, entry := range m.presets {
		info := &service.ConfigInfo{
			ConfigID:    id,
			Name:        entry.Name,
			Description: entry.Description,
			Width:       entry.Width,
			Height:      entry.Height,
			Depth:       entry.Depth,
			MineCount:   entry.Mines,
			Cells:       entry.Cells(),
			Density:     entry.Density(),
			Default:     id == m.defaultID,
		}
		if level, spatial, ok := ParseConfigID(id); ok && strings.Contains(id, "-") {
			info.Difficulty = string(level)
			info.Mode = modeName(spatial)
		}
		configs = append(configs, info)
	}

	sort.Slice(configs, func(i, j int) bool {
		if configs[i].Cells != configs[j].Cells {
			return configs[i].Cells < configs[j].Cells
		}
		return configs[i].ConfigID < configs[j].ConfigID
	})
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	id := m.defaultID
	m.mu.RUnlock()

	config, err := m.LoadConfig(id)
	if err != nil {
		return buildConfig(PresetEntry{ID: id, Name: id, Preset: Resolve(Beginner, true)}, m.Mechanics())
	}
	return config
}

// SetDefault sets the default configuration by id
func (m *Manager) SetDefault(id string) error {
	key := m.normalizeID(id)
	if _, err := m.LoadConfig(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = key
	return nil
}

// Mechanics returns the gameplay toggles for new sessions
func (m *Manager) Mechanics() service.Mechanics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mechanics
}

// SpatialHost reports whether bare levels resolve to 3D presets
func (m *Manager) SpatialHost() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spatialHost
}

// Source returns the presets file in use, or "" for built-ins only
func (m *Manager) Source() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

// Custom builds a configuration for arbitrary dimensions using the current mechanics
func (m *Manager) Custom(width, height, depth, mines int) (*engine.GameConfig, error) {
	p := Preset{Width: width, Height: height, Depth: depth, Mines: mines}
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}
	return buildConfig(PresetEntry{ID: "custom", Name: "Custom " + p.String(), Preset: p}, m.Mechanics()), nil
}

// ValidatePreset checks dimensions and mine count of a preset
func ValidatePreset(p Preset) error {
	if p.Width < engine.MinDimension || p.Height < engine.MinDimension || p.Depth < engine.MinDimension {
		return fmt.Errorf("%w: dimensions must be at least %d, got %dx%dx%d",
			ErrInvalidConfig, engine.MinDimension, p.Width, p.Height, p.Depth)
	}
	if p.Width > engine.MaxDimension || p.Height > engine.MaxDimension || p.Depth > engine.MaxDimension {
		return fmt.Errorf("%w: dimensions must be at most %d, got %dx%dx%d",
			ErrInvalidConfig, engine.MaxDimension, p.Width, p.Height, p.Depth)
	}
	if p.Mines < engine.MinMines {
		return fmt.Errorf("%w: mines must be at least %d, got %d", ErrInvalidConfig, engine.MinMines, p.Mines)
	}
	if p.Mines >= p.Cells() {
		return fmt.Errorf("%w: mines (%d) must be less than cells (%d)", ErrInvalidConfig, p.Mines, p.Cells())
	}
	return nil
}

func (m *Manager) normalizeID(id string) string {
	key := strings.ToLower(strings.TrimSpace(id))
	m.mu.RLock()
	_, exact := m.presets[key]
	spatial := m.spatialHost
	m.mu.RUnlock()
	if exact {
		return key
	}
	if level, _, ok := ParseConfigID(key); ok && !strings.Contains(key, "-") {
		return ConfigID(level, spatial)
	}
	return key
}

func buildConfig(entry PresetEntry, mech service.Mechanics) *engine.GameConfig {
	return &engine.GameConfig{
		Name:           entry.ID,
		Description:    entry.Name,
		Width:          entry.Width,
		Height:         entry.Height,
		Depth:          entry.Depth,
		MineCount:      entry.Mines,
		FirstClickSafe: mech.FirstClickSafe,
		AutoReveal:     mech.AutoReveal,
	}
}

func builtinPresets() map[string]PresetEntry {
	presets := make(map[string]PresetEntry, 2*len(Difficulties))
	for _, spatial := range []bool{true, false} {
		for _, level := range Difficulties {
			id := ConfigID(level, spatial)
			p := Resolve(level, spatial)
			presets[id] = PresetEntry{
				ID:          id,
				Name:        fmt.Sprintf("%s (%s)", titleCase(string(level)), strings.ToUpper(modeName(spatial))),
				Description: fmt.Sprintf("%dx%dx%d grid with %d mines", p.Width, p.Height, p.Depth, p.Mines),
				Preset:      p,
			}
		}
	}
	return presets
}

func readPresetFile(dir string) (*PresetFile, string, error) {
	if dir == "" {
		return nil, "", nil
	}
	for _, name := range PresetFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read presets file: %w", err)
		}

		file, err := ParsePresetFile(name, data)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		return file, path, nil
	}
	return nil, "", nil
}

// ParsePresetFile decodes a presets document, choosing the format by extension
func ParsePresetFile(name string, data []byte) (*PresetFile, error) {
	var file PresetFile
	var err error
	if strings.HasSuffix(name, ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse presets: %v", ErrInvalidConfig, err)
	}
	return &file, nil
}

func applyMechanics(dst *service.Mechanics, src MechanicsFile) {
	if src.FirstClickSafe != nil {
		dst.FirstClickSafe = *src.FirstClickSafe
	}
	if src.AutoReveal != nil {
		dst.AutoReveal = *src.AutoReveal
	}
	if src.ChordClick != nil {
		dst.ChordClick = *src.ChordClick
	}
	if src.FlagMode != nil {
		dst.FlagMode = *src.FlagMode
	}
}

func copyConfig(c *engine.GameConfig) *engine.GameConfig {
	cp := *c
	return &cp
}

func modeName(spatial bool) string {
	if spatial {
		return Mode3D
	}
	return Mode2D
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

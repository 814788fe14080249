package service

import (
	"errors"
	"time"

	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrChordDisabled   = errors.New("chord click is disabled")
	ErrInvalidIndex    = errors.New("cell index out of range")
	ErrGameOver        = errors.New("game is over")
)

// Event types
const (
	EventReveal     = "reveal"
	EventAutoReveal = "auto_reveal"
	EventFlag       = "flag"
	EventUnflag     = "unflag"
	EventChord      = "chord"
	EventGameOver   = "game_over"
	EventVictory    = "victory"
	EventReset      = "reset"
	EventRejected   = "rejected"
)

// Action names used in responses and metrics
const (
	ActionReveal = "reveal"
	ActionFlag   = "flag"
	ActionChord  = "chord"
	ActionReset  = "reset"
)

// Mechanics are the gameplay toggles applied to new sessions
type Mechanics struct {
	FirstClickSafe bool `json:"first_click_safe"`
	AutoReveal     bool `json:"auto_reveal"`
	ChordClick     bool `json:"chord_click"`
	FlagMode       bool `json:"flag_mode"`
}

// DefaultMechanics enables every assist except flag mode
var DefaultMechanics = Mechanics{
	FirstClickSafe: true,
	AutoReveal:     true,
	ChordClick:     true,
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	FlagMode       bool               `json:"flag_mode"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
	Stats          engine.Stats       `json:"stats"`
}

// ListOptions controls session listing
type ListOptions struct {
	Status string `json:"status"` // "playing", "won", "lost" or empty for all
	SortBy string `json:"sort_by"` // "created" or "accessed"
	Order  string `json:"order"`   // "asc" or "desc"
	Limit  int    `json:"limit"`
}

// ActionResponse contains the result of a reveal, flag or chord
type ActionResponse struct {
	Action    string              `json:"action"`
	Index     int                 `json:"index"`
	Success   bool                `json:"success"`
	Reason    engine.RejectReason `json:"reason,omitempty"`
	GameOver  bool                `json:"game_over"`
	Won       bool                `json:"won"`
	Revealed  []int               `json:"revealed,omitempty"`
	Message   string              `json:"message"`
	GameState *engine.GameState   `json:"game_state"`
	Stats     engine.Stats        `json:"stats"`
	Events    []GameEvent         `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Index     int       `json:"index"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CellInfo describes a cell as the player sees it
type CellInfo struct {
	Index     int                `json:"index"`
	X         int                `json:"x"`
	Y         int                `json:"y"`
	Z         int                `json:"z"`
	Variant   engine.CellVariant `json:"variant"`
	Revealed  bool               `json:"revealed"`
	Flagged   bool               `json:"flagged"`
	Number    int                `json:"number,omitempty"`
	Neighbors []int              `json:"neighbors"`
}

// Hint is a suggested next move
type Hint struct {
	Action     string  `json:"action"` // "reveal" or "flag"
	Index      int     `json:"index"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Z          int     `json:"z"`
	Guess      bool    `json:"guess"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	ConfigID    string  `json:"config_id"` // The identifier to use for session creation
	Name        string  `json:"name"`      // Display name
	Description string  `json:"description"`
	Difficulty  string  `json:"difficulty,omitempty"`
	Mode        string  `json:"mode,omitempty"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Depth       int     `json:"depth"`
	MineCount   int     `json:"mine_count"`
	Cells       int     `json:"cells"`
	Density     float64 `json:"density"`
	Default     bool    `json:"default,omitempty"`
}

// Record is a finished game
type Record struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ConfigID   string    `json:"config_id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Depth      int       `json:"depth"`
	MineCount  int       `json:"mine_count"`
	Won        bool      `json:"won"`
	Revealed   int       `json:"revealed"`
	Flags      int       `json:"flags"`
	Moves      int       `json:"moves"`
	DurationMS int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

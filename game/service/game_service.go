package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configID string) (*SessionInfo, error)
	CreateCustomSession(ctx context.Context, width, height, depth, mines int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Reveal(ctx context.Context, sessionID string, index int) (*ActionResponse, error)
	Click(ctx context.Context, sessionID string, index int) (*ActionResponse, error)
	ToggleFlag(ctx context.Context, sessionID string, index int) (*ActionResponse, error)
	Chord(ctx context.Context, sessionID string, index int) (*ActionResponse, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	SetFlagMode(ctx context.Context, sessionID string, enabled bool) (*SessionInfo, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetStats(ctx context.Context, sessionID string) (*engine.Stats, error)
	DescribeCell(ctx context.Context, sessionID string, index int) (*CellInfo, error)
	Hint(ctx context.Context, sessionID string) (*Hint, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configID string) (*engine.GameConfig, error)
	ResolveConfig(ctx context.Context, difficulty, mode string) (*ConfigInfo, error)

	// Records
	ListRecords(ctx context.Context, configID string, limit int) ([]*Record, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(id string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	Custom(width, height, depth, mines int) (*engine.GameConfig, error)
	Mechanics() Mechanics
	ResolveID(difficulty, mode string) string
}

// RecordStore keeps finished games
type RecordStore interface {
	Save(ctx context.Context, record *Record) error
	Top(ctx context.Context, configID string, limit int) ([]*Record, error)
	Recent(ctx context.Context, limit int) ([]*Record, error)
}

// EventPublisher delivers game events to connected clients
type EventPublisher interface {
	BroadcastEvent(sessionID string, event GameEvent)
}

// Metrics observes service activity
type Metrics interface {
	SessionCreated(configID string)
	SessionDeleted()
	ActionPerformed(action string, success bool)
	GameFinished(configID string, won bool, elapsed time.Duration)
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	FlagMode       bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

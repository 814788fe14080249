package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/solver"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	records   RecordStore
	publisher EventPublisher
	metrics   Metrics
	logger    logrus.FieldLogger
	solver    *solver.Solver
	now       func() time.Time
	mu        sync.RWMutex
}

// Option customizes the game service
type Option func(*gameServiceImpl)

// WithRecords stores finished games
func WithRecords(records RecordStore) Option {
	return func(s *gameServiceImpl) {
		s.records = records
	}
}

// WithPublisher delivers game events to connected clients
func WithPublisher(publisher EventPublisher) Option {
	return func(s *gameServiceImpl) {
		s.publisher = publisher
	}
}

// WithMetrics observes sessions, actions and finished games
func WithMetrics(metrics Metrics) Option {
	return func(s *gameServiceImpl) {
		s.metrics = metrics
	}
}

// WithLogger sets the service logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *gameServiceImpl) {
		s.logger = logger
	}
}

// WithSolverSeed makes hints reproducible
func WithSolverSeed(seed uint64) Option {
	return func(s *gameServiceImpl) {
		s.solver = solver.New(seed)
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:  sessions,
		configs:   configs,
		publisher: nopPublisher{},
		metrics:   nopMetrics{},
		logger:    logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.solver == nil {
		s.solver = solver.New(uint64(time.Now().UnixNano()))
	}
	return s
}

// CreateSession creates a new game session from a named configuration
func (s *gameServiceImpl) CreateSession(ctx context.Context, configID string) (*SessionInfo, error) {
	var config *engine.GameConfig
	if configID != "" {
		var err error
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configID, s.configIDs())
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	return s.startSession(config)
}

// CreateCustomSession creates a session with explicit dimensions
func (s *gameServiceImpl) CreateCustomSession(ctx context.Context, width, height, depth, mines int) (*SessionInfo, error) {
	config, err := s.configs.Custom(width, height, depth, mines)
	if err != nil {
		return nil, err
	}
	return s.startSession(config)
}

func (s *gameServiceImpl) startSession(config *engine.GameConfig) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.FlagMode = s.configs.Mechanics().FlagMode
	s.persist(sess.ID, "create")

	s.metrics.SessionCreated(config.Name)
	s.logger.WithFields(logrus.Fields{
		"session": sess.ID,
		"config":  config.Name,
		"grid":    fmt.Sprintf("%dx%dx%d", config.Width, config.Height, config.Depth),
		"mines":   config.MineCount,
	}).Info("session created")

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information. It touches LastAccessedAt, so
// it holds the write lock like every other method that does.
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(sess), nil
}

// ListSessions returns active sessions filtered and ordered by opts
func (s *gameServiceImpl) ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SessionInfo, 0)
	for _, sess := range s.sessions.List() {
		info := s.sessionInfo(sess)
		if opts.Status != "" && string(info.GameState.GameStatus) != opts.Status {
			continue
		}
		result = append(result, info)
	}

	key := func(info *SessionInfo) time.Time { return info.CreatedAt }
	if opts.SortBy == "accessed" {
		key = func(info *SessionInfo) time.Time { return info.LastAccessedAt }
	}
	desc := opts.Order != "asc"
	sort.SliceStable(result, func(i, j int) bool {
		a, b := key(result[i]), key(result[j])
		if a.Equal(b) {
			return result[i].ID < result[j].ID
		}
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.metrics.SessionDeleted()
	s.logger.WithField("session", sessionID).Info("session deleted")
	return nil
}

// Reveal uncovers a cell
func (s *gameServiceImpl) Reveal(ctx context.Context, sessionID string, index int) (*ActionResponse, error) {
	return s.act(ctx, sessionID, ActionReveal, index, func(e *engine.GameEngine) engine.ActionResult {
		return e.RevealCell(index)
	})
}

// ToggleFlag places or removes a flag
func (s *gameServiceImpl) ToggleFlag(ctx context.Context, sessionID string, index int) (*ActionResponse, error) {
	return s.act(ctx, sessionID, ActionFlag, index, func(e *engine.GameEngine) engine.ActionResult {
		return e.ToggleFlag(index)
	})
}

// Chord reveals around a satisfied number when chord clicks are enabled
func (s *gameServiceImpl) Chord(ctx context.Context, sessionID string, index int) (*ActionResponse, error) {
	if !s.configs.Mechanics().ChordClick {
		return nil, ErrChordDisabled
	}
	return s.act(ctx, sessionID, ActionChord, index, func(e *engine.GameEngine) engine.ActionResult {
		return e.ChordClick(index)
	})
}

// Click flags in flag mode and reveals otherwise
func (s *gameServiceImpl) Click(ctx context.Context, sessionID string, index int) (*ActionResponse, error) {
	s.mu.RLock()
	sess, err := s.sessions.Get(sessionID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if sess.FlagMode {
		return s.ToggleFlag(ctx, sessionID, index)
	}
	return s.Reveal(ctx, sessionID, index)
}

// act runs one engine action and publishes what it changed
func (s *gameServiceImpl) act(ctx context.Context, sessionID, action string, index int, do func(*engine.GameEngine) engine.ActionResult) (*ActionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := do(sess.Engine)
	state := sess.Engine.GetGameState()
	stats := state.Stats(s.now())

	resp := &ActionResponse{
		Action:    action,
		Index:     index,
		Success:   result.Success,
		Reason:    result.Reason,
		GameOver:  result.GameOver,
		Won:       result.Won,
		Revealed:  result.Revealed,
		Message:   state.Message,
		GameState: state.PlayerView(),
		Stats:     stats,
		Events:    s.actionEvents(sessionID, action, index, result, state),
	}

	s.metrics.ActionPerformed(action, result.Success)
	if !result.Success {
		s.logger.WithFields(logrus.Fields{
			"session": sessionID,
			"action":  action,
			"index":   index,
			"reason":  result.Reason,
		}).Debug("action rejected")
	}

	if result.GameOver {
		s.finishGame(ctx, sess, state, stats)
	}
	for _, event := range resp.Events {
		s.publisher.BroadcastEvent(sessionID, event)
	}

	if result.Success {
		s.persist(sessionID, action)
	}
	return resp, nil
}

func (s *gameServiceImpl) actionEvents(sessionID, action string, index int, result engine.ActionResult, state *engine.GameState) []GameEvent {
	var events []GameEvent
	add := func(eventType, message string, count int) {
		events = append(events, s.newEvent(sessionID, eventType, message, index, count))
	}

	if !result.Success {
		add(EventRejected, fmt.Sprintf("%s rejected: %s", action, result.Reason), 0)
		return events
	}

	switch action {
	case ActionReveal:
		add(EventReveal, fmt.Sprintf("Revealed cell %d", index), 1)
		if n := len(result.Revealed) - 1; n > 0 {
			add(EventAutoReveal, fmt.Sprintf("Auto-revealed %d cells", n), n)
		}
	case ActionFlag:
		if state.Cells[index].IsFlagged {
			add(EventFlag, fmt.Sprintf("Flagged cell %d (%d/%d)", index, state.FlagCount, state.MineCount), state.FlagCount)
		} else {
			add(EventUnflag, fmt.Sprintf("Unflagged cell %d (%d/%d)", index, state.FlagCount, state.MineCount), state.FlagCount)
		}
	case ActionChord:
		add(EventChord, fmt.Sprintf("Chord on cell %d revealed %d cells", index, len(result.Revealed)), len(result.Revealed))
	}

	if result.GameOver {
		if result.Won {
			add(EventVictory, state.Message, state.RevealedCount)
		} else {
			add(EventGameOver, state.Message, state.RevealedCount)
		}
	}
	return events
}

func (s *gameServiceImpl) newEvent(sessionID, eventType, message string, index, count int) GameEvent {
	return GameEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		SessionID: sessionID,
		Message:   message,
		Index:     index,
		Count:     count,
		Timestamp: s.now(),
	}
}

// finishGame records a game that just ended
func (s *gameServiceImpl) finishGame(ctx context.Context, sess *Session, state *engine.GameState, stats engine.Stats) {
	won := state.GameStatus == engine.StatusWon
	finished := s.now()
	if state.EndTime != nil {
		finished = *state.EndTime
	}

	s.metrics.GameFinished(sess.Config.Name, won, stats.Elapsed())

	log := s.logger.WithFields(logrus.Fields{
		"session":  sess.ID,
		"config":   sess.Config.Name,
		"won":      won,
		"moves":    state.Moves,
		"duration": stats.Elapsed(),
	})
	log.Info("game finished")

	if s.records == nil {
		return
	}
	record := &Record{
		SessionID:  sess.ID,
		ConfigID:   sess.Config.Name,
		Width:      state.Width,
		Height:     state.Height,
		Depth:      state.Depth,
		MineCount:  state.MineCount,
		Won:        won,
		Revealed:   state.RevealedCount,
		Flags:      state.FlagCount,
		Moves:      state.Moves,
		DurationMS: stats.ElapsedTime,
		FinishedAt: finished,
	}
	if err := s.records.Save(ctx, record); err != nil {
		log.WithError(err).Warn("failed to save game record")
	}
}

// Reset starts a fresh game in the session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	state := sess.Engine.Reset()
	s.metrics.ActionPerformed(ActionReset, true)
	s.publisher.BroadcastEvent(sessionID, s.newEvent(sessionID, EventReset, state.Message, -1, 0))
	s.persist(sessionID, ActionReset)

	return state.PlayerView(), nil
}

// SetFlagMode switches what Click does for the session
func (s *gameServiceImpl) SetFlagMode(ctx context.Context, sessionID string, enabled bool) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	sess.FlagMode = enabled
	s.persist(sessionID, "flag mode")
	return s.sessionInfo(sess), nil
}

// GetGameState retrieves the current game state as the player sees it
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	return sess.Engine.GetGameState().PlayerView(), nil
}

// GetStats returns progress and timing for the session
func (s *gameServiceImpl) GetStats(ctx context.Context, sessionID string) (*engine.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	stats := sess.Engine.GetGameState().Stats(s.now())
	return &stats, nil
}

// DescribeCell returns the visible details of one cell
func (s *gameServiceImpl) DescribeCell(ctx context.Context, sessionID string, index int) (*CellInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	view := sess.Engine.GetGameState().PlayerView()
	if !view.ValidIndex(index) {
		return nil, fmt.Errorf("%w: %d (grid has %d cells)", ErrInvalidIndex, index, view.Size())
	}

	cell := view.Cells[index]
	info := &CellInfo{
		Index:     index,
		X:         cell.X,
		Y:         cell.Y,
		Z:         cell.Z,
		Variant:   engine.VariantOf(cell),
		Revealed:  cell.IsRevealed,
		Flagged:   cell.IsFlagged,
		Neighbors: view.Neighbors(index),
	}
	if cell.IsRevealed && !cell.IsMine {
		info.Number = cell.NeighborMineCount
	}
	return info, nil
}

// Hint suggests the next move from the visible board
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*Hint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	move := s.solver.NextMove(sess.Engine.GetGameState().PlayerView())
	if move == nil {
		return nil, ErrGameOver
	}
	return &Hint{
		Action:     string(move.Type),
		Index:      move.Index,
		X:          move.X,
		Y:          move.Y,
		Z:          move.Z,
		Guess:      move.IsGuess,
		Strategy:   move.Strategy,
		Confidence: move.Confidence,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configID string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configID)
}

// ResolveConfig maps a difficulty and display mode to a configuration
func (s *gameServiceImpl) ResolveConfig(ctx context.Context, difficulty, mode string) (*ConfigInfo, error) {
	id := s.configs.ResolveID(difficulty, mode)
	configs, err := s.configs.ListConfigs()
	if err != nil {
		return nil, err
	}
	for _, info := range configs {
		if info.ConfigID == id {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
}

// ListRecords returns the fastest wins for a configuration, or the most
// recent games when configID is empty
func (s *gameServiceImpl) ListRecords(ctx context.Context, configID string, limit int) ([]*Record, error) {
	if s.records == nil {
		return []*Record{}, nil
	}
	if configID == "" {
		return s.records.Recent(ctx, limit)
	}
	return s.records.Top(ctx, configID, limit)
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	state := sess.Engine.GetGameState()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.Config.Name,
		FlagMode:       sess.FlagMode,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      state.PlayerView(),
		GameConfig:     sess.Config,
		Stats:          state.Stats(s.now()),
	}
}

func (s *gameServiceImpl) configIDs() []string {
	configs, err := s.configs.ListConfigs()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(configs))
	for _, cfg := range configs {
		ids = append(ids, cfg.ConfigID)
	}
	return ids
}

// persist auto-saves a session; failures are logged, not returned
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.WithFields(logrus.Fields{
			"session": sessionID,
			"after":   after,
		}).WithError(err).Warn("failed to persist session")
	}
}

type nopPublisher struct{}

func (nopPublisher) BroadcastEvent(string, GameEvent) {}

type nopMetrics struct{}

func (nopMetrics) SessionCreated(string)                    {}
func (nopMetrics) SessionDeleted()                          {}
func (nopMetrics) ActionPerformed(string, bool)             {}
func (nopMetrics) GameFinished(string, bool, time.Duration) {}

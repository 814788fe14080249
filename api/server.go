package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
	"github.com/wricardo/mcp-training/cubesweeper/metrics"
	"github.com/wricardo/mcp-training/cubesweeper/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service  service.GameService
	hub      *websocket.Hub
	router   *mux.Router
	logger   logrus.FieldLogger
	recorder *metrics.Recorder
	gatherer prometheus.Gatherer
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics counts requests with rec and serves gatherer on /metrics
func WithMetrics(rec *metrics.Recorder, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.recorder = rec
		s.gatherer = gatherer
	}
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	if s.recorder != nil {
		s.router.Use(s.recorder.Middleware)
	}

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/stats", s.handleGetStats).Methods("GET")
	api.HandleFunc("/sessions/{id}/hint", s.handleHint).Methods("GET")
	api.HandleFunc("/sessions/{id}/cells/{index:[0-9]+}", s.handleDescribeCell).Methods("GET")
	api.HandleFunc("/sessions/{id}/reveal", s.handleAction(service.ActionReveal)).Methods("POST")
	api.HandleFunc("/sessions/{id}/flag", s.handleAction(service.ActionFlag)).Methods("POST")
	api.HandleFunc("/sessions/{id}/chord", s.handleAction(service.ActionChord)).Methods("POST")
	api.HandleFunc("/sessions/{id}/click", s.handleAction("click")).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/flag-mode", s.handleFlagMode).Methods("PUT")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs/{id}", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/resolve", s.handleResolve).Methods("GET")

	// Finished games
	api.HandleFunc("/records", s.handleListRecords).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service sentinel errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidConfig), errors.Is(err, service.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrChordDisabled), errors.Is(err, service.ErrGameOver):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body; an empty body is not an error
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) broadcast(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Session Handlers

type createSessionRequest struct {
	ConfigID string `json:"config_id,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	Mines    int    `json:"mines,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		info *service.SessionInfo
		err  error
	)
	query := r.URL.Query()

	switch {
	case req.Width > 0 || req.Height > 0 || req.Depth > 0 || req.Mines > 0:
		info, err = s.service.CreateCustomSession(r.Context(), req.Width, req.Height, req.Depth, req.Mines)
	case req.ConfigID == "" && (query.Get("difficulty") != "" || query.Get("mode") != ""):
		var cfg *service.ConfigInfo
		cfg, err = s.service.ResolveConfig(r.Context(), query.Get("difficulty"), query.Get("mode"))
		if err == nil {
			info, err = s.service.CreateSession(r.Context(), cfg.ConfigID)
		}
	default:
		info, err = s.service.CreateSession(r.Context(), req.ConfigID)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ListOptions{
		Status: query.Get("status"),
		SortBy: query.Get("sort"),
		Order:  query.Get("order"),
	}
	if opts.SortBy == "" {
		opts.SortBy = "accessed"
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	sessions, err := s.service.ListSessions(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
		"sort":     opts.SortBy,
		"order":    opts.Order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	hint, err := s.service.Hint(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, hint)
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid cell index")
		return
	}

	cell, err := s.service.DescribeCell(r.Context(), vars["id"], index)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

// cellRequest addresses a cell by index or by coordinates
type cellRequest struct {
	Index *int `json:"index,omitempty"`
	X     *int `json:"x,omitempty"`
	Y     *int `json:"y,omitempty"`
	Z     *int `json:"z,omitempty"`
}

// resolveIndex returns the requested index, converting coordinates with the
// session's dimensions. A missing z means layer 0.
func (s *Server) resolveIndex(r *http.Request, sessionID string, req cellRequest) (int, error) {
	if req.Index != nil {
		return *req.Index, nil
	}
	if req.X == nil || req.Y == nil {
		return 0, fmt.Errorf("%w: provide index or x,y[,z]", service.ErrInvalidIndex)
	}
	z := 0
	if req.Z != nil {
		z = *req.Z
	}

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		return 0, err
	}
	index, ok := state.Index(*req.X, *req.Y, z)
	if !ok {
		return 0, fmt.Errorf("%w: (%d,%d,%d) outside %dx%dx%d", service.ErrInvalidIndex, *req.X, *req.Y, z, state.Width, state.Height, state.Depth)
	}
	return index, nil
}

func (s *Server) handleAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["id"]

		var req cellRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		index, err := s.resolveIndex(r, sessionID, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		var resp *service.ActionResponse
		switch action {
		case service.ActionReveal:
			resp, err = s.service.Reveal(r.Context(), sessionID, index)
		case service.ActionFlag:
			resp, err = s.service.ToggleFlag(r.Context(), sessionID, index)
		case service.ActionChord:
			resp, err = s.service.Chord(r.Context(), sessionID, index)
		default:
			resp, err = s.service.Click(r.Context(), sessionID, index)
		}
		if err != nil {
			respondServiceError(w, err)
			return
		}

		if resp.Success {
			s.broadcast(sessionID, resp.GameState)
		}

		s.logger.WithFields(logrus.Fields{
			"session":  sessionID,
			"action":   resp.Action,
			"index":    index,
			"success":  resp.Success,
			"reason":   resp.Reason,
			"revealed": len(resp.Revealed),
			"status":   resp.GameState.GameStatus,
		}).Info("action")

		respondJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, state)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleFlagMode(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil || req.Enabled == nil {
		respondError(w, http.StatusBadRequest, `Request body must be {"enabled": true|false}`)
		return
	}

	info, err := s.service.SetFlagMode(r.Context(), sessionID, *req.Enabled)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configID := strings.TrimSuffix(mux.Vars(r)["id"], ".json")

	config, err := s.service.LoadConfig(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	info, err := s.service.ResolveConfig(r.Context(), query.Get("difficulty"), query.Get("mode"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = l
	}

	records, err := s.service.ListRecords(r.Context(), query.Get("config"), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

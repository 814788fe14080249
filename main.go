// Command cubesweeper starts the cube minesweeper server.
//
// It supports two commands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, /metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Every flag can also be set from the environment (or a .env file), and the
// server can optionally publish itself through an ngrok tunnel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/cubesweeper/api"
	"github.com/wricardo/mcp-training/cubesweeper/game/config"
	"github.com/wricardo/mcp-training/cubesweeper/game/records"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
	"github.com/wricardo/mcp-training/cubesweeper/game/session"
	"github.com/wricardo/mcp-training/cubesweeper/internal/logger"
	"github.com/wricardo/mcp-training/cubesweeper/metrics"
	"github.com/wricardo/mcp-training/cubesweeper/transport/mcp"
	"github.com/wricardo/mcp-training/cubesweeper/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Cubesweeper Server"
)

const (
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// options is the resolved command line
type options struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	RecordsDB   string
	LogLevel    string
	LogJSON     bool
	Spatial     bool
	SessionTTL  time.Duration
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("error loading .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatal("cubesweeper failed")
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "cubesweeper",
		Usage:   "3D minesweeper over REST, WebSocket and MCP",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Usage: "directory containing a presets.yaml or presets.json file", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "records-db", Value: "records.db", Usage: "SQLite file for finished games (empty disables records)", Sources: cli.EnvVars("RECORDS_DB")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "log-json", Usage: "log as JSON", Sources: cli.EnvVars("LOG_JSON")},
			&cli.BoolFlag{Name: "spatial", Value: true, Usage: "resolve bare difficulty levels to 3D presets", Sources: cli.EnvVars("SPATIAL_HOST")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "remove sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server with API, WebSocket, metrics and MCP endpoint",
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp"},
				Usage:   "run an MCP stdio server backed by a running or internal HTTP server",
				Action:  runMCP,
			},
		},
	}
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Host:        cmd.String("host"),
		Port:        int(cmd.Int("port")),
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		RecordsDB:   cmd.String("records-db"),
		LogLevel:    cmd.String("log-level"),
		LogJSON:     cmd.Bool("log-json"),
		Spatial:     cmd.Bool("spatial"),
		SessionTTL:  cmd.Duration("session-ttl"),
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}
}

// services holds everything the transports are built from
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence *session.FilePersistence
	records     *records.Store
	metrics     *metrics.Recorder
	registry    *prometheus.Registry
	hub         *websocket.Hub
	logger      *logrus.Logger
}

// initializeServices wires configuration, persistence, records, metrics and
// the game service. Background routines are started separately by start.
func initializeServices(opts options, log *logrus.Logger) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir, config.WithSpatialHost(opts.Spatial))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(opts.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence,
		session.WithLogger(log.WithField("component", "session")))
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.WithError(err).Warn("failed to load persisted sessions")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)
	recorder.TrackActiveSessions(sessionManager.Count)

	hub := websocket.NewHub(log.WithField("component", "websocket"))

	svcOpts := []service.Option{
		service.WithPublisher(hub),
		service.WithMetrics(recorder),
		service.WithLogger(log.WithField("component", "service")),
	}

	var store *records.Store
	if opts.RecordsDB != "" {
		store, err = records.Open(opts.RecordsDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open records database: %w", err)
		}
		svcOpts = append(svcOpts, service.WithRecords(store))
	}

	gameService := service.NewGameService(sessionManager, configManager, svcOpts...)
	hub.Attach(gameService)

	log.WithFields(logrus.Fields{
		"presets":  configManager.Source(),
		"sessions": sessionManager.Count(),
		"records":  opts.RecordsDB,
		"spatial":  opts.Spatial,
	}).Info("services initialized")

	return &services{
		game:        gameService,
		sessions:    sessionManager,
		persistence: persistence,
		records:     store,
		metrics:     recorder,
		registry:    registry,
		hub:         hub,
		logger:      log,
	}, nil
}

// start runs the hub and the maintenance routines until ctx is done
func (s *services) start(ctx context.Context, opts options) {
	go s.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, s.sessions, cleanupInterval, opts.SessionTTL, s.logger)
	go filesystemSyncRoutine(ctx, s.sessions, s.persistence, syncInterval, s.logger)
}

// Close flushes sessions to disk and closes the records database
func (s *services) Close() error {
	var errs []error
	if err := s.sessions.SaveAllSessions(); err != nil {
		errs = append(errs, fmt.Errorf("save sessions: %w", err))
	}
	if s.records != nil {
		if err := s.records.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close records: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *services) apiServer() *api.Server {
	return api.NewServer(s.game, s.hub,
		api.WithLogger(s.logger.WithField("component", "api")),
		api.WithMetrics(s.metrics, s.registry),
	)
}

func setup(cmd *cli.Command) (options, *services, error) {
	opts := optionsFrom(cmd)
	log, err := logger.New(opts.LogLevel, opts.LogJSON)
	if err != nil {
		return opts, nil, err
	}
	svcs, err := initializeServices(opts, log)
	if err != nil {
		return opts, nil, err
	}
	return opts, svcs, nil
}

// runServe starts the HTTP server with REST API, WebSocket hub, metrics and
// an /mcp proxy endpoint, plus an ngrok tunnel when enabled.
func runServe(ctx context.Context, cmd *cli.Command) error {
	opts, svcs, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			svcs.logger.WithError(err).Error("shutdown cleanup failed")
		}
	}()
	log := svcs.logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	svcs.start(ctx, opts)

	addr := opts.addr()
	mcpClient := mcp.NewClient("http://" + addr)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", svcs.apiServer())
	mainRouter.Handle("/mcp", mcpHandler(mcpClient.GetMCPServer()))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.WithFields(logrus.Fields{
			"addr":      addr,
			"api":       fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
			"metrics":   fmt.Sprintf("http://%s/metrics", addr),
		}).Infof("%s v%s listening", AppName, Version)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, mainRouter, log)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, opts options, handler http.Handler, log logrus.FieldLogger) {
	if opts.NgrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	log.WithField("domain", opts.NgrokDomain).Info("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.WithFields(logrus.Fields{
		"url": url,
		"api": url + "/api",
		"mcp": url + "/mcp",
	}).Info("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Error("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// mcpHandler answers single JSON-RPC messages posted to /mcp
func mcpHandler(mcpServer *server.MCPServer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory once their files are deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithFilesystem(manager, persistence, log); pruned > 0 {
				log.WithField("pruned", pruned).Info("filesystem sync pruned orphaned sessions")
			}
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence, log logrus.FieldLogger) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.WithField("session", sess.ID).Debug("pruned session from memory (file deleted)")
		}
	}
	return pruned
}

// runMCP runs an MCP stdio server. It reuses an API already listening on
// the configured address, otherwise it serves one on a random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	// stdout carries the protocol, so logs must stay on stderr
	log, err := logger.New(opts.LogLevel, opts.LogJSON)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	externalURL := "http://" + opts.addr()
	baseURL := externalURL
	if !apiAvailable(ctx, externalURL) {
		log.WithField("url", externalURL).Info("no external API server found, starting internal HTTP server")

		svcs, err := initializeServices(opts, log)
		if err != nil {
			return err
		}
		defer svcs.Close()
		svcs.start(ctx, opts)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: svcs.apiServer()}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
	}

	log.WithField("api", baseURL).Info("MCP stdio server ready")
	mcpClient := mcp.NewClient(baseURL)
	return server.ServeStdio(mcpClient.GetMCPServer())
}

// apiAvailable reports whether a cubesweeper API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

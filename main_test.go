package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/cubesweeper/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", Version)
	}
	if AppName != "Cubesweeper Server" {
		t.Errorf("Expected app name Cubesweeper Server, got %s", AppName)
	}
}

func testOptions(t *testing.T) options {
	dir := t.TempDir()
	return options{
		Host:        "127.0.0.1",
		Port:        0,
		SessionsDir: filepath.Join(dir, "sessions"),
		RecordsDB:   filepath.Join(dir, "records.db"),
		LogLevel:    "info",
		Spatial:     true,
		SessionTTL:  time.Hour,
	}
}

func TestInitializeServices(t *testing.T) {
	log, _ := test.NewNullLogger()
	svcs, err := initializeServices(testOptions(t), log)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	if svcs.game == nil || svcs.hub == nil || svcs.records == nil {
		t.Fatal("Expected game service, hub and records to be initialized")
	}

	info, err := svcs.game.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if !svcs.persistence.Exists(info.ID) {
		t.Errorf("Expected session %s to be persisted", info.ID)
	}
}

func TestInitializeServices_WithoutRecords(t *testing.T) {
	log, _ := test.NewNullLogger()
	opts := testOptions(t)
	opts.RecordsDB = ""

	svcs, err := initializeServices(opts, log)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	if svcs.records != nil {
		t.Error("Expected records to be disabled")
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	log, _ := test.NewNullLogger()
	opts := testOptions(t)
	opts.ConfigDir = "/non/existent/path"

	if _, err := initializeServices(opts, log); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestFlagDefaults(t *testing.T) {
	var got options
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		got = optionsFrom(c)
		return nil
	}

	if err := cmd.Run(context.Background(), []string{"cubesweeper", "--port", "9090"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", got.Port)
	}
	if got.Host == "" {
		t.Error("Host should have a default value")
	}
	if got.SessionsDir == "" {
		t.Error("Sessions directory should have a default value")
	}
	if got.SessionTTL <= 0 {
		t.Errorf("Invalid default session TTL: %v", got.SessionTTL)
	}
}

func TestFlagFromEnvironment(t *testing.T) {
	t.Setenv("NGROK_AUTH_TOKEN", "secret")
	t.Setenv("SESSION_TTL", "30m")

	var got options
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		got = optionsFrom(c)
		return nil
	}
	if err := cmd.Run(context.Background(), []string{"cubesweeper"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got.NgrokAuth != "secret" {
		t.Errorf("Expected ngrok auth from NGROK_AUTH_TOKEN, got %q", got.NgrokAuth)
	}
	if got.SessionTTL != 30*time.Minute {
		t.Errorf("Expected session TTL 30m, got %v", got.SessionTTL)
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:1").GetMCPServer())

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `"result"`) {
		t.Errorf("Expected a result in %s", body)
	}
}

func TestMCPHandler_MethodNotAllowed(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:1").GetMCPServer())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestSyncWithFilesystem(t *testing.T) {
	log, _ := test.NewNullLogger()
	opts := testOptions(t)
	opts.RecordsDB = ""
	svcs, err := initializeServices(opts, log)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	ctx := context.Background()
	kept, err := svcs.game.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	removed, err := svcs.game.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := svcs.persistence.Delete(removed.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	assertActiveSessions(t, svcs, 2)
	if pruned := syncWithFilesystem(svcs.sessions, svcs.persistence, log); pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	assertActiveSessions(t, svcs, 1)
	if _, err := svcs.sessions.Get(kept.ID); err != nil {
		t.Errorf("Expected session %s to survive: %v", kept.ID, err)
	}
	if _, err := svcs.sessions.Get(removed.ID); err == nil {
		t.Errorf("Expected session %s to be pruned", removed.ID)
	}
}

func TestAPIAvailable(t *testing.T) {
	log, _ := test.NewNullLogger()
	svcs, err := initializeServices(testOptions(t), log)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	srv := httptest.NewServer(svcs.apiServer())
	defer srv.Close()

	if !apiAvailable(context.Background(), srv.URL) {
		t.Error("Expected API to be available")
	}

	srv.Close()
	if apiAvailable(context.Background(), srv.URL) {
		t.Error("Expected closed API to be unavailable")
	}
}

func TestSessionCleanupUpdatesActiveGauge(t *testing.T) {
	log, _ := test.NewNullLogger()
	opts := testOptions(t)
	opts.RecordsDB = ""
	svcs, err := initializeServices(opts, log)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	if _, err := svcs.game.CreateSession(context.Background(), ""); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	assertActiveSessions(t, svcs, 1)

	time.Sleep(5 * time.Millisecond)
	if removed := svcs.sessions.CleanupExpiredSessions(time.Millisecond); removed != 1 {
		t.Fatalf("Expected 1 expired session, got %d", removed)
	}
	assertActiveSessions(t, svcs, 0)
}

func assertActiveSessions(t *testing.T, svcs *services, want int) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP cubesweeper_sessions_active Sessions currently held in memory
# TYPE cubesweeper_sessions_active gauge
cubesweeper_sessions_active %d
`, want)
	if err := testutil.GatherAndCompare(svcs.registry, strings.NewReader(expected), "cubesweeper_sessions_active"); err != nil {
		t.Error(err)
	}
}

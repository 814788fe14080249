package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
)

// fakeService answers the calls the hub makes; any other method panics
// through the nil embedded interface.
type fakeService struct {
	service.GameService

	mu       sync.Mutex
	calls    []string
	flagMode bool
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeService) state(sessionID string) (*engine.GameState, error) {
	if sessionID == "missing" {
		return nil, service.ErrSessionNotFound
	}
	return &engine.GameState{Width: 3, Height: 3, Depth: 1, MineCount: 1, GameStatus: engine.StatusPlaying, ConfigName: sessionID}, nil
}

func (f *fakeService) action(name, sessionID string, index int) (*service.ActionResponse, error) {
	f.record(name)
	if index < 0 {
		return nil, service.ErrInvalidIndex
	}
	state, err := f.state(sessionID)
	if err != nil {
		return nil, err
	}
	state.RevealedCount = index
	return &service.ActionResponse{Action: name, Index: index, Success: true, GameState: state}, nil
}

func (f *fakeService) Reveal(_ context.Context, id string, index int) (*service.ActionResponse, error) {
	return f.action("reveal", id, index)
}

func (f *fakeService) ToggleFlag(_ context.Context, id string, index int) (*service.ActionResponse, error) {
	return f.action("flag", id, index)
}

func (f *fakeService) Chord(_ context.Context, id string, index int) (*service.ActionResponse, error) {
	return f.action("chord", id, index)
}

func (f *fakeService) Click(_ context.Context, id string, index int) (*service.ActionResponse, error) {
	return f.action("click", id, index)
}

func (f *fakeService) Reset(_ context.Context, id string) (*engine.GameState, error) {
	f.record("reset")
	return f.state(id)
}

func (f *fakeService) SetFlagMode(_ context.Context, id string, enabled bool) (*service.SessionInfo, error) {
	f.record("flag_mode")
	f.mu.Lock()
	f.flagMode = enabled
	f.mu.Unlock()
	return &service.SessionInfo{ID: id, FlagMode: enabled}, nil
}

func (f *fakeService) GetGameState(_ context.Context, id string) (*engine.GameState, error) {
	return f.state(id)
}

func newTestHub() *Hub {
	logger, _ := test.NewNullLogger()
	return NewHub(logger)
}

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return message
	case <-time.After(time.Second):
		t.Fatal("No message received within timeout")
	}
	return Message{}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}

	if cap(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected broadcast buffer %d, got %d", broadcastBuffer, cap(hub.broadcast))
	}

	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register channels are nil")
	}

	if hub.done == nil {
		t.Error("Hub done channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}

	if hub.ClientCount("test-session") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("test-session"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := newTestHub()
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}

	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := newTestHub()
	sessionID := "multi-client-session"

	client1 := newTestClient(hub, sessionID)
	client2 := newTestClient(hub, sessionID)

	hub.registerClient(client1)
	hub.registerClient(client2)

	if hub.ClientCount(sessionID) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", hub.ClientCount(sessionID))
	}

	hub.unregisterClient(client1)

	if hub.ClientCount(sessionID) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", hub.ClientCount(sessionID))
	}

	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub, "broadcast-test")
	other := newTestClient(hub, "other-session")
	hub.register <- client
	hub.register <- other

	hub.BroadcastToSession("broadcast-test", &engine.GameState{Width: 4, Height: 4, Depth: 2, RevealedCount: 7})

	message := receive(t, client)
	if message.SessionID != "broadcast-test" {
		t.Errorf("Expected sessionID broadcast-test, got %s", message.SessionID)
	}
	if message.Event != EventStateUpdate {
		t.Errorf("Expected event %q, got %s", EventStateUpdate, message.Event)
	}
	if message.GameState == nil || message.GameState.Depth != 2 || message.GameState.RevealedCount != 7 {
		t.Error("GameState not correctly transmitted")
	}

	select {
	case <-other.send:
		t.Error("Client in another session should not receive the broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub, "event-test")
	hub.register <- client

	hub.BroadcastEvent("event-test", service.GameEvent{
		ID:        "e1",
		Type:      service.EventAutoReveal,
		SessionID: "event-test",
		Index:     13,
		Count:     8,
	})

	message := receive(t, client)
	if message.Event != service.EventAutoReveal {
		t.Errorf("Expected event %q, got %s", service.EventAutoReveal, message.Event)
	}
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected event data object, got %T", message.Data)
	}
	if data["count"] != float64(8) || data["index"] != float64(13) {
		t.Errorf("Unexpected event payload: %v", data)
	}
}

func TestHubBroadcastEventNeverBlocks(t *testing.T) {
	hub := newTestHub()

	// Nothing drains the queue: the overflow must be dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastEvent("stalled", service.GameEvent{Type: service.EventReveal, Index: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastEvent blocked on a full queue")
	}

	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected %d queued messages, got %d", broadcastBuffer, len(hub.broadcast))
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := newTestHub()
	client := &Client{hub: hub, sessionID: "slow", send: make(chan []byte, 1)}
	hub.registerClient(client)

	hub.deliver(&envelope{sessionID: "slow", data: []byte(`{}`)})
	hub.deliver(&envelope{sessionID: "slow", data: []byte(`{}`)})

	if hub.ClientCount("slow") != 0 {
		t.Error("Client with a full buffer should be dropped")
	}
}

func TestHubHandleCommand(t *testing.T) {
	hub := newTestHub()
	svc := &fakeService{}
	hub.Attach(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub, "cmd-session")
	watcher := newTestClient(hub, "cmd-session")
	hub.register <- client
	hub.register <- watcher

	tests := []struct {
		cmd      Command
		revealed int
	}{
		{Command{Action: "reveal", Index: 4}, 4},
		{Command{Action: "flag", Index: 2}, 2},
		{Command{Action: "chord", Index: 5}, 5},
		{Command{Action: "click", Index: 6}, 6},
		{Command{Action: "reset"}, 0},
		{Command{Action: "flag_mode", Enabled: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Action, func(t *testing.T) {
			hub.handleCommand(context.Background(), client, tt.cmd)

			for _, c := range []*Client{client, watcher} {
				message := receive(t, c)
				if message.Event != EventStateUpdate {
					t.Fatalf("Expected %q, got %q (%v)", EventStateUpdate, message.Event, message.Data)
				}
				if message.GameState.RevealedCount != tt.revealed {
					t.Errorf("Expected revealed %d, got %d", tt.revealed, message.GameState.RevealedCount)
				}
			}
		})
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.calls) != len(tests) {
		t.Errorf("Expected %d service calls, got %v", len(tests), svc.calls)
	}
	if !svc.flagMode {
		t.Error("flag_mode command should enable flag mode")
	}
}

func TestHubHandleCommandErrors(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub, "err-session")
	watcher := newTestClient(hub, "err-session")
	hub.register <- client
	hub.register <- watcher

	// No service attached
	hub.handleCommand(context.Background(), client, Command{Action: "reveal"})
	if message := receive(t, client); message.Event != EventError {
		t.Errorf("Expected error event, got %q", message.Event)
	}

	hub.Attach(&fakeService{})

	hub.handleCommand(context.Background(), client, Command{Action: "teleport"})
	message := receive(t, client)
	if message.Event != EventError || !strings.Contains(message.Data.(string), "teleport") {
		t.Errorf("Expected unknown action error, got %v", message)
	}

	hub.handleCommand(context.Background(), client, Command{Action: "reveal", Index: -1})
	message = receive(t, client)
	if message.Event != EventError || message.Data.(string) != service.ErrInvalidIndex.Error() {
		t.Errorf("Expected invalid index error, got %v", message)
	}

	// Errors go only to the sender
	select {
	case data := <-watcher.send:
		t.Errorf("Watcher should not receive errors, got %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestActionState(t *testing.T) {
	if _, err := actionState(nil, errors.New("boom")); err == nil {
		t.Error("Expected error to pass through")
	}
	state, err := actionState(&service.ActionResponse{GameState: &engine.GameState{Width: 9}}, nil)
	if err != nil || state.Width != 9 {
		t.Errorf("Unexpected result %v, %v", state, err)
	}
}

func dialSession(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func newWSServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := newWSServer(hub)
	defer server.Close()

	conn := dialSession(t, server, "ws-test")

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketInitialStateAndCommands(t *testing.T) {
	hub := newTestHub()
	hub.Attach(&fakeService{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := newWSServer(hub)
	defer server.Close()

	conn := dialSession(t, server, "play")
	defer conn.Close()

	initial := readMessage(t, conn)
	if initial.Event != EventStateUpdate || initial.GameState == nil || initial.GameState.ConfigName != "play" {
		t.Fatalf("Expected initial state, got %+v", initial)
	}

	if err := conn.WriteJSON(Command{Action: "reveal", Index: 3}); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}
	update := readMessage(t, conn)
	if update.Event != EventStateUpdate || update.GameState.RevealedCount != 3 {
		t.Errorf("Expected state after reveal, got %+v", update)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
	if bad := readMessage(t, conn); bad.Event != EventError {
		t.Errorf("Expected error for malformed command, got %q", bad.Event)
	}
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := newWSServer(hub)
	defer server.Close()

	conn := dialSession(t, server, "msg-test")
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 })

	hub.BroadcastEvent("msg-test", service.GameEvent{Type: service.EventVictory, SessionID: "msg-test", Message: "cleared"})

	message := readMessage(t, conn)
	if message.SessionID != "msg-test" {
		t.Errorf("Expected sessionID 'msg-test', got %s", message.SessionID)
	}
	if message.Event != service.EventVictory {
		t.Errorf("Expected victory event, got %s", message.Event)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := newTestClient(hub, "closing")
	hub.register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if hub.ClientCount("closing") != 0 {
		t.Error("Clients should be closed when the hub stops")
	}
}

func TestHubStoppedDoesNotBlockClients(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	left := make(chan struct{})
	go func() {
		hub.leave(newTestClient(hub, "late"))
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("Unregistering after the hub stopped blocked")
	}

	served := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "late")
		close(served)
	}))
	defer server.Close()

	conn := dialSession(t, server, "late")
	defer conn.Close()

	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("ServeWS blocked after the hub stopped")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed")
	}
	if hub.ClientCount("late") != 0 {
		t.Error("No client should register on a stopped hub")
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound messages queued before BroadcastEvent starts dropping.
	broadcastBuffer = 256
)

// Outbound event names that are not game events
const (
	EventStateUpdate = "state_update"
	EventError       = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	SessionID string            `json:"session_id"`
	Event     string            `json:"event"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// Command is an action sent by a client over its connection.
//
//	{"action": "reveal", "index": 13}
//	{"action": "flag_mode", "enabled": true}
type Command struct {
	Action  string `json:"action"`
	Index   int    `json:"index"`
	Enabled bool   `json:"enabled,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// envelope is a marshalled message addressed to a session, or to one client
// of it when to is set
type envelope struct {
	sessionID string
	data      []byte
	to        *Client
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages
	broadcast chan *envelope

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	service service.GameService
	logger  logrus.FieldLogger
	mu      sync.RWMutex
}

// NewHub creates a new WebSocket hub. A nil logger uses the logrus standard logger.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.WithField("component", "websocket"),
	}
}

// Attach sets the service that inbound client commands are applied to
func (h *Hub) Attach(svc service.GameService) {
	h.mu.Lock()
	h.service = svc
	h.mu.Unlock()
}

func (h *Hub) gameService() service.GameService {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.service
}

// Run starts the hub's event loop. It returns when ctx is done and must be
// called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	if !h.join(client) {
		conn.Close()
		return
	}

	if svc := h.gameService(); svc != nil {
		if state, err := svc.GetGameState(r.Context(), sessionID); err == nil {
			h.enqueue(sessionID, client, &Message{SessionID: sessionID, Event: EventStateUpdate, GameState: state})
		}
	}

	go client.writePump()
	go client.readPump()
}

// join hands a client to the event loop. It reports false once the hub has
// stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave hands a client back to the event loop, or does nothing once the hub
// has stopped and closed every client.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToSession sends a game state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.enqueue(sessionID, nil, &Message{
		SessionID: sessionID,
		Event:     EventStateUpdate,
		GameState: state,
	})
}

// BroadcastEvent sends a game event to all clients in a session. It never
// blocks: when the queue is full the event is dropped.
func (h *Hub) BroadcastEvent(sessionID string, event service.GameEvent) {
	h.enqueue(sessionID, nil, &Message{
		SessionID: sessionID,
		Event:     event.Type,
		Data:      event,
	})
}

// ClientCount returns the number of clients connected to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) enqueue(sessionID string, to *Client, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal websocket message")
		return
	}

	select {
	case h.broadcast <- &envelope{sessionID: sessionID, data: data, to: to}:
	default:
		h.logger.WithFields(logrus.Fields{
			"session": sessionID,
			"event":   message.Event,
		}).Warn("broadcast queue full, dropping message")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
	total := len(h.sessions[client.sessionID])
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"session": client.sessionID,
		"clients": total,
	}).Debug("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.logger.WithFields(logrus.Fields{
		"session": client.sessionID,
		"clients": len(clients),
	}).Debug("client unregistered")
}

// deliver sends an envelope to its recipients, dropping clients whose send
// buffer is full
func (h *Hub) deliver(env *envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[env.sessionID]
	if !ok {
		return
	}
	for client := range clients {
		if env.to != nil && client != env.to {
			continue
		}
		select {
		case client.send <- env.data:
		default:
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.sessions {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// handleCommand applies a client command to the attached service and
// broadcasts the resulting state to the session
func (h *Hub) handleCommand(ctx context.Context, client *Client, cmd Command) {
	svc := h.gameService()
	if svc == nil {
		h.replyError(client, fmt.Errorf("commands are not accepted on this connection"))
		return
	}

	var (
		state *engine.GameState
		err   error
	)
	switch cmd.Action {
	case "reveal":
		state, err = actionState(svc.Reveal(ctx, client.sessionID, cmd.Index))
	case "flag":
		state, err = actionState(svc.ToggleFlag(ctx, client.sessionID, cmd.Index))
	case "chord":
		state, err = actionState(svc.Chord(ctx, client.sessionID, cmd.Index))
	case "click":
		state, err = actionState(svc.Click(ctx, client.sessionID, cmd.Index))
	case "reset":
		state, err = svc.Reset(ctx, client.sessionID)
	case "flag_mode":
		if _, err = svc.SetFlagMode(ctx, client.sessionID, cmd.Enabled); err == nil {
			state, err = svc.GetGameState(ctx, client.sessionID)
		}
	case "state":
		state, err = svc.GetGameState(ctx, client.sessionID)
	default:
		err = fmt.Errorf("unknown action %q", cmd.Action)
	}

	if err != nil {
		h.replyError(client, err)
		return
	}
	if cmd.Action == "state" {
		h.enqueue(client.sessionID, client, &Message{SessionID: client.sessionID, Event: EventStateUpdate, GameState: state})
		return
	}
	h.BroadcastToSession(client.sessionID, state)
}

func actionState(resp *service.ActionResponse, err error) (*engine.GameState, error) {
	if err != nil {
		return nil, err
	}
	return resp.GameState, nil
}

func (h *Hub) replyError(client *Client, err error) {
	h.enqueue(client.sessionID, client, &Message{
		SessionID: client.sessionID,
		Event:     EventError,
		Data:      err.Error(),
	})
}

// readPump pumps commands from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).WithField("session", c.sessionID).Warn("websocket read failed")
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.hub.replyError(c, fmt.Errorf("invalid command: %w", err))
			continue
		}
		c.hub.handleCommand(context.Background(), c, cmd)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

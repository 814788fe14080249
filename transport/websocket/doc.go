// Package websocket provides WebSocket transport for the cube minesweeper server.
//
// A central Hub tracks connections per session and fans out two kinds of
// message: state updates after every change, and the game events published
// by the service (reveal, auto_reveal, flag, victory, ...). The Hub
// implements service.EventPublisher; publishing never blocks the caller.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "auto_reveal", "data": {...event...}}
//	{"session_id": "ab12", "event": "error", "data": "cell index out of range"}
//
// Incoming commands name an action and, where needed, a cell index:
//
//	{"action": "reveal", "index": 13}
//	{"action": "flag_mode", "enabled": true}
//
// Supported actions are reveal, flag, chord, click, reset, flag_mode and
// state. Errors are sent back to the issuing connection only.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, configs, service.WithPublisher(hub))
//	hub.Attach(svc)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket

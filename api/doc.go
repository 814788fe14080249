// Package api provides HTTP REST API handlers for the cube minesweeper server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id"}, custom
//     {"width","height","depth","mines"}, or ?difficulty=&mode=)
//   - GET /api/sessions - List sessions (?status=&sort=created|accessed&order=&limit=)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - POST /api/sessions/{id}/reveal - Reveal a cell
//   - POST /api/sessions/{id}/flag - Toggle a flag
//   - POST /api/sessions/{id}/chord - Chord-click a revealed number
//   - POST /api/sessions/{id}/click - Reveal, or flag when flag mode is on
//   - POST /api/sessions/{id}/reset - Start the game over
//   - PUT /api/sessions/{id}/flag-mode - {"enabled": true|false}
//   - GET /api/sessions/{id}/state - Player view of the board
//   - GET /api/sessions/{id}/stats - Counters and elapsed time
//   - GET /api/sessions/{id}/cells/{index} - Describe one cell
//   - GET /api/sessions/{id}/hint - Next move suggested by the solver
//
// Cell actions take {"index": n} or {"x": x, "y": y, "z": z}; a missing z
// addresses the first layer.
//
// Configuration and records:
//   - GET /api/configs - List presets
//   - GET /api/configs/{id} - Get one preset
//   - GET /api/resolve - Preset for ?difficulty=&mode=
//   - GET /api/records - Finished games (?config=&limit=)
//
// Infrastructure:
//   - GET /healthz
//   - GET /metrics - Prometheus exposition, when WithMetrics is set
//   - GET /ws?session={id} - WebSocket updates for a session
//
// Errors are returned as {"error": "..."}: unknown sessions and presets map
// to 404, invalid dimensions and indices to 400, a disabled chord or a
// finished game to 409.
package api

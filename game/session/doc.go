// Package session provides session management for the cube minesweeper server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - File persistence of each session's config, flag mode and game state
//   - Session cleanup and expiration
//
// Session Identifiers:
//
// Generated sessions use 4-character hex IDs. Callers may pick their own IDs
// made of letters, digits, '-' and '_'; lookups are case-insensitive.
//
// Persistence:
//
// FilePersistence writes one JSON file per session. The configuration is
// stored inline, so custom grids load without the config manager. Loaded
// states are checked with engine.ValidateState before use.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence, session.WithLogger(logger))
//	if err := manager.LoadPersistedSessions(); err != nil {
//		logger.WithError(err).Warn("failed to load sessions")
//	}
//
//	sess, err := manager.Create("", config)
package session

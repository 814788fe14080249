// Package service provides the business logic layer for the cube minesweeper server.
//
// The service package implements:
//   - Multi-session game management
//   - Reveal, flag, chord and click actions with event reporting
//   - Hints from the solver
//   - Recording finished games and observing metrics
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager resolves presets and gameplay mechanics.
// RecordStore, EventPublisher and Metrics are optional collaborators passed
// with WithRecords, WithPublisher and WithMetrics.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the game engine. Each session owns its own engine. States leave the
// service as player views: unrevealed mines and counts stay hidden until the
// game ends.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithRecords(store),
//		service.WithPublisher(hub),
//		service.WithLogger(logger),
//	)
//
//	info, err := gameService.CreateSession(ctx, "expert-3d")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := gameService.Reveal(ctx, info.ID, 665)
package service

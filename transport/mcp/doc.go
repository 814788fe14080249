// Package mcp exposes the cube minesweeper REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one or two REST
// requests against a running server, and the JSON answers are rendered as
// text an agent can read. Boards are printed one layer at a time:
//
//	Layer z=0
//	.2#
//	#F#
//	###
//
// MCP Tools:
//   - create_session, list_sessions, get_session, delete_session
//   - game_state, game_stats, describe_cell, hint
//   - reveal, flag, chord, click (by index or x/y/z), reset_game, set_flag_mode
//   - list_configs, records, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// The same server is mounted on POST /mcp by the serve command.
package mcp

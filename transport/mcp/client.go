package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Cubesweeper",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Cubesweeper - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Reveal every cell of the cube that is not a mine. Each number counts the mines
among the up to 26 cells touching it (faces, edges and corners, across layers).

AVAILABLE TOOLS:
- create_session: Start a game (preset, difficulty/mode, or custom size)
- list_sessions / get_session / delete_session: Manage games
- game_state: Board, one layer at a time
- reveal / flag / chord / click: Play a cell by index or x,y,z
- reset_game: Start the same preset over
- set_flag_mode: Make click place flags instead of revealing
- game_stats: Counters and elapsed time
- describe_cell: Everything visible about one cell and its neighbours
- hint: The next safe deduction, or the least risky guess
- list_configs / records: Presets and finished games
- game_instructions: Rules and strategy

NOTE: The 'intent' parameter on cell tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
		},
		Required: []string{"session_id"},
	}
}

// cellSchema addresses one cell by index or coordinates
func cellSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
			"index": map[string]interface{}{
				"type":        "integer",
				"description": "Cell index (x + y*width + z*width*height). Use either index or x/y/z.",
			},
			"x": map[string]interface{}{"type": "integer", "description": "Column"},
			"y": map[string]interface{}{"type": "integer", "description": "Row"},
			"z": map[string]interface{}{"type": "integer", "description": "Layer (default 0)"},
			"intent": map[string]interface{}{
				"type":        "string",
				"description": "Brief explanation of the reasoning behind this action (serves as a rubber duck)",
			},
		},
		Required: []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session from a preset, a difficulty/mode pair, or custom dimensions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset id such as beginner-3d or expert-2d (optional)",
				},
				"difficulty": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"beginner", "intermediate", "expert"},
					"description": "Difficulty level (optional)",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"3d", "2d"},
					"description": "Cube or flat board (optional)",
				},
				"width":  map[string]interface{}{"type": "integer", "description": "Custom width"},
				"height": map[string]interface{}{"type": "integer", "description": "Custom height"},
				"depth":  map[string]interface{}{"type": "integer", "description": "Custom depth"},
				"mines":  map[string]interface{}{"type": "integer", "description": "Custom mine count"},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"playing", "won", "lost"},
					"description": "Only sessions with this status (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of sessions (optional)",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnlySchema(),
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session",
		InputSchema: sessionOnlySchema(),
	}, c.handleDeleteSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board as the player sees it, layer by layer",
		InputSchema: sessionOnlySchema(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reveal",
		Description: "Reveal a cell. The first reveal is always safe.",
		InputSchema: cellSchema(),
	}, c.handleAction("reveal"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flag",
		Description: "Toggle a flag on a hidden cell",
		InputSchema: cellSchema(),
	}, c.handleAction("flag"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "chord",
		Description: "On a revealed number whose flag count matches, reveal all other hidden neighbours",
		InputSchema: cellSchema(),
	}, c.handleAction("chord"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click",
		Description: "Primary click: reveal, or toggle a flag when flag mode is on",
		InputSchema: cellSchema(),
	}, c.handleAction("click"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to a fresh board with the same preset",
		InputSchema: sessionOnlySchema(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_flag_mode",
		Description: "Turn flag mode on or off for click",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"enabled": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether click places flags",
				},
			},
			Required: []string{"session_id", "enabled"},
		},
	}, c.handleSetFlagMode)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_stats",
		Description: "Revealed, flagged and remaining mine counts, progress and elapsed time",
		InputSchema: sessionOnlySchema(),
	}, c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell: coordinates, visible state, number and neighbour indices",
		InputSchema: cellSchema(),
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Suggest the next move: a certain deduction when one exists, otherwise the least risky guess",
		InputSchema: sessionOnlySchema(),
	}, c.handleHint)

	// Configuration and records
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "records",
		Description: "Finished games: fastest wins for a preset, or the most recent games",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset id for a leaderboard (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of records (optional)",
				},
			},
		},
	}, c.handleRecords)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get rules, board legend and strategy tips",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads an integer argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// cellBody builds the REST body addressing a cell
func cellBody(args map[string]interface{}) (map[string]int, error) {
	if index, ok := intArg(args, "index"); ok {
		return map[string]int{"index": index}, nil
	}
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return nil, fmt.Errorf("provide index, or x and y (and optionally z)")
	}
	body := map[string]int{"x": x, "y": y}
	if z, ok := intArg(args, "z"); ok {
		body["z"] = z
	}
	return body, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID := stringArg(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}
	for _, key := range []string{"width", "height", "depth", "mines"} {
		if v, ok := intArg(args, key); ok {
			body[key] = v
		}
	}

	query := url.Values{}
	if d := stringArg(args, "difficulty"); d != "" {
		query.Set("difficulty", d)
	}
	if m := stringArg(args, "mode"); m != "" {
		query.Set("mode", m)
	}
	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", path, body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created " + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := url.Values{}
	if status := stringArg(args, "status"); status != "" {
		query.Set("status", status)
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", strconv.Itoa(limit))
	}

	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions?"+query.Encode(), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "?"
		if s.GameState != nil {
			status = string(s.GameState.GameStatus)
		}
		fmt.Fprintf(&result, "- %s (Config: %s, Status: %s, Progress: %d%%, Created: %s)\n",
			s.ID, s.ConfigName, status, s.Stats.Progress, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, ""), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s deleted", sessionID)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleAction(action string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(request)
		sessionID := stringArg(args, "session_id")

		// The intent argument is for the caller's benefit only
		body, err := cellBody(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var result service.ActionResponse
		if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/"+action), body, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(formatActionResponse(&result)), nil
	}
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleSetFlagMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	enabled, ok := args["enabled"].(bool)
	if !ok {
		return mcp.NewToolResultError("enabled must be true or false"), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "PUT", sessionPath(sessionID, "/flag-mode"), map[string]bool{"enabled": enabled}, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode := "off: click reveals"
	if session.FlagMode {
		mode = "on: click toggles flags"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Flag mode %s", mode)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var stats engine.Stats
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/stats"), nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	index, ok := intArg(args, "index")
	if !ok {
		x, okX := intArg(args, "x")
		y, okY := intArg(args, "y")
		if !okX || !okY {
			return mcp.NewToolResultError("provide index, or x and y (and optionally z)"), nil
		}
		z, _ := intArg(args, "z")

		var state engine.GameState
		if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if index, ok = state.Index(x, y, z); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d, %d) are out of bounds. Board is %dx%dx%d",
				x, y, z, state.Width, state.Height, state.Depth)), nil
		}
	}

	var cell service.CellInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, fmt.Sprintf("/cells/%d", index)), nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellInfo(&cell)), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var hint service.Hint
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/hint"), nil, &hint); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHint(&hint)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		def := ""
		if config.Default {
			def = " (default)"
		}
		fmt.Fprintf(&result, "• %s%s\n  %s\n  Board: %dx%dx%d, Mines: %d, Density: %.1f%%\n\n",
			config.ConfigID, def, config.Description,
			config.Width, config.Height, config.Depth, config.MineCount, config.Density*100)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := url.Values{}
	if configID := stringArg(args, "config_id"); configID != "" {
		query.Set("config", configID)
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", strconv.Itoa(limit))
	}

	var response struct {
		Count   int              `json:"count"`
		Records []service.Record `json:"records"`
	}
	if err := c.apiCall(ctx, "GET", "/api/records?"+query.Encode(), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRecords(response.Records)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Cubesweeper - Complete Instructions

GAME OBJECTIVE:
Reveal every safe cell of a width x height x depth cube without revealing a mine.

NEIGHBOURS:
Every cell touches up to 26 others: 8 in its own layer, and 9 in each of the
layers directly above and below. A revealed number counts the mines among them.

CELL ADDRESSING:
index = x + y*width + z*width*height. Tools accept either index or x, y, z.

BOARD LEGEND (game_state, one block per layer z):
  #  hidden cell
  F  flagged cell
  .  revealed, no neighbouring mines
  1-9 revealed, that many neighbouring mines
  a-q revealed, 10-26 neighbouring mines (a=10, b=11, ...)
  *  mine (only shown once the game is over)

ACTIONS:
• reveal: The first reveal of a game is always safe; mines are placed after it.
  Revealing a 0 opens its whole connected region automatically.
• flag: Marks a hidden cell. You cannot place more flags than there are mines.
• chord: On a revealed number with exactly that many flagged neighbours,
  reveals every other hidden neighbour at once. A wrong flag makes this lose.
• click: Same as reveal, or flag when flag mode is on (set_flag_mode).

STRATEGY:
1. Start with hint or reveal the centre cell: it has the most neighbours.
2. A number whose hidden neighbours equal its remaining count: all are mines.
3. A number whose flagged neighbours already match it: the rest are safe.
4. Remember the layers above and below; most mistakes come from forgetting them.
5. When no deduction exists, hint reports the guess with the best odds.

VICTORY CONDITIONS:
Every non-mine cell revealed. Flags are not required.

Good luck clearing the cube!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	flagMode := "off"
	if session.FlagMode {
		flagMode = "on"
	}
	return fmt.Sprintf("Session: %s\nConfig: %s\nFlag mode: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName, flagMode,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

// cellChar renders one cell of a player view
func cellChar(cell engine.Cell) byte {
	switch {
	case cell.IsFlagged:
		return 'F'
	case !cell.IsRevealed && cell.IsMine:
		return '*'
	case !cell.IsRevealed:
		return '#'
	case cell.IsMine:
		return '*'
	case cell.NeighborMineCount == 0:
		return '.'
	case cell.NeighborMineCount < 10:
		return byte('0' + cell.NeighborMineCount)
	default:
		return byte('a' + cell.NeighborMineCount - 10)
	}
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	safe := len(state.Cells) - state.MineCount

	fmt.Fprintf(&result, "Board: %dx%dx%d | Mines: %d | Flags: %d | Revealed: %d/%d | Moves: %d | Status: %s\n",
		state.Width, state.Height, state.Depth, state.MineCount, state.FlagCount,
		state.RevealedCount, safe, state.Moves, state.GameStatus)

	if len(state.Cells) == state.Width*state.Height*state.Depth {
		for z := 0; z < state.Depth; z++ {
			fmt.Fprintf(&result, "\nLayer z=%d\n", z)
			for y := 0; y < state.Height; y++ {
				row := make([]byte, state.Width)
				for x := 0; x < state.Width; x++ {
					row[x] = cellChar(state.Cells[engine.IndexOf(x, y, z, state.Width, state.Height)])
				}
				result.Write(row)
				result.WriteByte('\n')
			}
		}
	}

	switch state.GameStatus {
	case engine.StatusWon:
		result.WriteString("\nVICTORY!")
	case engine.StatusLost:
		result.WriteString("\nGAME OVER")
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

func formatActionResponse(resp *service.ActionResponse) string {
	var result strings.Builder

	if resp.Success {
		fmt.Fprintf(&result, "✓ %s %d\n", resp.Action, resp.Index)
	} else {
		fmt.Fprintf(&result, "✗ %s %d rejected: %s\n", resp.Action, resp.Index, resp.Reason)
	}
	if n := len(resp.Revealed); n > 0 {
		fmt.Fprintf(&result, "Revealed %d cell(s)\n", n)
	}
	if resp.Message != "" {
		fmt.Fprintf(&result, "%s\n", resp.Message)
	}
	result.WriteString("\n")
	result.WriteString(formatGameState(resp.GameState))

	return result.String()
}

func formatStats(stats *engine.Stats) string {
	return fmt.Sprintf("Revealed: %d\nFlags: %d\nMines: %d\nRemaining mines: %d\nProgress: %d%%\nElapsed: %s",
		stats.RevealedCount, stats.FlagCount, stats.MineCount, stats.RemainingMines,
		stats.Progress, stats.Elapsed().Round(time.Millisecond))
}

func formatCellInfo(cell *service.CellInfo) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Cell %d at (%d, %d, %d):\n", cell.Index, cell.X, cell.Y, cell.Z)
	fmt.Fprintf(&result, "Variant: %s\nRevealed: %v\nFlagged: %v\n", cell.Variant, cell.Revealed, cell.Flagged)
	if cell.Variant == engine.VariantNumber {
		fmt.Fprintf(&result, "Neighbouring mines: %d\n", cell.Number)
	}
	neighbors := make([]string, len(cell.Neighbors))
	for i, n := range cell.Neighbors {
		neighbors[i] = strconv.Itoa(n)
	}
	fmt.Fprintf(&result, "Neighbours (%d): %s", len(cell.Neighbors), strings.Join(neighbors, ", "))
	return result.String()
}

func formatHint(hint *service.Hint) string {
	kind := "certain"
	if hint.Guess {
		kind = "guess"
	}
	return fmt.Sprintf("Suggested: %s cell %d at (%d, %d, %d)\nStrategy: %s (%s, confidence %.0f%%)",
		hint.Action, hint.Index, hint.X, hint.Y, hint.Z, hint.Strategy, kind, hint.Confidence*100)
}

func formatRecords(records []service.Record) string {
	if len(records) == 0 {
		return "No finished games yet"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Finished games (%d):\n\n", len(records))
	for i, r := range records {
		outcome := "lost"
		if r.Won {
			outcome = "won"
		}
		fmt.Fprintf(&result, "%2d. %s %s %dx%dx%d/%d in %s, %d moves (%s)\n",
			i+1, r.ConfigID, outcome, r.Width, r.Height, r.Depth, r.MineCount,
			(time.Duration(r.DurationMS) * time.Millisecond).Round(time.Millisecond),
			r.Moves, r.FinishedAt.Format("2006-01-02 15:04"))
	}
	return result.String()
}

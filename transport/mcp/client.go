package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/co2-grid-game/game/engine"
	"github.com/wricardo/co2-grid-game/game/service"
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
		baseURL: strings.TrimRight(baseURL, "/"),
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
		"CO2 Grid Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`CO2 Grid Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Travel from the top-left cell to the bottom-right cell of the grid. Every
transport mode moves you a number of cells, changes your score and changes
your CO2 level. Reaching the last cell records your score on the leaderboard
and starts a new run.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Show the grid and current score/CO2
- perform_action: Travel with one transport mode - requires intent explanation
- reset_game: Abandon the current run
- leaderboard: Show the top scores of a session
- list_actions: List the transport modes of a configuration
- list_configs: List available configurations
- game_instructions: Get the full rules

NOTE: The 'intent' parameter on perform_action serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func actionIDs() []string {
	ids := make([]string, 0, len(engine.AllActionIDs))
	for _, id := range engine.AllActionIDs {
		ids = append(ids, string(id))
	}
	return ids
}

func sessionSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"session_id": map[string]any{
				"type":        "string",
				"description": "Session ID",
			},
		},
		Required: []string{"session_id"},
	}
}

func emptySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "Config to use, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: emptySchema(),
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionSchema(),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state with the grid",
		InputSchema: sessionSchema(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "perform_action",
		Description: "Travel with one transport mode",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": map[string]any{
					"type":        "string",
					"description": "Session ID",
				},
				"action": map[string]any{
					"type":        "string",
					"enum":        actionIDs(),
					"description": "Transport mode to use",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the intent behind this action (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handlePerformAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Abandon the current run and return to the start cell",
		InputSchema: sessionSchema(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Show the top scores of finished runs",
		InputSchema: sessionSchema(),
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_actions",
		Description: "List the transport modes with their step, score and CO2 effects",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "Config to describe (optional, default config otherwise)",
				},
			},
		},
	}, c.handleListActions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: emptySchema(),
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: emptySchema(),
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
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

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

func sessionPath(args map[string]any, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatGameState(session.GameState, session.GameConfig))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, Highscore: %d, Created: %s)\n",
			s.ID, s.ConfigName, s.GameState.Score, s.GameState.HighScore, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// The session carries the config needed to draw the grid
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(session.GameState, session.GameConfig)), nil
}

func (c *Client) handlePerformAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, _ := args["action"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	var result service.ActionResult
	if err := c.apiCall(ctx, http.MethodPost, path, map[string]string{"action": action}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string           `json:"message"`
		State   engine.GridState `json:"state"`
	}
	if err := c.apiCall(ctx, http.MethodPost, path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatHUD(response.State))), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/leaderboard")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var board engine.Leaderboard
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLeaderboard(board)), nil
}

func (c *Client) handleListActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/actions"
	if configID, _ := arguments(request)["config_id"].(string); configID != "" {
		path += "?config=" + url.QueryEscape(configID)
	}

	var actions []engine.Action
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &actions); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActions(actions)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d, Max CO2: %d, Steps: %s, Actions: %d\n\n",
			config.ConfigID, config.Name, config.Description, config.Cols, config.Rows,
			config.MaxCO2, config.StepMode, config.Actions)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🌍 CO2 Grid Game - Complete Instructions

GAME OBJECTIVE:
Bring the player 🙂 from the top-left cell (0,0) to the bottom-right cell
of the grid with the highest possible score.

GAME MECHANICS:
• Every turn you pick one transport mode (see list_actions)
• A mode moves you a number of cells, changes your score and changes your CO2 level
• Moving past the end of a row continues on the next row; moving back past
  the start of a row continues on the previous row
• You can never leave the grid: the first and last rows stop you
• CO2 stays between 0 and the configured maximum (5 on the classic board)
• Your score may go negative; your highscore never drops

CLASSIC TRANSPORT TABLE:
• car        🚗  1 back,  score -5, CO2 +2
• plane      ✈️  2 back,  score -8, CO2 +3
• bike       🚲  5 ahead, score +5, CO2 -2
• walk       🚶  5 ahead, score +5, CO2 -2
• train      🚆  1 ahead, score +2, CO2 -1
• bus        🚌  1 ahead, score +2, CO2 -1
• motorbike  🏍️  1 back,  score -5, CO2 +1

END OF A RUN:
- Landing on the bottom-right cell finishes the run
- The run's score goes onto the session's top-10 leaderboard
- You return to (0,0) with score 0 and CO2 0; your highscore is kept

STRATEGY:
- Green modes (bike, walk) cover the most ground and lower CO2
- Backward modes cost points and raise CO2; avoid them unless you overshoot
- Plan the last steps so you land exactly on the final cell

GRID LEGEND (game_state):
• 🙂 or a transport icon - your position
• 🏁 - the final cell
• · - an empty cell

SESSION MANAGEMENT:
- Multiple game sessions can run simultaneously
- Each session has its own state and leaderboard
- Progress is saved after every action

Good luck, and keep your CO2 low! 🌱`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState, session.GameConfig),
		formatLeaderboard(session.Leaderboard))
}

// formatHUD renders the score line shown above the grid
func formatHUD(state engine.GridState) string {
	return fmt.Sprintf("Position: (%d,%d) | Score: %d | Highscore: %d | CO₂-niveau: %d",
		state.X, state.Y, state.Score, state.HighScore, state.CO2)
}

func formatGameState(state engine.GridState, config *engine.GameConfig) string {
	var b strings.Builder
	b.WriteString(formatHUD(state))

	if config == nil {
		return b.String()
	}
	fmt.Fprintf(&b, " / %d\n\n", config.MaxCO2)

	icon := state.Icon
	if icon == "" {
		icon = engine.DefaultIcon
	}
	tx, ty := config.Terminal()

	for y := 0; y < config.Rows; y++ {
		for x := 0; x < config.Cols; x++ {
			switch {
			case x == state.X && y == state.Y:
				b.WriteString(icon)
			case x == tx && y == ty:
				b.WriteString("🏁")
			default:
				b.WriteString("·")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s\n", result.Message)

	if result.Finished {
		fmt.Fprintf(&b, "Run finished with score %d\n", result.FinalScore)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n" + formatHUD(result.GameState))
	if result.Finished {
		b.WriteString("\n\n" + formatLeaderboard(result.Leaderboard))
	}
	return b.String()
}

func formatLeaderboard(board engine.Leaderboard) string {
	if len(board) == 0 {
		return "Top scores: none yet"
	}
	var b strings.Builder
	b.WriteString("Top scores:\n")
	for i, score := range board {
		fmt.Fprintf(&b, "%d. %d\n", i+1, score)
	}
	return b.String()
}

func formatActions(actions []engine.Action) string {
	var b strings.Builder
	b.WriteString("Transport modes:\n\n")
	for _, a := range actions {
		fmt.Fprintf(&b, "• %-9s %s  step %+d, score %+d, CO2 %+d\n",
			a.ID, a.Label, a.StepDelta, a.ScoreDelta, a.CO2Delta)
	}
	return b.String()
}

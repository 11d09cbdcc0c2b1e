package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/gomoku-server/game/service"
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
		baseURL: baseURL,
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
		"Gomoku Lobby",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Gomoku Lobby - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Players connect over WebSocket and are paired two at a time. The first
arrival waits as player_one; the next arrival joins as player_two and the
game starts. When either player disconnects the session ends.

AVAILABLE TOOLS:
- lobby_stats: Active rooms, whether a player is waiting, connected players
- list_sessions: Forming and active sessions, newest first`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "lobby_stats",
		Description: "Get the number of active rooms, whether a player is waiting for an opponent, and connected players",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleLobbyStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List forming and active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"state": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"forming", "active"},
					"description": "Only list sessions in this state (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions to return (optional)",
				},
			},
		},
	}, c.handleListSessions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiGet(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
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

// Tool handlers

func (c *Client) handleLobbyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.StatsInfo
	if err := c.apiGet(ctx, "/api/stats", &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	state, _ := args["state"].(string)
	limit, _ := args["limit"].(float64)

	query := url.Values{}
	if state != "" {
		query.Set("state", state)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}

	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count    int                   `json:"count"`
		Total    int                   `json:"total"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiGet(ctx, path, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessions(response.Sessions, response.Total)), nil
}

func formatStats(stats *service.StatsInfo) string {
	waiting := "no"
	if stats.Pending {
		waiting = "yes"
	}

	return fmt.Sprintf("Active rooms: %d\nPlayer waiting: %s\nPlayers in sessions: %d\nWebSocket connections: %d\n",
		stats.Rooms, waiting, stats.Players, stats.Connections)
}

func formatSessions(sessions []service.SessionInfo, total int) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Sessions (%d of %d):\n\n", len(sessions), total)

	for _, s := range sessions {
		fmt.Fprintf(&result, "- %s [%s] %d/2 players, created %s",
			s.ID, s.State, s.Occupants, s.CreatedAt.Format("15:04:05"))
		if s.PairedAt != nil {
			fmt.Fprintf(&result, ", started %s", s.PairedAt.Format("15:04:05"))
		}
		result.WriteString("\n")
	}

	return result.String()
}

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/gomoku-server/game/service"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestHandleLobbyStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(service.StatsInfo{Rooms: 4, Pending: true, Players: 9, Connections: 10})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "lobby_stats",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := client.handleLobbyStats(context.Background(), request)
	if err != nil {
		t.Fatalf("lobby_stats failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Active rooms: 4", "Player waiting: yes", "Players in sessions: 9", "WebSocket connections: 10"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestHandleListSessions(t *testing.T) {
	paired := time.Date(2024, 1, 1, 12, 0, 5, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("state"); got != "active" {
			t.Errorf("Expected state=active, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("Expected limit=5, got %q", got)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"count": 1,
			"total": 3,
			"sessions": []service.SessionInfo{
				{ID: "room-1", State: "active", Occupants: 2, CreatedAt: paired.Add(-5 * time.Second), PairedAt: &paired},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "list_sessions",
			Arguments: map[string]interface{}{
				"state": "active",
				"limit": float64(5),
			},
		},
	}

	result, err := client.handleListSessions(context.Background(), request)
	if err != nil {
		t.Fatalf("list_sessions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Sessions (1 of 3)", "room-1 [active] 2/2 players", "started 12:00:05"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestHandleListSessionsNoArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("Expected no query, got %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"count": 0, "total": 0, "sessions": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleListSessions(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("list_sessions failed: %v", err)
	}

	if text := resultText(t, result); !strings.Contains(text, "Sessions (0 of 0)") {
		t.Errorf("Unexpected result: %s", text)
	}
}

func TestAPIErrorBecomesToolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "lobby closed"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleLobbyStats(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("Tool errors should be reported in the result, got %v", err)
	}

	if !result.IsError {
		t.Error("Expected an error result")
	}
	if text := resultText(t, result); !strings.Contains(text, "lobby closed") {
		t.Errorf("Expected API error message, got: %s", text)
	}
}

func TestFormatStats(t *testing.T) {
	text := formatStats(&service.StatsInfo{})

	if !strings.Contains(text, "Active rooms: 0") {
		t.Errorf("Unexpected output: %s", text)
	}
	if !strings.Contains(text, "Player waiting: no") {
		t.Errorf("Unexpected output: %s", text)
	}
}

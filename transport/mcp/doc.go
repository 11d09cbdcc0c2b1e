// Package mcp provides a Model Context Protocol server for the Gomoku lobby.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Read-only tools over the lobby REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//   - lobby_stats: Active rooms, waiting player, connected players
//   - list_sessions: Forming and active sessions, filterable by state
//
// The client never touches the lobby directly; every tool is a GET against
// the REST API at baseURL.
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp

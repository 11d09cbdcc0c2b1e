// Package service provides the read-side service layer for the Gomoku server.
//
// LobbyService exposes lobby statistics and session listings to the HTTP
// and MCP surfaces without handing them the lobby itself. Matchmaking and
// relay stay in the transport and lobby packages.
//
// Usage:
//
//	l := lobby.New()
//	go l.Run(ctx)
//
//	hub := websocket.NewHub(l, websocket.DefaultOptions(), logger)
//	svc := service.NewLobbyService(l, hub)
//
//	stats, err := svc.Stats(ctx)
package service

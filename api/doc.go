// Package api provides the HTTP surface of the Gomoku server.
//
// The api package implements:
//   - Lobby statistics and session listing endpoints
//   - Health and Prometheus metrics endpoints
//   - WebSocket upgrade handling
//   - Optional static file serving
//
// Endpoints:
//
//   - GET /api/stats - Active rooms, pending slot, admitted players, live connections
//   - GET /api/sessions - Forming and active sessions (?state=, ?order=, ?limit=)
//   - GET /healthz - Liveness, fails once the lobby has stopped
//   - GET /metrics - Prometheus exposition
//   - GET /ws - WebSocket upgrade; the connection is paired with the next arrival
//
// Response Format:
//
// All /api responses are JSON. Errors use {"error": "message"}.
//
// Usage:
//
//	svc := service.NewLobbyService(l, hub)
//	server := api.NewServer(svc, hub, "./static")
//	http.ListenAndServe(":8080", server)
package api

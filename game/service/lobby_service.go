package service

import "context"

// LobbyService defines the read-side lobby operations exposed over HTTP
type LobbyService interface {
	Stats(ctx context.Context) (*StatsInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
}

// ConnectionCounter reports live transport connections
type ConnectionCounter interface {
	Count() int
}

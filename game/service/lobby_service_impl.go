package service

import (
	"context"
	"fmt"

	"github.com/wricardo/gomoku-server/game/lobby"
)

// lobbyService implements LobbyService on top of a running lobby
type lobbyService struct {
	lobby *lobby.Lobby
	conns ConnectionCounter
}

// NewLobbyService creates a new lobby service. conns may be nil.
func NewLobbyService(l *lobby.Lobby, conns ConnectionCounter) LobbyService {
	return &lobbyService{
		lobby: l,
		conns: conns,
	}
}

func (s *lobbyService) Stats(ctx context.Context) (*StatsInfo, error) {
	stats, err := s.lobby.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read lobby stats: %w", err)
	}

	info := &StatsInfo{
		Rooms:   stats.Rooms,
		Pending: stats.Pending,
		Players: stats.Connections,
	}
	if s.conns != nil {
		info.Connections = s.conns.Count()
	}

	return info, nil
}

func (s *lobbyService) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions, err := s.lobby.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := make([]*SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		info := &SessionInfo{
			ID:        session.ID,
			State:     string(session.State),
			Occupants: session.Occupants,
			CreatedAt: session.CreatedAt,
		}
		if !session.PairedAt.IsZero() {
			pairedAt := session.PairedAt
			info.PairedAt = &pairedAt
		}
		result = append(result, info)
	}

	return result, nil
}

package service

import (
	"context"
	"testing"

	"github.com/wricardo/gomoku-server/game/lobby"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

type nopHandle struct{}

func (nopHandle) Send([]byte) error { return nil }

func startLobby(t *testing.T) *lobby.Lobby {
	t.Helper()
	l := lobby.New()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return l
}

func TestLobbyServiceStats(t *testing.T) {
	l := startLobby(t)
	ctx := context.Background()
	svc := NewLobbyService(l, fixedCounter(4))

	l.Admit(ctx, "c1", nopHandle{})
	l.Admit(ctx, "c2", nopHandle{})
	l.Admit(ctx, "c3", nopHandle{})

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	want := StatsInfo{Rooms: 1, Pending: true, Players: 3, Connections: 4}
	if *stats != want {
		t.Errorf("Expected %+v, got %+v", want, *stats)
	}
}

func TestLobbyServiceStatsWithoutCounter(t *testing.T) {
	svc := NewLobbyService(startLobby(t), nil)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Connections != 0 {
		t.Errorf("Expected 0 connections, got %d", stats.Connections)
	}
}

func TestLobbyServiceListSessions(t *testing.T) {
	l := startLobby(t)
	ctx := context.Background()
	svc := NewLobbyService(l, nil)

	l.Admit(ctx, "c1", nopHandle{})
	l.Admit(ctx, "c2", nopHandle{})
	l.Admit(ctx, "c3", nopHandle{})

	sessions, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}

	states := map[string]*SessionInfo{}
	for _, s := range sessions {
		states[s.State] = s
	}

	active, ok := states["active"]
	if !ok || active.Occupants != 2 || active.PairedAt == nil {
		t.Errorf("Unexpected active session: %+v", active)
	}
	forming, ok := states["forming"]
	if !ok || forming.Occupants != 1 || forming.PairedAt != nil {
		t.Errorf("Unexpected forming session: %+v", forming)
	}
}

func TestLobbyServiceStoppedLobby(t *testing.T) {
	l := lobby.New()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.Run(ctx)
	}()
	cancel()
	<-stopped

	svc := NewLobbyService(l, nil)
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Error("Expected error from a stopped lobby")
	}
	if _, err := svc.ListSessions(context.Background()); err == nil {
		t.Error("Expected error from a stopped lobby")
	}
}

package lobby

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGaugesSumAcrossLobbies(t *testing.T) {
	basePending := testutil.ToFloat64(gaugePending)
	baseActive := testutil.ToFloat64(gaugeActiveSessions)
	baseConns := testutil.ToFloat64(gaugeConnections)
	ctx := context.Background()

	first := startLobby(t)
	if _, err := first.Admit(ctx, "a1", &recorder{}); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	// a second lobby with its own active session
	l := New()
	runCtx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.Run(runCtx)
	}()
	for _, id := range []ConnID{"b1", "b2", "b3"} {
		if _, err := l.Admit(ctx, id, &recorder{}); err != nil {
			t.Fatalf("Admit %s failed: %v", id, err)
		}
	}

	if got := testutil.ToFloat64(gaugePending) - basePending; got != 2 {
		t.Errorf("Expected 2 pending sessions, got %v", got)
	}
	if got := testutil.ToFloat64(gaugeActiveSessions) - baseActive; got != 1 {
		t.Errorf("Expected 1 active session, got %v", got)
	}
	if got := testutil.ToFloat64(gaugeConnections) - baseConns; got != 4 {
		t.Errorf("Expected 4 connections, got %v", got)
	}

	cancel()
	<-stopped

	if got := testutil.ToFloat64(gaugePending) - basePending; got != 1 {
		t.Errorf("Expected stopped lobby to release its pending session, got %v", got)
	}
	if got := testutil.ToFloat64(gaugeActiveSessions) - baseActive; got != 0 {
		t.Errorf("Expected stopped lobby to release its active session, got %v", got)
	}
	if got := testutil.ToFloat64(gaugeConnections) - baseConns; got != 1 {
		t.Errorf("Expected 1 connection left, got %v", got)
	}
}

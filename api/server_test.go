package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/gomoku-server/game/service"
)

// MockLobbyService implements service.LobbyService for testing
type MockLobbyService struct {
	StatsFunc        func(ctx context.Context) (*service.StatsInfo, error)
	ListSessionsFunc func(ctx context.Context) ([]*service.SessionInfo, error)
}

func (m *MockLobbyService) Stats(ctx context.Context) (*service.StatsInfo, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &service.StatsInfo{}, nil
}

func (m *MockLobbyService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func sampleSessions() []*service.SessionInfo {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	paired := base.Add(time.Second)
	return []*service.SessionInfo{
		{ID: "s1", State: "active", Occupants: 2, CreatedAt: base, PairedAt: &paired},
		{ID: "s2", State: "active", Occupants: 2, CreatedAt: base.Add(time.Minute), PairedAt: &paired},
		{ID: "s3", State: "forming", Occupants: 1, CreatedAt: base.Add(2 * time.Minute)},
	}
}

func TestHandleStats(t *testing.T) {
	mock := &MockLobbyService{
		StatsFunc: func(ctx context.Context) (*service.StatsInfo, error) {
			return &service.StatsInfo{Rooms: 3, Pending: true, Players: 7, Connections: 7}, nil
		},
	}
	server := NewServer(mock, nil, "")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var stats service.StatsInfo
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Rooms != 3 || !stats.Pending || stats.Players != 7 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestHandleStatsError(t *testing.T) {
	mock := &MockLobbyService{
		StatsFunc: func(ctx context.Context) (*service.StatsInfo, error) {
			return nil, errors.New("lobby closed")
		},
	}
	server := NewServer(mock, nil, "")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["error"] != "lobby closed" {
		t.Errorf("Expected error message, got %v", resp)
	}
}

func TestHandleListSessions(t *testing.T) {
	mock := &MockLobbyService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return sampleSessions(), nil
		},
	}
	server := NewServer(mock, nil, "")

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{"default newest first", "", []string{"s3", "s2", "s1"}, 3},
		{"ascending", "?order=asc", []string{"s1", "s2", "s3"}, 3},
		{"active only", "?state=active", []string{"s2", "s1"}, 2},
		{"forming only", "?state=forming", []string{"s3"}, 1},
		{"limit", "?limit=2", []string{"s3", "s2"}, 3},
		{"invalid limit ignored", "?limit=abc", []string{"s3", "s2", "s1"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/sessions"+tt.query, nil)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if resp.Total != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, resp.Total)
			}
			if resp.Count != len(tt.wantIDs) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.wantIDs), resp.Count)
			}
			for i, id := range tt.wantIDs {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	healthy := NewServer(&MockLobbyService{}, nil, "")

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	healthy.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	stopped := NewServer(&MockLobbyService{
		StatsFunc: func(ctx context.Context) (*service.StatsInfo, error) {
			return nil, errors.New("lobby closed")
		},
	}, nil, "")

	w = httptest.NewRecorder()
	stopped.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	server := NewServer(&MockLobbyService{}, nil, "")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected Prometheus exposition output")
	}
}

func TestHandleWebSocketWithoutHub(t *testing.T) {
	server := NewServer(&MockLobbyService{}, nil, "")

	req := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := NewServer(&MockLobbyService{}, nil, "")

	for _, path := range []string{"/api/stats", "/api/sessions", "/healthz", "/metrics"} {
		for _, method := range []string{"POST", "PUT", "DELETE"} {
			t.Run(method+" "+path, func(t *testing.T) {
				req := httptest.NewRequest(method, path, nil)
				w := httptest.NewRecorder()
				server.ServeHTTP(w, req)

				if w.Code != http.StatusMethodNotAllowed {
					t.Errorf("Expected status 405, got %d", w.Code)
				}
			})
		}
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Gomoku</h1>"), 0o644); err != nil {
		t.Fatalf("Failed to write index: %v", err)
	}

	server := NewServer(&MockLobbyService{}, nil, dir)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Gomoku") {
		t.Errorf("Expected index contents, got %s", w.Body.String())
	}

	noStatic := NewServer(&MockLobbyService{}, nil, "")
	w = httptest.NewRecorder()
	noStatic.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without static dir, got %d", w.Code)
	}
}

package service

import "time"

// StatsInfo summarizes the lobby
type StatsInfo struct {
	Rooms       int  `json:"rooms"`
	Pending     bool `json:"pending"`
	Players     int  `json:"players"`
	Connections int  `json:"connections"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID        string     `json:"id"`
	State     string     `json:"state"`
	Occupants int        `json:"occupants"`
	CreatedAt time.Time  `json:"created_at"`
	PairedAt  *time.Time `json:"paired_at,omitempty"`
}

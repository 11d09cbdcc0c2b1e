package lobby

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConnID identifies a single connection for its whole lifetime.
type ConnID string

// NewConnID mints a random 128-bit connection identifier.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Handle is the outbound side of a connection. Send must not block.
type Handle interface {
	Send(payload []byte) error
}

// Role is the seat an occupant holds within a session.
type Role int

const (
	// PlayerOne is assigned to the connection that opened the session.
	PlayerOne Role = iota + 1
	// PlayerTwo is assigned to the connection that completed it.
	PlayerTwo
)

func (r Role) String() string {
	switch r {
	case PlayerOne:
		return "player_one"
	case PlayerTwo:
		return "player_two"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (r Role) MarshalText() ([]byte, error) {
	if r != PlayerOne && r != PlayerTwo {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "player_one":
		*r = PlayerOne
	case "player_two":
		*r = PlayerTwo
	default:
		return fmt.Errorf("invalid role %q", text)
	}
	return nil
}

// Session is one paired game. It holds one occupant while forming and two
// once active; membership of an active session never changes.
type Session struct {
	ID        string
	CreatedAt time.Time
	PairedAt  time.Time

	occupants map[ConnID]Handle
	roles     map[ConnID]Role
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		occupants: make(map[ConnID]Handle, 2),
		roles:     make(map[ConnID]Role, 2),
	}
}

// Len returns the number of occupants.
func (s *Session) Len() int {
	return len(s.occupants)
}

// Active reports whether both seats are taken.
func (s *Session) Active() bool {
	return len(s.occupants) == 2
}

// Role returns the role held by the given connection.
func (s *Session) Role(id ConnID) (Role, bool) {
	role, ok := s.roles[id]
	return role, ok
}

func (s *Session) add(id ConnID, h Handle, role Role) {
	s.occupants[id] = h
	s.roles[id] = role
}

// opponent returns the occupant that is not id.
func (s *Session) opponent(id ConnID) (ConnID, Handle, bool) {
	for other, h := range s.occupants {
		if other != id {
			return other, h, true
		}
	}
	return "", nil, false
}

// SessionState describes where a session is in its lifecycle.
type SessionState string

const (
	StateForming SessionState = "forming"
	StateActive  SessionState = "active"
)

// SessionInfo is a read-only snapshot of a session.
type SessionInfo struct {
	ID        string
	State     SessionState
	Occupants int
	CreatedAt time.Time
	PairedAt  time.Time
}

// Stats summarizes the registry.
type Stats struct {
	Rooms       int
	Pending     bool
	Connections int
}

// Admission is the outcome of Lobby.Admit.
type Admission struct {
	SessionID string
	Role      Role
	// Paired is true when this arrival completed the session.
	Paired bool
}

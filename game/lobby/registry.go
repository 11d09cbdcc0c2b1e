package lobby

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConflict      = errors.New("registry conflict")
	ErrState         = errors.New("no pending session")
	ErrNotFound      = errors.New("connection not found")
	ErrNoOpponentYet = errors.New("no opponent yet")
)

// Registry holds the pending session slot, the active sessions and the
// connection-to-session mapping. It is not safe for concurrent use.
type Registry struct {
	pending *Session
	active  map[string]*Session
	conns   map[ConnID]*Session

	now func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]*Session),
		conns:  make(map[ConnID]*Session),
		now:    time.Now,
	}
}

// CreatePending opens a new forming session holding id as its only occupant.
func (r *Registry) CreatePending(id ConnID, h Handle) (string, error) {
	if r.pending != nil {
		return "", fmt.Errorf("%w: pending session %s already exists", ErrConflict, r.pending.ID)
	}
	if _, exists := r.conns[id]; exists {
		return "", fmt.Errorf("%w: connection %s already admitted", ErrConflict, id)
	}

	session := newSession(uuid.NewString(), r.now())
	session.add(id, h, PlayerOne)

	r.pending = session
	r.conns[id] = session

	return session.ID, nil
}

// JoinPending adds id to the pending session, which becomes active.
func (r *Registry) JoinPending(id ConnID, h Handle) (string, error) {
	if r.pending == nil {
		return "", ErrState
	}
	if _, exists := r.conns[id]; exists {
		return "", fmt.Errorf("%w: connection %s already admitted", ErrConflict, id)
	}

	session := r.pending
	session.add(id, h, PlayerTwo)
	session.PairedAt = r.now()

	r.active[session.ID] = session
	r.pending = nil
	r.conns[id] = session

	return session.ID, nil
}

// Lookup returns the session id currently belongs to.
func (r *Registry) Lookup(id ConnID) (*Session, error) {
	session, exists := r.conns[id]
	if !exists {
		return nil, ErrNotFound
	}
	return session, nil
}

// RelayTarget returns the opponent of id. A forming session yields
// ErrNoOpponentYet.
func (r *Registry) RelayTarget(id ConnID) (ConnID, Handle, error) {
	session, err := r.Lookup(id)
	if err != nil {
		return "", nil, err
	}
	if !session.Active() {
		return "", nil, ErrNoOpponentYet
	}

	other, h, _ := session.opponent(id)
	return other, h, nil
}

// Destroy removes the session id belongs to, including every occupant's
// mapping. It returns the remaining occupant when there is one.
func (r *Registry) Destroy(id ConnID) (ConnID, Handle, bool) {
	session, exists := r.conns[id]
	if !exists {
		return "", nil, false
	}

	for occupant := range session.occupants {
		delete(r.conns, occupant)
	}
	delete(r.active, session.ID)
	if r.pending == session {
		r.pending = nil
	}

	return session.opponent(id)
}

// HasPending reports whether a forming session is waiting for an opponent.
func (r *Registry) HasPending() bool {
	return r.pending != nil
}

// ActiveCount returns the number of active sessions.
func (r *Registry) ActiveCount() int {
	return len(r.active)
}

// ConnCount returns the number of admitted connections.
func (r *Registry) ConnCount() int {
	return len(r.conns)
}

// Stats summarizes the registry.
func (r *Registry) Stats() Stats {
	return Stats{
		Rooms:       len(r.active),
		Pending:     r.pending != nil,
		Connections: len(r.conns),
	}
}

// Snapshot returns every forming and active session, oldest first.
func (r *Registry) Snapshot() []SessionInfo {
	result := make([]SessionInfo, 0, len(r.active)+1)
	if r.pending != nil {
		result = append(result, info(r.pending))
	}
	for _, session := range r.active {
		result = append(result, info(session))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func info(s *Session) SessionInfo {
	state := StateForming
	if s.Active() {
		state = StateActive
	}
	return SessionInfo{
		ID:        s.ID,
		State:     state,
		Occupants: s.Len(),
		CreatedAt: s.CreatedAt,
		PairedAt:  s.PairedAt,
	}
}

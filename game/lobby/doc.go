// Package lobby pairs real-time connections into two-player sessions and
// relays opaque messages between the two occupants of a session.
//
// The lobby package implements:
//   - A session registry with a single pending (half-filled) session slot
//   - Matchmaking: every arrival joins the pending session or starts a new one
//   - Content-blind relay of payloads to the opponent
//   - Terminal teardown of a session when either occupant disconnects
//
// Core Types:
//
// Registry owns all session state: the pending slot, the active sessions
// keyed by session ID, and the mapping from connection ID to session. It is
// not safe for concurrent use and is owned by a single Lobby.
//
// Lobby is the serialized executor around a Registry. Admit, Relay, Close and
// the read-only queries are submitted to the goroutine running Lobby.Run and
// executed one at a time, so two simultaneous arrivals can never both observe
// an empty pending slot.
//
// Handle is the outbound side of a connection, supplied by the transport.
// Handle.Send must not block; the websocket transport enqueues into a
// buffered channel and closes the socket when the buffer is full.
//
// Events:
//
// Role assignment ("start") is sent to both occupants the moment a session
// becomes active. The survivor of a teardown receives "opponent_left". Every
// other payload is forwarded byte-for-byte.
//
// Usage:
//
//	l := lobby.New(lobby.WithLogger(logger))
//	go l.Run(ctx)
//
//	id := lobby.NewConnID()
//	adm, err := l.Admit(ctx, id, handle)
//	...
//	l.Relay(ctx, id, payload)
//	...
//	l.Close(ctx, id)
package lobby

// Package websocket provides the WebSocket transport for the Gomoku server.
//
// The websocket package implements:
//   - Connection upgrade and origin checks
//   - Admission of every new connection to the lobby
//   - Relay of inbound text frames through the lobby
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub tracks all
// WebSocket connections. Each client connection is handled by two goroutines:
// a read pump that forwards frames to the lobby, and a write pump that owns
// every write to the socket.
//
// Message Protocol:
//
// The transport is content-blind. Text frames from one player are written
// unchanged to the opponent, one frame per message. The lobby adds two
// lifecycle events of its own:
//   - {"event":"start","session_id":"…","role":"player_one"}
//   - {"event":"opponent_left","session_id":"…"}
//
// Binary frames are ignored.
//
// Usage:
//
//	hub := websocket.NewHub(l, websocket.DefaultOptions(), logger)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Client connects and is given a fresh connection ID
// 2. Connection registered with hub and admitted to the lobby
// 3. Start events arrive once an opponent joins
// 4. Frames are relayed to the opponent
// 5. Disconnection closes the session and notifies the opponent
//
// Backpressure:
//
// A client whose send buffer fills is disconnected. Its read pump then
// reports the close to the lobby like any other disconnect.
package websocket

// Package websocket provides WebSocket transport for the CO2 Grid Game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after every action and reset
//   - Game event delivery (run_finished, new_highscore, reset)
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a dedicated
// goroutine that manages reading, writing, and cleanup.
//
// Message Protocol:
//
// Messages are JSON-encoded with the following structure:
//   - Outgoing state: {session_id, event: "state_update", game_state, leaderboard}
//   - Outgoing event: {session_id, event: "run_finished", data}
//
// Clients do not send game commands over the socket; actions go through the
// REST API.
//
// Session Integration:
//
// WebSocket connections are session-aware. Clients specify their session ID
// via query parameter (?session=ab12) when establishing the connection.
// State updates are broadcast only to clients connected to the same session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastState(sessionID, result.Revision, result.GameState, result.Leaderboard)
//
// Concurrency:
//
// Registration and delivery run on the hub loop. Broadcasts are queued and
// never block the caller; a full queue drops the message, and a client whose
// send buffer is full is disconnected.
package websocket

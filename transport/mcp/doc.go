// Package mcp provides a Model Context Protocol server for the CO2 Grid Game.
//
// The server is a thin proxy: every tool calls the REST API of a running
// game server, so agents and browsers share the same sessions.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: HUD and grid with the player icon
//   - perform_action: travel with one transport mode (car, plane, bike, walk,
//     train, bus, motorbike)
//   - reset_game: abandon the current run
//   - leaderboard: top scores of finished runs
//   - list_actions, list_configs: describe the available tables
//   - game_instructions: full rules
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp

// Package session manages the players of a game server.
//
// Each session owns its own engine instance and a Persistence adapter that
// scopes the player's keys in the shared store:
//
//	<id>:session     metadata (config, created/accessed times)
//	<id>:gameState   GridState as a JSON object
//	<id>:topScores   leaderboard as a JSON array of integers
//
// The single-player terminal client uses the same adapter with bare keys
// (gameState, topScores), matching the layout of the browser version of the
// game. Loading never fails: a missing or corrupted entry falls back to the
// start-of-run defaults field by field, and the browser's legacy field names
// (playerX, playerY, co2Level, playerIcon) are accepted.
//
// Usage:
//
//	store, _ := storage.Open("badger:data", logger)
//	manager := session.NewManagerWithStore(store, configManager)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", "classic", config)
//
// Sessions evicted by CleanupExpiredSessions keep their stored progress and
// are loaded back lazily by Get.
package session

// Package engine provides the core game logic for the CO2 Grid Game.
//
// The engine package implements the game mechanics including:
//   - Row-wrapping movement across a fixed COLS×ROWS grid
//   - Score accumulation and the max-of-history highscore
//   - The bounded CO2 gauge
//   - Terminal-cell detection and the capped leaderboard
//   - Configuration loading and validation
//
// Core Types:
//
// GridState is the player's state, Action is one entry of the fixed transport
// catalog and Leaderboard is the descending list of finished run scores.
// Apply and CheckEnd are pure functions over those values; GameEngine owns one
// state and leaderboard and runs both for every performed action.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := gameEngine.Perform(engine.Train)
//	if outcome.Finished {
//		fmt.Println("final score", outcome.FinalScore)
//	}
//
// Game Rules:
//
// Players choose a transport mode for every move. Clean modes move the player
// forward and earn points while lowering CO2; polluting modes move the player
// back, cost points and raise CO2. Reaching the bottom-right cell ends the run
// and records its score on the leaderboard.
package engine

// Package config provides configuration management for the CO2 Grid Game.
//
// The config package handles:
//   - Loading game configurations from JSON and YAML files
//   - Configuration validation
//   - Default configuration management
//   - Configuration discovery and listing
//   - Hot reload when files in the config directory change
//
// Configuration Format:
//
// Game configurations live in the configs directory as <id>.json,
// <id>.yaml or <id>.yml. Each configuration defines the grid size, the CO2
// ceiling, the leaderboard size, the step mode and the transport action
// table:
//
//	name: compact
//	cols: 12
//	rows: 12
//	max_co2: 5
//	step_mode: single
//	actions:
//	  - {id: bike, label: Fiets, icon: "🚲", step_delta: 1, score_delta: 5, co2_delta: -2}
//
// Available Configurations:
//   - classic: 12x12 grid with the icon-based transport table
//   - compact: the alternate table, one cell per action
//   - sprint: small 6x4 board for quick rounds
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("compact")
//
//	// Reload edited files until ctx is cancelled
//	go manager.Watch(ctx, nil)
//
// Validation:
//
// All configurations are checked for grid and CO2 bounds, known and unique
// action ids, non-zero steps, and a terminal cell that can be reached from
// the start cell with the configured actions.
package config

// Package service provides the business logic layer for the CO2 Grid Game.
//
// The service package implements:
//   - Multi-session game management
//   - Action processing with persistence after every step
//   - Forwarding the CO2 level to the optional serial display
//   - Game events for transports (action, co2_changed, new_highscore, run_finished)
//
// Core Interfaces:
//
// GameService is the main service interface used by the REST, WebSocket and
// MCP layers. SessionManager handles session creation, retrieval and
// lifecycle. ConfigManager loads game configurations. DeviceController is
// the connection to the CO2 display; its Push never blocks and never fails
// the action that triggered it.
//
// Usage:
//
//	sessions := session.NewManagerWithStore(store, configs)
//	gameService := service.NewGameService(sessions, configs,
//		service.WithDevice(link),
//		service.WithLogger(logger),
//	)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.PerformAction(ctx, info.ID, engine.Bike)
//
// Concurrency:
//
// Actions and resets are serialized by the service. Reads take a shared lock.
package service

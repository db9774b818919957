package engine

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownAction = errors.New("unknown action")

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() GridState
	SetState(state GridState) error
	GetLeaderboard() Leaderboard
	SetLeaderboard(board Leaderboard)
	Reset() GridState

	// Actions
	Perform(id ActionID) (*Outcome, error)
	Actions() []Action

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access.
type GameEngine struct {
	state       GridState
	leaderboard Leaderboard
	config      *GameConfig
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return &GameEngine{
		config:      config,
		state:       NewGridState(config),
		leaderboard: Leaderboard{},
	}, nil
}

// NewEngineWithDefaults creates a new game engine with the classic configuration
func NewEngineWithDefaults() *GameEngine {
	config := DefaultConfig()
	return &GameEngine{
		config:      config,
		state:       NewGridState(config),
		leaderboard: Leaderboard{},
	}
}

// GetState returns the current game state
func (e *GameEngine) GetState() GridState {
	return e.state
}

// SetState replaces the game state (used for persistence loading)
func (e *GameEngine) SetState(state GridState) error {
	if !state.InBounds(e.config) {
		return fmt.Errorf("position (%d,%d) is outside the %dx%d grid", state.X, state.Y, e.config.Cols, e.config.Rows)
	}
	if state.CO2 < 0 || state.CO2 > e.config.MaxCO2 {
		return fmt.Errorf("co2 %d is outside [0,%d]", state.CO2, e.config.MaxCO2)
	}
	if state.HighScore < state.Score {
		state.HighScore = state.Score
	}
	e.state = state
	return nil
}

// GetLeaderboard returns a copy of the leaderboard
func (e *GameEngine) GetLeaderboard() Leaderboard {
	return slices.Clone(e.leaderboard)
}

// SetLeaderboard replaces the leaderboard, restoring its ordering and cap
func (e *GameEngine) SetLeaderboard(board Leaderboard) {
	e.leaderboard = board.Normalize(e.config.LeaderboardSize)
}

// Reset abandons the current run without recording it. HighScore is kept.
func (e *GameEngine) Reset() GridState {
	high := e.state.HighScore
	e.state = NewGridState(e.config)
	e.state.HighScore = high
	return e.state
}

// Perform applies the action to the current state and then runs the end check
func (e *GameEngine) Perform(id ActionID) (*Outcome, error) {
	action, ok := e.config.Action(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}

	before := e.state
	applied := Apply(before, action, e.config)

	outcome := &Outcome{
		Action:       action,
		Before:       before,
		NewHighScore: applied.HighScore > before.HighScore,
	}

	after, board, finished := CheckEnd(applied, e.leaderboard, e.config)
	if finished {
		outcome.Finished = true
		outcome.FinalScore = applied.Score
		e.leaderboard = board
	}

	e.state = after
	outcome.After = after
	outcome.Leaderboard = e.GetLeaderboard()
	return outcome, nil
}

// Actions returns the configured action catalog
func (e *GameEngine) Actions() []Action {
	return slices.Clone(e.config.Actions)
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.state = NewGridState(config)
	e.leaderboard = e.leaderboard.Normalize(config.LeaderboardSize)
	return nil
}

// Summary describes the action behind an outcome with its configured score
// and CO₂ deltas, e.g. "🚲 Fiets: score +5, CO₂ -2".
func (o *Outcome) Summary() string {
	return fmt.Sprintf("%s: score %+d, CO₂ %+d", o.Action.Label, o.Action.ScoreDelta, o.Action.CO2Delta)
}

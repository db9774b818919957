package service

import (
	"time"

	"github.com/wricardo/co2-grid-game/game/engine"
)

// Event types emitted by the service
const (
	EventAction       = "action"
	EventCO2Changed   = "co2_changed"
	EventNewHighScore = "new_highscore"
	EventRunFinished  = "run_finished"
	EventReset        = "reset"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      engine.GridState   `json:"game_state"`
	Leaderboard    engine.Leaderboard `json:"leaderboard"`
	GameConfig     *engine.GameConfig `json:"game_config,omitempty"`
}

// ActionResult contains the result of a single action
type ActionResult struct {
	Action      engine.ActionID    `json:"action"`
	GameState   engine.GridState   `json:"game_state"`
	Leaderboard engine.Leaderboard `json:"leaderboard"`
	Finished    bool               `json:"finished"`
	FinalScore  int                `json:"final_score,omitempty"`
	Message     string             `json:"message"`
	Events      []GameEvent        `json:"events"`
	Revision    uint64             `json:"revision"`
}

// ResetResult is the state a session starts over from
type ResetResult struct {
	GameState engine.GridState `json:"game_state"`
	Revision  uint64           `json:"revision"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Score     *int      `json:"score,omitempty"`
	CO2       *int      `json:"co2,omitempty"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Cols        int    `json:"cols"`
	Rows        int    `json:"rows"`
	MaxCO2      int    `json:"max_co2"`
	StepMode    string `json:"step_mode"`
	Actions     int    `json:"actions"`
}

// DeviceStatus describes the serial display connection
type DeviceStatus struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port,omitempty"`
	Baud      int    `json:"baud,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

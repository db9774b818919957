package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/wricardo/co2-grid-game/game/engine"
	"github.com/wricardo/co2-grid-game/game/storage"
)

// Store keys. Server sessions prefix them with "<sessionID>:".
const (
	StateKey       = "gameState"
	LeaderboardKey = "topScores"
	SessionKey     = "session"
)

// Field aliases accepted when reading a saved state. The second name is the
// one written by the browser version of the game.
var stateFields = map[string][]string{
	"x":         {"x", "playerX"},
	"y":         {"y", "playerY"},
	"score":     {"score"},
	"highScore": {"highScore", "highscore"},
	"co2":       {"co2", "co2Level"},
	"icon":      {"icon", "playerIcon"},
}

// Persistence reads and writes one player's GridState and leaderboard.
// Loading never fails: anything missing or malformed falls back to the
// start-of-run defaults field by field.
type Persistence struct {
	store  storage.Store
	prefix string
	config *engine.GameConfig
}

// NewPersistence creates an adapter using the bare keys (single player)
func NewPersistence(store storage.Store, config *engine.GameConfig) *Persistence {
	return &Persistence{store: store, config: config}
}

// NewSessionPersistence creates an adapter whose keys are scoped to a session
func NewSessionPersistence(store storage.Store, sessionID string, config *engine.GameConfig) *Persistence {
	return &Persistence{store: store, prefix: sessionID + ":", config: config}
}

// Key returns the store key for name under this adapter's scope
func (p *Persistence) Key(name string) string {
	return p.prefix + name
}

// SaveState writes the state as a JSON object
func (p *Persistence) SaveState(state engine.GridState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}
	if err := p.store.Set(p.Key(StateKey), data); err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}
	return nil
}

// LoadState reads the saved state, repairing whatever it can
func (p *Persistence) LoadState() engine.GridState {
	state := engine.NewGridState(p.config)

	data, err := p.store.Get(p.Key(StateKey))
	if err != nil {
		return state
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return state
	}

	if x, ok := intField(raw, "x"); ok && x >= 0 && x < p.config.Cols {
		state.X = x
	}
	if y, ok := intField(raw, "y"); ok && y >= 0 && y < p.config.Rows {
		state.Y = y
	}
	if score, ok := intField(raw, "score"); ok {
		state.Score = score
	}
	if high, ok := intField(raw, "highScore"); ok {
		state.HighScore = high
	}
	if co2, ok := intField(raw, "co2"); ok {
		state.CO2 = min(max(co2, 0), p.config.MaxCO2)
	}
	if icon, ok := stringField(raw, "icon"); ok && icon != "" {
		state.Icon = icon
	}

	if state.HighScore < state.Score {
		state.HighScore = state.Score
	}
	return state
}

// SaveLeaderboard writes the leaderboard as a JSON array of integers
func (p *Persistence) SaveLeaderboard(board engine.Leaderboard) error {
	if board == nil {
		board = engine.Leaderboard{}
	}
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	if err := p.store.Set(p.Key(LeaderboardKey), data); err != nil {
		return fmt.Errorf("failed to save leaderboard: %w", err)
	}
	return nil
}

// LoadLeaderboard reads the leaderboard, dropping entries that are not
// integers and restoring order and size
func (p *Persistence) LoadLeaderboard() engine.Leaderboard {
	board := engine.Leaderboard{}

	data, err := p.store.Get(p.Key(LeaderboardKey))
	if err != nil {
		return board
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return board
	}

	for _, entry := range entries {
		if score, ok := parseInt(entry); ok {
			board = append(board, score)
		}
	}
	return board.Normalize(p.config.LeaderboardSize)
}

// Clear removes everything this adapter has written
func (p *Persistence) Clear() error {
	var errs []error
	for _, name := range []string{StateKey, LeaderboardKey} {
		if err := p.store.Delete(p.Key(name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PersistedSessionData is the metadata record stored under "<id>:session".
// Game progress lives in the sibling gameState and topScores keys.
type PersistedSessionData struct {
	ID             string    `json:"id"`
	ConfigName     string    `json:"config_name"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

func intField(raw map[string]json.RawMessage, field string) (int, bool) {
	for _, name := range stateFields[field] {
		if value, ok := raw[name]; ok {
			return parseInt(value)
		}
	}
	return 0, false
}

func stringField(raw map[string]json.RawMessage, field string) (string, bool) {
	for _, name := range stateFields[field] {
		if value, ok := raw[name]; ok {
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return "", false
			}
			return s, true
		}
	}
	return "", false
}

// parseInt accepts JSON numbers with an integral value. Plain integers are
// read exactly over the whole int range; forms like 2.0 or 1e3 only up to
// 2^53, where float64 stops being exact.
func parseInt(value json.RawMessage) (int, bool) {
	// json.Number also takes quoted digits; stored scores are bare numbers
	if len(value) == 0 || value[0] == '"' {
		return 0, false
	}

	var n json.Number
	if err := json.Unmarshal(value, &n); err != nil {
		return 0, false
	}
	if i, err := strconv.Atoi(n.String()); err == nil {
		return i, true
	}

	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int(f), true
}

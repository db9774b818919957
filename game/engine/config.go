package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Messages holds the user-facing texts of a configuration
type Messages struct {
	Welcome      string `json:"welcome" yaml:"welcome"`
	RunFinished  string `json:"run_finished" yaml:"run_finished"`
	NewHighScore string `json:"new_highscore" yaml:"new_highscore"`
}

// GameConfig represents the game configuration loaded from JSON or YAML
type GameConfig struct {
	Name            string   `json:"name" yaml:"name" validate:"required"`
	Description     string   `json:"description" yaml:"description" validate:"required"`
	Cols            int      `json:"cols" yaml:"cols" validate:"min=2,max=64"`
	Rows            int      `json:"rows" yaml:"rows" validate:"min=2,max=64"`
	MaxCO2          int      `json:"max_co2" yaml:"max_co2" validate:"min=1,max=100"`
	LeaderboardSize int      `json:"leaderboard_size" yaml:"leaderboard_size" validate:"min=1,max=100"`
	StepMode        StepMode `json:"step_mode,omitempty" yaml:"step_mode,omitempty" validate:"omitempty,oneof=full single"`
	DefaultIcon     string   `json:"default_icon,omitempty" yaml:"default_icon,omitempty"`
	Actions         []Action `json:"actions" yaml:"actions" validate:"required,min=1,dive"`
	Messages        Messages `json:"messages" yaml:"messages"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	if err := configValidator.Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Param() != "" {
				return fmt.Errorf("config validation: %s failed '%s=%s', got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
			}
			return fmt.Errorf("config validation: %s failed '%s'", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config validation: %w", err)
	}

	seen := make(map[ActionID]bool, len(config.Actions))
	hasForward := false
	for i, action := range config.Actions {
		if !action.ID.Valid() {
			return fmt.Errorf("config validation: actions[%d] has unknown id '%s'", i, action.ID)
		}
		if seen[action.ID] {
			return fmt.Errorf("config validation: action '%s' is defined twice", action.ID)
		}
		seen[action.ID] = true

		if action.StepDelta == 0 {
			return fmt.Errorf("config validation: action '%s' must move the player", action.ID)
		}
		if action.StepDelta > MaxStepDelta || action.StepDelta < -MaxStepDelta {
			return fmt.Errorf("config validation: action '%s' step_delta must be within ±%d, got %d",
				action.ID, MaxStepDelta, action.StepDelta)
		}
		if action.StepDelta > 0 {
			hasForward = true
		}
	}

	if !hasForward {
		return fmt.Errorf("config validation: at least one action must move forward")
	}

	if config.Messages.RunFinished != "" && !strings.Contains(config.Messages.RunFinished, "%d") {
		return fmt.Errorf("config validation: messages.run_finished must contain %%d for the final score")
	}

	// The terminal cell must be reachable from the start cell
	if _, ok := ShortestRoute(config); !ok {
		return fmt.Errorf("config validation: terminal cell (%d, %d) is unreachable with the configured actions",
			config.Cols-1, config.Rows-1)
	}

	return nil
}

// DecodeGameConfig parses a configuration document. The format is picked from
// the file extension; anything other than .yaml/.yml is treated as JSON.
func DecodeGameConfig(data []byte, filename string) (*GameConfig, error) {
	var config GameConfig

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}

	config.applyDefaults()
	return &config, nil
}

// LoadGameConfig loads and validates a game configuration file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(data, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyDefaults fills optional fields left empty in a config document
func (c *GameConfig) applyDefaults() {
	if c.StepMode == "" {
		c.StepMode = StepFull
	}
	if c.DefaultIcon == "" {
		c.DefaultIcon = DefaultIcon
	}
	if c.Messages.RunFinished == "" {
		c.Messages.RunFinished = "🎉 Einde grid! Score: %d"
	}
}

// Action looks up an action of this configuration by id
func (c *GameConfig) Action(id ActionID) (Action, bool) {
	for _, action := range c.Actions {
		if action.ID == id {
			return action, true
		}
	}
	return Action{}, false
}

// Terminal returns the coordinates of the cell that ends a run
func (c *GameConfig) Terminal() (int, int) {
	return c.Cols - 1, c.Rows - 1
}

// DefaultConfig returns the canonical 12×12 configuration with the
// icon-based action table
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:            "classic",
		Description:     "12×12 grid with the icon-based transport table",
		Cols:            DefaultCols,
		Rows:            DefaultRows,
		MaxCO2:          DefaultMaxCO2,
		LeaderboardSize: DefaultLeaderboardSize,
		StepMode:        StepFull,
		DefaultIcon:     DefaultIcon,
		Actions: []Action{
			{ID: Car, Label: "🚗 Auto", Icon: "🚗", StepDelta: -1, ScoreDelta: -5, CO2Delta: 2},
			{ID: Plane, Label: "✈️ Vliegtuig", Icon: "✈️", StepDelta: -2, ScoreDelta: -8, CO2Delta: 3},
			{ID: Bike, Label: "🚲 Fiets", Icon: "🚲", StepDelta: 5, ScoreDelta: 5, CO2Delta: -2},
			{ID: Walk, Label: "🚶 Wandelen", Icon: "🚶", StepDelta: 5, ScoreDelta: 5, CO2Delta: -2},
			{ID: Train, Label: "🚆 Trein", Icon: "🚆", StepDelta: 1, ScoreDelta: 2, CO2Delta: -1},
			{ID: Bus, Label: "🚌 Bus", Icon: "🚌", StepDelta: 1, ScoreDelta: 2, CO2Delta: -1},
			{ID: Motorbike, Label: "🏍️ Motor/scooter", Icon: "🏍️", StepDelta: -1, ScoreDelta: -5, CO2Delta: 1},
		},
	}
	config.Messages.Welcome = "Kies een vervoersmiddel en bereik de rechteronderhoek!"
	config.Messages.RunFinished = "🎉 Einde grid! Score: %d"
	config.Messages.NewHighScore = "Nieuwe highscore!"
	return config
}

// NewGridState returns the start-of-run state for a configuration
func NewGridState(config *GameConfig) GridState {
	icon := DefaultIcon
	if config != nil && config.DefaultIcon != "" {
		icon = config.DefaultIcon
	}
	return GridState{Icon: icon}
}

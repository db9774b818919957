package engine

// ActionID identifies one of the fixed transport modes
type ActionID string

const (
	Car       ActionID = "car"
	Plane     ActionID = "plane"
	Bike      ActionID = "bike"
	Walk      ActionID = "walk"
	Train     ActionID = "train"
	Bus       ActionID = "bus"
	Motorbike ActionID = "motorbike"
)

// StepMode selects how an action's step delta is turned into movement
type StepMode string

const (
	// StepFull moves |StepDelta| cells.
	StepFull StepMode = "full"
	// StepSingle moves one cell in the direction of StepDelta.
	StepSingle StepMode = "single"
)

const (
	DefaultCols            = 12
	DefaultRows            = 12
	DefaultMaxCO2          = 5
	DefaultLeaderboardSize = 10
	DefaultIcon            = "🙂"

	// Validation constants
	MinGridSize        = 2
	MaxGridSize        = 64
	MaxCO2Limit        = 100
	MaxLeaderboardSize = 100
	MaxStepDelta       = 64
)

// AllActionIDs lists the catalog in display order
var AllActionIDs = []ActionID{Car, Plane, Bike, Walk, Train, Bus, Motorbike}

// Valid reports whether id names a transport mode
func (id ActionID) Valid() bool {
	for _, known := range AllActionIDs {
		if id == known {
			return true
		}
	}
	return false
}

// Action is one immutable entry of the action catalog
type Action struct {
	ID         ActionID `json:"id" yaml:"id" validate:"required"`
	Label      string   `json:"label" yaml:"label" validate:"required"`
	Icon       string   `json:"icon" yaml:"icon"`
	StepDelta  int      `json:"step_delta" yaml:"step_delta"`
	ScoreDelta int      `json:"score_delta" yaml:"score_delta"`
	CO2Delta   int      `json:"co2_delta" yaml:"co2_delta"`
}

// GridState represents the player's persisted state
type GridState struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Score     int    `json:"score"`
	HighScore int    `json:"highScore"`
	CO2       int    `json:"co2"`
	Icon      string `json:"icon,omitempty"`
}

// Leaderboard holds finished run scores, highest first
type Leaderboard []int

// Outcome describes what a single performed action did
type Outcome struct {
	Action       Action      `json:"action"`
	Before       GridState   `json:"before"`
	After        GridState   `json:"after"`
	Finished     bool        `json:"finished"`
	FinalScore   int         `json:"final_score,omitempty"`
	NewHighScore bool        `json:"new_highscore,omitempty"`
	Leaderboard  Leaderboard `json:"leaderboard"`
}

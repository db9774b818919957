// Command analyze prints quick, human-readable facts about the configuration
// files in the project's configs directory: grid dimensions, the fewest
// actions needed to finish a run, and how each transport mode scores when it
// is used for a whole run.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/wricardo/co2-grid-game/game/engine"
)

// StrategyResult is the outcome of playing one action repeatedly
type StrategyResult struct {
	Action   engine.ActionID
	Moves    int
	Score    int
	PeakCO2  int
	Finished bool
}

// Analysis summarizes one configuration
type Analysis struct {
	Name          string
	Cols, Rows    int
	MaxCO2        int
	StepMode      engine.StepMode
	ShortestRoute int
	Reachable     bool
	Strategies    []StrategyResult
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, _ := filepath.Glob(filepath.Join(configDir, pattern))
		files = append(files, matches...)
	}
	slices.Sort(files)

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))

		config, err := engine.LoadGameConfig(file)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			continue
		}
		printAnalysis(analyzeConfig(config))
	}
}

// analyzeConfig computes the route length and single-action strategies
func analyzeConfig(config *engine.GameConfig) Analysis {
	route, ok := engine.ShortestRoute(config)
	analysis := Analysis{
		Name:          config.Name,
		Cols:          config.Cols,
		Rows:          config.Rows,
		MaxCO2:        config.MaxCO2,
		StepMode:      config.StepMode,
		ShortestRoute: route,
		Reachable:     ok,
	}

	for _, action := range config.Actions {
		if action.StepDelta > 0 {
			analysis.Strategies = append(analysis.Strategies, playOnly(config, action.ID))
		}
	}
	return analysis
}

// playOnly performs one action until the run finishes or the move budget
// of two full passes over the grid is spent
func playOnly(config *engine.GameConfig, id engine.ActionID) StrategyResult {
	result := StrategyResult{Action: id}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return result
	}

	limit := config.Cols * config.Rows * 2
	for result.Moves < limit {
		outcome, err := eng.Perform(id)
		if err != nil {
			return result
		}
		result.Moves++
		result.PeakCO2 = max(result.PeakCO2, outcome.After.CO2)

		if outcome.Finished {
			result.Finished = true
			result.Score = outcome.FinalScore
			return result
		}
		result.Score = outcome.After.Score
	}
	return result
}

func printAnalysis(a Analysis) {
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Grid Size: %d x %d\n", a.Cols, a.Rows)
	fmt.Printf("Max CO₂: %d\n", a.MaxCO2)
	fmt.Printf("Step Mode: %s\n", a.StepMode)

	if !a.Reachable {
		fmt.Printf("⚠️  CRITICAL: the final cell cannot be reached\n")
		return
	}
	fmt.Printf("✅ Shortest run: %d actions\n", a.ShortestRoute)

	for _, s := range a.Strategies {
		if !s.Finished {
			fmt.Printf("   only %-10s never lands on the final cell (%d moves tried)\n", s.Action, s.Moves)
			continue
		}
		fmt.Printf("   only %-10s %3d moves, score %4d, peak CO₂ %d\n", s.Action, s.Moves, s.Score, s.PeakCO2)
	}
}

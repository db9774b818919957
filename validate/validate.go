// Command validate checks the game configuration files in a configs
// directory (default ../configs). For every JSON or YAML file it reports:
//   - parse errors and schema violations (grid size, CO2 limit, actions)
//   - missing user-facing messages
//   - whether the terminal cell can be reached from the start cell
//
// It exits with a non-zero status if any configuration is invalid.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wricardo/co2-grid-game/game/engine"
)

// requiredMessages lists the message keys every shipped config must set
var requiredMessages = []string{"welcome", "run_finished", "new_highscore"}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	config, err := engine.LoadGameConfig(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	messages := map[string]string{
		"welcome":       config.Messages.Welcome,
		"run_finished":  config.Messages.RunFinished,
		"new_highscore": config.Messages.NewHighScore,
	}
	for _, key := range requiredMessages {
		if messages[key] == "" {
			result.fail("Missing required message: %s", key)
		}
	}

	for _, id := range engine.AllActionIDs {
		if _, ok := config.Action(id); !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("⚠ Action %s is not configured", id))
		}
	}

	if !result.Valid {
		return result
	}

	route, _ := engine.ShortestRoute(config)
	tx, ty := config.Terminal()
	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Name: %s", config.Name),
		fmt.Sprintf("✓ Grid: %dx%d", config.Cols, config.Rows),
		fmt.Sprintf("✓ Max CO₂: %d", config.MaxCO2),
		fmt.Sprintf("✓ Step mode: %s", config.StepMode),
		fmt.Sprintf("✓ Actions: %d", len(config.Actions)),
		fmt.Sprintf("✓ Terminal (%d,%d) reachable in %d actions", tx, ty, route),
	)

	return result
}

// configFiles lists the configuration files of dir in name order
func configFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}

// main validates every config file and prints a concise report
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := configFiles(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No config files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `name: test
description: Test configuration
cols: 4
rows: 3
max_co2: 5
leaderboard_size: 10
actions:
  - {id: bike, label: Fiets, icon: "🚲", step_delta: 2, score_delta: 5, co2_delta: -2}
  - {id: car, label: Auto, icon: "🚗", step_delta: -1, score_delta: -5, co2_delta: 2}
messages:
  welcome: Welkom!
  run_finished: "Einde grid! Score: %d"
  new_highscore: Nieuwe highscore!
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func hasLine(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeConfig(t, "test.yaml", validYAML)

	result := validateConfig(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, but got errors: %v", result.Errors)
	}
	if result.File != "test.yaml" {
		t.Errorf("Expected file name test.yaml, got %s", result.File)
	}

	if !hasLine(result.Errors, "✓ Grid: 4x3") || !hasLine(result.Errors, "reachable in") {
		t.Errorf("Expected informational lines, got %v", result.Errors)
	}
	if !hasLine(result.Errors, "⚠ Action train is not configured") {
		t.Errorf("Expected warning for missing actions, got %v", result.Errors)
	}
}

func TestValidateConfig_InvalidSyntax(t *testing.T) {
	path := writeConfig(t, "broken.json", `{"name": "test", invalid json}`)

	result := validateConfig(path)
	if result.Valid {
		t.Error("Expected invalid config for malformed JSON")
	}
}

func TestValidateConfig_MissingMessages(t *testing.T) {
	content := strings.Replace(validYAML, "  welcome: Welkom!\n", "", 1)
	path := writeConfig(t, "test.yaml", content)

	result := validateConfig(path)
	if result.Valid {
		t.Fatal("Expected invalid config without welcome message")
	}
	if !hasLine(result.Errors, "Missing required message: welcome") {
		t.Errorf("Expected missing message error, got %v", result.Errors)
	}
}

func TestValidateConfig_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{"grid too small", "cols: 4", "cols: 1", "Cols"},
		{"co2 limit", "max_co2: 5", "max_co2: 0", "MaxCO2"},
		{"unknown action", "id: car", "id: rocket", "unknown id 'rocket'"},
		{"no forward action", "step_delta: 2", "step_delta: -2", "move forward"},
		{"score placeholder", "Score: %d", "Score!", "run_finished"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "test.yaml", strings.Replace(validYAML, tt.from, tt.to, 1))

			result := validateConfig(path)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !hasLine(result.Errors, tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, result.Errors)
			}
		})
	}
}

func TestValidateConfig_UnreachableTerminal(t *testing.T) {
	// Every bike ride ends on (0,1); the last cell is never landed on
	content := `name: stuck
description: cannot finish
cols: 4
rows: 2
max_co2: 5
leaderboard_size: 10
actions:
  - {id: bike, label: Fiets, step_delta: 64, score_delta: 5, co2_delta: -2}
messages:
  welcome: Welkom!
  run_finished: "Score: %d"
  new_highscore: Top!
`
	path := writeConfig(t, "stuck.yaml", content)

	result := validateConfig(path)
	if result.Valid {
		t.Fatal("Expected unreachable terminal to be invalid")
	}
	if !hasLine(result.Errors, "unreachable") {
		t.Errorf("Expected unreachable error, got %v", result.Errors)
	}
}

func TestValidateConfig_NonExistentFile(t *testing.T) {
	result := validateConfig("/non/existent/file.json")

	if result.Valid {
		t.Error("Expected invalid result for non-existent file")
	}
	if result.File != "file.json" {
		t.Errorf("Expected file name 'file.json', got %s", result.File)
	}
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.json", "c.yml", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644)
	}

	files, err := configFiles(dir)
	if err != nil {
		t.Fatalf("configFiles failed: %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if strings.Join(names, ",") != "a.json,b.yaml,c.yml" {
		t.Errorf("Unexpected files %v", names)
	}
}

func TestShippedConfigs(t *testing.T) {
	files, err := configFiles("../configs")
	if err != nil || len(files) == 0 {
		t.Skip("Skipping test - configs directory not found")
	}

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			result := validateConfig(file)
			if !result.Valid {
				t.Errorf("Shipped config is invalid: %v", result.Errors)
			}
		})
	}
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/co2-grid-game/game/engine"
)

const (
	emptyCell    = "· "
	terminalCell = "🏁"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			MarginBottom(1)

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			MarginLeft(2)

	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).MarginTop(1)
	helpStyle    = lipgloss.NewStyle().MarginTop(1)

	co2Styles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("42")),  // low
		lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // medium
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // high
	}
)

// View implements tea.Model
func (m *Model) View() string {
	config := m.engine.GetConfig()
	state := m.engine.GetState()

	side := lipgloss.JoinVertical(lipgloss.Left,
		renderHUD(state, config),
		"",
		renderLeaderboard(m.engine.GetLeaderboard()),
		"",
		renderActions(config.Actions),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		boardStyle.Render(renderGrid(state, config)),
		panelStyle.Render(side),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("CO₂ Grid"),
		body,
		messageStyle.Render(m.message),
		helpStyle.Render(m.help.View(m.keys)),
	) + "\n"
}

// renderGrid draws one line per row with the player icon at its position
func renderGrid(state engine.GridState, config *engine.GameConfig) string {
	tx, ty := config.Terminal()
	icon := state.Icon
	if icon == "" {
		icon = config.DefaultIcon
	}

	var b strings.Builder
	for y := 0; y < config.Rows; y++ {
		for x := 0; x < config.Cols; x++ {
			switch {
			case x == state.X && y == state.Y:
				b.WriteString(icon)
			case x == tx && y == ty:
				b.WriteString(terminalCell)
			default:
				b.WriteString(emptyCell)
			}
		}
		if y < config.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderHUD(state engine.GridState, config *engine.GameConfig) string {
	level := co2Styles[0]
	switch {
	case state.CO2*3 >= config.MaxCO2*2:
		level = co2Styles[2]
	case state.CO2*3 >= config.MaxCO2:
		level = co2Styles[1]
	}

	return strings.Join([]string{
		labelStyle.Render("Score: ") + fmt.Sprint(state.Score),
		labelStyle.Render("Highscore: ") + fmt.Sprint(state.HighScore),
		labelStyle.Render("CO₂-niveau: ") + level.Render(fmt.Sprintf("%d / %d", state.CO2, config.MaxCO2)),
	}, "\n")
}

func renderLeaderboard(board engine.Leaderboard) string {
	lines := []string{labelStyle.Render("Top scores")}
	if len(board) == 0 {
		lines = append(lines, "  nog geen scores")
	}
	for i, score := range board {
		lines = append(lines, fmt.Sprintf("%2d. %d", i+1, score))
	}
	return strings.Join(lines, "\n")
}

func renderActions(actions []engine.Action) string {
	lines := make([]string, 0, len(actions))
	for i, action := range actions {
		lines = append(lines, fmt.Sprintf("%d  %s", i+1, action.Label))
	}
	return strings.Join(lines, "\n")
}

package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/wricardo/co2-grid-game/game/engine"
	"github.com/wricardo/co2-grid-game/game/service"
	"github.com/wricardo/co2-grid-game/game/session"
	"github.com/wricardo/co2-grid-game/game/storage"
)

// Model is the Bubble Tea model of the single player terminal client.
// It owns the engine directly; there is no HTTP server in between.
type Model struct {
	engine  *engine.GameEngine
	persist *session.Persistence
	device  service.DeviceNotifier
	logger  *log.Logger

	keys    KeyMap
	help    help.Model
	message string
	width   int
	height  int
}

// Option configures a Model
type Option func(*Model)

// WithDevice sends every CO2 change to a display
func WithDevice(device service.DeviceNotifier) Option {
	return func(m *Model) { m.device = device }
}

// WithLogger replaces the client logger
func WithLogger(logger *log.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// New restores the saved game from store and returns a ready model.
// A missing or damaged save starts a fresh game.
func New(config *engine.GameConfig, store storage.Store, opts ...Option) (*Model, error) {
	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Model{
		engine:  eng,
		persist: session.NewPersistence(store, config),
		logger:  log.WithPrefix("tui"),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		message: config.Messages.Welcome,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := eng.SetState(m.persist.LoadState()); err != nil {
		m.logger.Warn("saved state rejected, starting fresh", "error", err)
	}
	eng.SetLeaderboard(m.persist.LoadLeaderboard())
	m.push()

	return m, nil
}

// Run starts the program and blocks until the player quits or ctx is done
func Run(ctx context.Context, m *Model) error {
	_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}

// State returns the current game state
func (m *Model) State() engine.GridState {
	return m.engine.GetState()
}

// Leaderboard returns the current top scores
func (m *Model) Leaderboard() engine.Leaderboard {
	return m.engine.GetLeaderboard()
}

// Message returns the last status line
func (m *Model) Message() string {
	return m.message
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Reset):
			m.Reset()
		case key.Matches(msg, m.keys.Act):
			actions := m.engine.Actions()
			if i := actionIndex(msg); i >= 0 && i < len(actions) {
				m.Perform(actions[i].ID)
			}
		}
	}
	return m, nil
}

// Perform plays one action, saves the result and updates the display
func (m *Model) Perform(id engine.ActionID) {
	outcome, err := m.engine.Perform(id)
	if err != nil {
		m.message = err.Error()
		return
	}

	if err := m.persist.SaveState(outcome.After); err != nil {
		m.logger.Error("save state", "error", err)
	}
	if outcome.Finished {
		if err := m.persist.SaveLeaderboard(outcome.Leaderboard); err != nil {
			m.logger.Error("save leaderboard", "error", err)
		}
	}
	m.push()

	config := m.engine.GetConfig()
	switch {
	case outcome.Finished:
		m.message = fmt.Sprintf(config.Messages.RunFinished, outcome.FinalScore)
	case outcome.NewHighScore && config.Messages.NewHighScore != "":
		m.message = config.Messages.NewHighScore
	default:
		m.message = outcome.Summary()
	}
}

// Reset abandons the current run without recording it
func (m *Model) Reset() {
	state := m.engine.Reset()
	if err := m.persist.SaveState(state); err != nil {
		m.logger.Error("save state", "error", err)
	}
	m.push()
	m.message = m.engine.GetConfig().Messages.Welcome
}

func (m *Model) push() {
	if m.device != nil {
		m.device.Push(m.engine.GetState().CO2)
	}
}

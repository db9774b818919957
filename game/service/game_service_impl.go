package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/wricardo/co2-grid-game/game/engine"
)

var (
	// ErrDeviceUnavailable is returned by device operations when no device
	// controller was configured
	ErrDeviceUnavailable = errors.New("no CO2 display configured")
	// ErrDeviceConnect wraps failures to open the device port
	ErrDeviceConnect = errors.New("Kan niet verbinden")
)

// Device status texts shown next to the connect button
const (
	StatusConnected    = "Status: verbonden"
	StatusDisconnected = "Status: niet verbonden"
)

const defaultHighScoreMessage = "Nieuwe highscore!"

// Option configures a game service
type Option func(*gameServiceImpl)

// WithDevice attaches the CO2 display controller
func WithDevice(device DeviceController) Option {
	return func(s *gameServiceImpl) {
		s.device = device
	}
}

// WithLogger replaces the service logger
func WithLogger(logger *log.Logger) Option {
	return func(s *gameServiceImpl) {
		s.logger = logger
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	device   DeviceController
	logger   *log.Logger
	mu       sync.RWMutex

	// revision increases with every state change of any session. Watchers
	// use it to drop updates that arrive out of order.
	revision uint64
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   log.WithPrefix("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configID := configName
	var config *engine.GameConfig
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, s.configError(configName, err)
		}
	} else {
		configID = s.configs.DefaultID()
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sessionsCreated.Inc()
	s.logger.Debug("session created", "session", sess.ID, "config", configID)

	return sessionInfo(sess), nil
}

// configError adds the available config ids to a load failure
func (s *gameServiceImpl) configError(name string, err error) error {
	available, listErr := s.configs.ListConfigs()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("config '%s': %w", name, err)
	}
	ids := make([]string, 0, len(available))
	for _, c := range available {
		ids = append(ids, c.ConfigID)
	}
	return fmt.Errorf("config '%s' (available: %v): %w", name, ids, err)
}

// GetSession retrieves session information. Recording the access writes
// the session, so it holds the write lock.
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)

	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// PerformAction applies one transport action to a session, persists the
// resulting progress and pushes the CO2 level to the display
func (s *gameServiceImpl) PerformAction(ctx context.Context, sessionID string, action engine.ActionID) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.Engine.Perform(action)
	if err != nil {
		return nil, err
	}
	actionsPerformed.WithLabelValues(string(action)).Inc()

	s.persist(sess, outcome.After, outcome.Leaderboard, outcome.Finished)
	s.push(outcome.After.CO2)
	s.touch(sessionID)

	result := &ActionResult{
		Action:      action,
		GameState:   outcome.After,
		Leaderboard: outcome.Leaderboard,
		Finished:    outcome.Finished,
		FinalScore:  outcome.FinalScore,
		Events:      s.events(sess, outcome),
		Revision:    s.nextRevision(),
	}
	result.Message = result.Events[len(result.Events)-1].Message
	if outcome.Finished {
		runsFinished.Inc()
		s.logger.Info("run finished", "session", sess.ID, "score", outcome.FinalScore)
	}

	return result, nil
}

// events describes an outcome as game events. The last event carries the
// message shown to the player.
func (s *gameServiceImpl) events(sess *Session, outcome *engine.Outcome) []GameEvent {
	before, after := outcome.Before, outcome.After

	events := []GameEvent{
		s.newEvent(sess.ID, EventAction,
			outcome.Summary(),
			&after.Score, &after.CO2),
	}

	// A finished run has already been reset
	if !outcome.Finished && before.CO2 != after.CO2 {
		co2 := after.CO2
		events = append(events, s.newEvent(sess.ID, EventCO2Changed,
			fmt.Sprintf("CO₂-niveau: %d", co2), nil, &co2))
	}

	if outcome.NewHighScore {
		high := after.HighScore
		msg := sess.Config.Messages.NewHighScore
		if msg == "" {
			msg = defaultHighScoreMessage
		}
		events = append(events, s.newEvent(sess.ID, EventNewHighScore, msg, &high, nil))
	}

	if outcome.Finished {
		final := outcome.FinalScore
		events = append(events, s.newEvent(sess.ID, EventRunFinished,
			fmt.Sprintf(sess.Config.Messages.RunFinished, final), &final, nil))
	}

	return events
}

func (s *gameServiceImpl) newEvent(sessionID, eventType, message string, score, co2 *int) GameEvent {
	return GameEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Score:     score,
		CO2:       co2,
	}
}

// Reset abandons the current run of a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.persist(sess, state, nil, false)
	s.push(state.CO2)
	s.touch(sessionID)
	s.logger.Debug("session reset", "session", sess.ID)

	return &ResetResult{GameState: state, Revision: s.nextRevision()}, nil
}

// nextRevision is called with s.mu held for writing
func (s *gameServiceImpl) nextRevision() uint64 {
	s.revision++
	return s.revision
}

// GetGameState returns the current state of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GridState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)

	state := sess.Engine.GetState()
	return &state, nil
}

// GetLeaderboard returns the finished run scores of a session
func (s *gameServiceImpl) GetLeaderboard(ctx context.Context, sessionID string) (engine.Leaderboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetLeaderboard(), nil
}

// ListActions returns the action catalog of a configuration, or of the
// default configuration when configName is empty
func (s *gameServiceImpl) ListActions(ctx context.Context, configName string) ([]engine.Action, error) {
	config := s.configs.GetDefault()
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, s.configError(configName, err)
		}
	}

	actions := make([]engine.Action, len(config.Actions))
	copy(actions, config.Actions)
	return actions, nil
}

// ListConfigs returns all available configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// ConnectDevice opens the serial port of the CO2 display
func (s *gameServiceImpl) ConnectDevice(ctx context.Context, port string, baud int) (*DeviceStatus, error) {
	if s.device == nil {
		return nil, ErrDeviceUnavailable
	}

	if err := s.device.Connect(port, baud); err != nil {
		s.logger.Warn("device connect failed", "port", port, "error", err)
		status := s.deviceStatus()
		status.Error = fmt.Sprintf("%s: %v", ErrDeviceConnect, err)
		return status, fmt.Errorf("%w: %v", ErrDeviceConnect, err)
	}

	s.logger.Info("device connected", "port", port)
	return s.deviceStatus(), nil
}

// DisconnectDevice closes the display connection
func (s *gameServiceImpl) DisconnectDevice(ctx context.Context) (*DeviceStatus, error) {
	if s.device == nil {
		return nil, ErrDeviceUnavailable
	}

	if err := s.device.Disconnect(); err != nil {
		s.logger.Warn("device disconnect failed", "error", err)
	}
	return s.deviceStatus(), nil
}

// DeviceStatus reports the display connection
func (s *gameServiceImpl) DeviceStatus(ctx context.Context) (*DeviceStatus, error) {
	if s.device == nil {
		return &DeviceStatus{Status: StatusDisconnected}, nil
	}
	return s.deviceStatus(), nil
}

// ListDevicePorts lists the serial ports the display could be attached to
func (s *gameServiceImpl) ListDevicePorts(ctx context.Context) ([]string, error) {
	if s.device == nil {
		return nil, ErrDeviceUnavailable
	}
	return s.device.Ports()
}

func (s *gameServiceImpl) deviceStatus() *DeviceStatus {
	port, baud, ok := s.device.Connected()
	if !ok {
		return &DeviceStatus{Status: StatusDisconnected}
	}
	return &DeviceStatus{Connected: true, Port: port, Baud: baud, Status: StatusConnected}
}

// persist writes progress through the session's store. Failures are logged;
// the in-memory game continues.
func (s *gameServiceImpl) persist(sess *Session, state engine.GridState, board engine.Leaderboard, finished bool) {
	if sess.Store == nil {
		return
	}
	if err := sess.Store.SaveState(state); err != nil {
		persistenceErrors.WithLabelValues("state").Inc()
		s.logger.Warn("failed to save state", "session", sess.ID, "error", err)
	}
	if !finished {
		return
	}
	if err := sess.Store.SaveLeaderboard(board); err != nil {
		persistenceErrors.WithLabelValues("leaderboard").Inc()
		s.logger.Warn("failed to save leaderboard", "session", sess.ID, "error", err)
	}
}

// push forwards the CO2 level to the display when one is attached
func (s *gameServiceImpl) push(co2 int) {
	if s.device == nil {
		return
	}
	s.device.Push(co2)
	devicePushes.Inc()
}

func (s *gameServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		s.logger.Debug("failed to update last access", "session", sessionID, "error", err)
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		Leaderboard:    sess.Engine.GetLeaderboard(),
		GameConfig:     sess.Config,
	}
}

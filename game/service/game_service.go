package service

import (
	"context"
	"time"

	"github.com/wricardo/co2-grid-game/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	PerformAction(ctx context.Context, sessionID string, action engine.ActionID) (*ActionResult, error)
	Reset(ctx context.Context, sessionID string) (*ResetResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GridState, error)
	GetLeaderboard(ctx context.Context, sessionID string) (engine.Leaderboard, error)
	ListActions(ctx context.Context, configName string) ([]engine.Action, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)

	// Device
	ConnectDevice(ctx context.Context, port string, baud int) (*DeviceStatus, error)
	DisconnectDevice(ctx context.Context) (*DeviceStatus, error)
	DeviceStatus(ctx context.Context) (*DeviceStatus, error)
	ListDevicePorts(ctx context.Context) ([]string, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	DefaultID() string
}

// StatePersister stores the progress of one player
type StatePersister interface {
	SaveState(state engine.GridState) error
	SaveLeaderboard(board engine.Leaderboard) error
}

// DeviceNotifier receives the CO2 level after every change. Push must not
// block and never reports failures.
type DeviceNotifier interface {
	Push(co2 int)
}

// DeviceController manages the connection to the CO2 display device
type DeviceController interface {
	DeviceNotifier
	Connect(port string, baud int) error
	Disconnect() error
	Connected() (port string, baud int, ok bool)
	Ports() ([]string, error)
}

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	Store          StatePersister
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

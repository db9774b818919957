package service_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/co2-grid-game/game/engine"
	"github.com/wricardo/co2-grid-game/game/service"
	"github.com/wricardo/co2-grid-game/game/session"
)

var errNotFound = errors.New("session not found")

// recordingStore implements service.StatePersister and keeps the last writes
type recordingStore struct {
	states []engine.GridState
	boards []engine.Leaderboard
	err    error
}

func (r *recordingStore) SaveState(state engine.GridState) error {
	r.states = append(r.states, state)
	return r.err
}

func (r *recordingStore) SaveLeaderboard(board engine.Leaderboard) error {
	r.boards = append(r.boards, board)
	return r.err
}

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	stores   map[string]*recordingStore
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
		stores:   make(map[string]*recordingStore),
	}
}

func (m *MockSessionManager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("t%03d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}

	store := &recordingStore{}
	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		Store:          store,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	m.sessions[id] = session
	m.stores[id] = store
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errNotFound
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	if session, exists := m.sessions[id]; exists {
		return session, nil
	}
	return m.Create(id, configID, config)
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return errNotFound
}

func (m *MockSessionManager) Save(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errNotFound
	}
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.GameConfig
}

var errConfigNotFound = errors.New("configuration not found")

func NewMockConfigManager() *MockConfigManager {
	compact := engine.DefaultConfig()
	compact.Name = "compact"
	compact.StepMode = engine.StepSingle
	compact.Actions = compact.Actions[:3]

	return &MockConfigManager{
		configs: map[string]*engine.GameConfig{
			"classic": engine.DefaultConfig(),
			"compact": compact,
		},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.GameConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, errConfigNotFound
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	var result []*service.ConfigInfo
	for id, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			ConfigID: id,
			Name:     config.Name,
			Actions:  len(config.Actions),
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.GameConfig {
	return m.configs["classic"]
}

func (m *MockConfigManager) DefaultID() string {
	return "classic"
}

// fakeDevice implements service.DeviceController
type fakeDevice struct {
	mu         sync.Mutex
	pushed     []int
	port       string
	baud       int
	connectErr error
}

func (d *fakeDevice) Push(co2 int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushed = append(d.pushed, co2)
}

func (d *fakeDevice) Connect(port string, baud int) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.port, d.baud = port, baud
	return nil
}

func (d *fakeDevice) Disconnect() error {
	d.port, d.baud = "", 0
	return nil
}

func (d *fakeDevice) Connected() (string, int, bool) {
	return d.port, d.baud, d.port != ""
}

func (d *fakeDevice) Ports() ([]string, error) {
	return []string{"/dev/ttyACM0", "/dev/ttyUSB0"}, nil
}

func (d *fakeDevice) Pushed() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.pushed...)
}

func newTestService(t *testing.T) (service.GameService, *MockSessionManager, *fakeDevice) {
	t.Helper()
	sessions := NewMockSessionManager()
	device := &fakeDevice{}
	svc := service.NewGameService(sessions, NewMockConfigManager(), service.WithDevice(device))
	return svc, sessions, device
}

func eventTypes(events []service.GameEvent) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestGameService_CreateSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("default config", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "")
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if info.ConfigName != "classic" {
			t.Errorf("Expected classic config, got %s", info.ConfigName)
		}
		want := engine.GridState{Icon: engine.DefaultIcon}
		if info.GameState != want {
			t.Errorf("Expected start state %+v, got %+v", want, info.GameState)
		}
		if len(info.Leaderboard) != 0 {
			t.Errorf("Expected empty leaderboard, got %v", info.Leaderboard)
		}
	})

	t.Run("named config", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "compact")
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if info.ConfigName != "compact" || info.GameConfig.StepMode != engine.StepSingle {
			t.Errorf("Expected compact session, got %+v", info)
		}
	})

	t.Run("unknown config", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "missing")
		if !errors.Is(err, errConfigNotFound) {
			t.Errorf("Expected wrapped config error, got %v", err)
		}
	})
}

func TestGameService_PerformAction(t *testing.T) {
	ctx := context.Background()

	t.Run("forward step", func(t *testing.T) {
		svc, sessions, device := newTestService(t)
		info, _ := svc.CreateSession(ctx, "")

		result, err := svc.PerformAction(ctx, info.ID, engine.Bike)
		if err != nil {
			t.Fatalf("PerformAction failed: %v", err)
		}

		want := engine.GridState{X: 5, Y: 0, Score: 5, HighScore: 5, CO2: 0, Icon: "🚲"}
		if result.GameState != want {
			t.Errorf("Expected %+v, got %+v", want, result.GameState)
		}
		if result.Finished {
			t.Error("Run should not be finished")
		}
		if got := eventTypes(result.Events); !reflect.DeepEqual(got, []string{service.EventAction, service.EventNewHighScore}) {
			t.Errorf("Unexpected events %v", got)
		}
		if result.Message != "Nieuwe highscore!" {
			t.Errorf("Expected highscore message, got %q", result.Message)
		}
		for _, e := range result.Events {
			if e.ID == "" || e.SessionID != info.ID {
				t.Errorf("Event missing id or session: %+v", e)
			}
		}

		store := sessions.stores[info.ID]
		if len(store.states) != 1 || store.states[0] != want {
			t.Errorf("Expected state to be saved once, got %+v", store.states)
		}
		if len(store.boards) != 0 {
			t.Errorf("Leaderboard should only be saved at the end of a run, got %v", store.boards)
		}
		if got := device.Pushed(); !reflect.DeepEqual(got, []int{0}) {
			t.Errorf("Expected CO2 0 pushed, got %v", got)
		}
	})

	t.Run("co2 change", func(t *testing.T) {
		svc, _, device := newTestService(t)
		info, _ := svc.CreateSession(ctx, "")

		result, err := svc.PerformAction(ctx, info.ID, engine.Plane)
		if err != nil {
			t.Fatalf("PerformAction failed: %v", err)
		}
		if result.GameState.CO2 != 3 || result.GameState.Score != -8 {
			t.Errorf("Unexpected state %+v", result.GameState)
		}
		if got := eventTypes(result.Events); !reflect.DeepEqual(got, []string{service.EventAction, service.EventCO2Changed}) {
			t.Errorf("Unexpected events %v", got)
		}
		if result.Message != "CO₂-niveau: 3" {
			t.Errorf("Unexpected message %q", result.Message)
		}

		// Clamped at 5, the action text still shows the configured delta
		second, err := svc.PerformAction(ctx, info.ID, engine.Plane)
		if err != nil {
			t.Fatalf("PerformAction failed: %v", err)
		}
		if got := second.Events[0].Message; got != "✈️ Vliegtuig: score -8, CO₂ +3" {
			t.Errorf("Unexpected action message %q", got)
		}
		if got := device.Pushed(); !reflect.DeepEqual(got, []int{3, 5}) {
			t.Errorf("Expected pushes [3 5], got %v", got)
		}
	})

	t.Run("run finished", func(t *testing.T) {
		svc, sessions, device := newTestService(t)
		info, _ := svc.CreateSession(ctx, "")
		sess, _ := sessions.Get(info.ID)
		if err := sess.Engine.SetState(engine.GridState{X: 10, Y: 11, Score: 8, HighScore: 8, CO2: 1}); err != nil {
			t.Fatalf("SetState failed: %v", err)
		}

		result, err := svc.PerformAction(ctx, info.ID, engine.Train)
		if err != nil {
			t.Fatalf("PerformAction failed: %v", err)
		}

		if !result.Finished || result.FinalScore != 10 {
			t.Errorf("Expected finished run with score 10, got %+v", result)
		}
		want := engine.GridState{HighScore: 10, Icon: engine.DefaultIcon}
		if result.GameState != want {
			t.Errorf("Expected reset state %+v, got %+v", want, result.GameState)
		}
		if !reflect.DeepEqual(result.Leaderboard, engine.Leaderboard{10}) {
			t.Errorf("Expected leaderboard [10], got %v", result.Leaderboard)
		}
		wantEvents := []string{service.EventAction, service.EventNewHighScore, service.EventRunFinished}
		if got := eventTypes(result.Events); !reflect.DeepEqual(got, wantEvents) {
			t.Errorf("Expected events %v, got %v", wantEvents, got)
		}
		if result.Message != "🎉 Einde grid! Score: 10" {
			t.Errorf("Unexpected message %q", result.Message)
		}

		store := sessions.stores[info.ID]
		if len(store.boards) != 1 || !reflect.DeepEqual(store.boards[0], engine.Leaderboard{10}) {
			t.Errorf("Expected leaderboard saved, got %v", store.boards)
		}
		if got := device.Pushed(); !reflect.DeepEqual(got, []int{0}) {
			t.Errorf("Expected reset CO2 pushed, got %v", got)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		svc, _, device := newTestService(t)
		info, _ := svc.CreateSession(ctx, "")

		_, err := svc.PerformAction(ctx, info.ID, engine.ActionID("rocket"))
		if !errors.Is(err, engine.ErrUnknownAction) {
			t.Errorf("Expected ErrUnknownAction, got %v", err)
		}
		if len(device.Pushed()) != 0 {
			t.Error("Nothing should be pushed for a rejected action")
		}
	})

	t.Run("action missing from config", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		info, _ := svc.CreateSession(ctx, "compact")

		if _, err := svc.PerformAction(ctx, info.ID, engine.Motorbike); !errors.Is(err, engine.ErrUnknownAction) {
			t.Errorf("Expected ErrUnknownAction, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		if _, err := svc.PerformAction(ctx, "nope", engine.Bike); !errors.Is(err, errNotFound) {
			t.Errorf("Expected session not found, got %v", err)
		}
	})

	t.Run("save failure does not fail the action", func(t *testing.T) {
		svc, sessions, _ := newTestService(t)
		info, _ := svc.CreateSession(ctx, "")
		sessions.stores[info.ID].err = errors.New("disk full")

		result, err := svc.PerformAction(ctx, info.ID, engine.Walk)
		if err != nil {
			t.Fatalf("Expected action to succeed, got %v", err)
		}
		if result.GameState.X != 5 {
			t.Errorf("Expected move despite save failure, got %+v", result.GameState)
		}
	})
}

func TestGameService_PerformActionWithoutDevice(t *testing.T) {
	sessions := NewMockSessionManager()
	svc := service.NewGameService(sessions, NewMockConfigManager())
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, "")
	if _, err := svc.PerformAction(ctx, info.ID, engine.Car); err != nil {
		t.Fatalf("PerformAction failed: %v", err)
	}
}

func TestGameService_Reset(t *testing.T) {
	svc, sessions, device := newTestService(t)
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "")

	first, _ := svc.PerformAction(ctx, info.ID, engine.Bike)
	second, _ := svc.PerformAction(ctx, info.ID, engine.Car)

	result, err := svc.Reset(ctx, info.ID)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	want := engine.GridState{HighScore: 5, Icon: engine.DefaultIcon}
	if result.GameState != want {
		t.Errorf("Expected %+v, got %+v", want, result.GameState)
	}
	if !(first.Revision < second.Revision && second.Revision < result.Revision) {
		t.Errorf("Expected increasing revisions, got %d, %d, %d", first.Revision, second.Revision, result.Revision)
	}

	store := sessions.stores[info.ID]
	if last := store.states[len(store.states)-1]; last != want {
		t.Errorf("Expected reset state saved, got %+v", last)
	}
	if len(store.boards) != 0 {
		t.Error("Reset must not record a run")
	}
	if got := device.Pushed(); !reflect.DeepEqual(got, []int{0, 2, 0}) {
		t.Errorf("Expected pushes [0 2 0], got %v", got)
	}

	if _, err := svc.Reset(ctx, "nope"); err == nil {
		t.Error("Expected error for unknown session")
	}
}

func TestGameService_StateAndLeaderboard(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	ctx := context.Background()
	info, _ := svc.CreateSession(ctx, "")

	sess, _ := sessions.Get(info.ID)
	sess.Engine.SetLeaderboard(engine.Leaderboard{3, 20, 7})

	board, err := svc.GetLeaderboard(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}
	if !reflect.DeepEqual(board, engine.Leaderboard{20, 7, 3}) {
		t.Errorf("Expected sorted leaderboard, got %v", board)
	}

	svc.PerformAction(ctx, info.ID, engine.Train)
	state, err := svc.GetGameState(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetGameState failed: %v", err)
	}
	if state.X != 1 || state.Score != 2 {
		t.Errorf("Unexpected state %+v", state)
	}

	if _, err := svc.GetGameState(ctx, "nope"); err == nil {
		t.Error("Expected error for unknown session")
	}
}

func TestGameService_ListAndDeleteSessions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateSession(ctx, ""); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	sessions, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}

	if err := svc.DeleteSession(ctx, sessions[0].ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := svc.GetSession(ctx, sessions[0].ID); err == nil {
		t.Error("Expected deleted session to be gone")
	}
}

func TestGameService_ListActions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	actions, err := svc.ListActions(ctx, "")
	if err != nil {
		t.Fatalf("ListActions failed: %v", err)
	}
	if len(actions) != len(engine.AllActionIDs) {
		t.Errorf("Expected %d actions, got %d", len(engine.AllActionIDs), len(actions))
	}

	actions, _ = svc.ListActions(ctx, "compact")
	if len(actions) != 3 {
		t.Errorf("Expected 3 compact actions, got %d", len(actions))
	}

	if _, err := svc.ListActions(ctx, "missing"); err == nil {
		t.Error("Expected error for unknown config")
	}
}

func TestGameService_Device(t *testing.T) {
	ctx := context.Background()

	t.Run("no device configured", func(t *testing.T) {
		svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

		status, err := svc.DeviceStatus(ctx)
		if err != nil || status.Connected || status.Status != service.StatusDisconnected {
			t.Errorf("Expected disconnected status, got %+v, %v", status, err)
		}
		if _, err := svc.ConnectDevice(ctx, "/dev/ttyACM0", 9600); !errors.Is(err, service.ErrDeviceUnavailable) {
			t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
		}
		if _, err := svc.ListDevicePorts(ctx); !errors.Is(err, service.ErrDeviceUnavailable) {
			t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
		}
	})

	t.Run("connect and disconnect", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		status, err := svc.ConnectDevice(ctx, "/dev/ttyACM0", 9600)
		if err != nil {
			t.Fatalf("ConnectDevice failed: %v", err)
		}
		want := &service.DeviceStatus{Connected: true, Port: "/dev/ttyACM0", Baud: 9600, Status: service.StatusConnected}
		if !reflect.DeepEqual(status, want) {
			t.Errorf("Expected %+v, got %+v", want, status)
		}

		status, _ = svc.DisconnectDevice(ctx)
		if status.Connected || status.Status != service.StatusDisconnected {
			t.Errorf("Expected disconnected, got %+v", status)
		}

		ports, err := svc.ListDevicePorts(ctx)
		if err != nil || len(ports) != 2 {
			t.Errorf("Expected 2 ports, got %v, %v", ports, err)
		}
	})

	t.Run("connect failure", func(t *testing.T) {
		sessions := NewMockSessionManager()
		device := &fakeDevice{connectErr: errors.New("permission denied")}
		svc := service.NewGameService(sessions, NewMockConfigManager(), service.WithDevice(device))

		status, err := svc.ConnectDevice(ctx, "/dev/ttyACM0", 9600)
		if !errors.Is(err, service.ErrDeviceConnect) {
			t.Errorf("Expected ErrDeviceConnect, got %v", err)
		}
		if status == nil || status.Connected || status.Error != "Kan niet verbinden: permission denied" {
			t.Errorf("Unexpected status %+v", status)
		}

		// The game keeps working without the display
		info, _ := svc.CreateSession(ctx, "")
		if _, err := svc.PerformAction(ctx, info.ID, engine.Bus); err != nil {
			t.Errorf("PerformAction failed after connect error: %v", err)
		}
	})
}

func TestGameService_ConcurrentReads(t *testing.T) {
	sessions := session.NewManager()
	svc := service.NewGameService(sessions, NewMockConfigManager())
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if _, err := svc.GetSession(ctx, info.ID); err != nil {
					t.Errorf("GetSession failed: %v", err)
					return
				}
				if _, err := svc.GetGameState(ctx, info.ID); err != nil {
					t.Errorf("GetGameState failed: %v", err)
					return
				}
				if _, err := svc.ListSessions(ctx); err != nil {
					t.Errorf("ListSessions failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			if err := sessions.SaveAllSessions(); err != nil {
				t.Errorf("SaveAllSessions failed: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	got, err := svc.GetSession(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.LastAccessedAt.Before(info.LastAccessedAt) {
		t.Errorf("Expected access time to move forward, got %v before %v", got.LastAccessedAt, info.LastAccessedAt)
	}
}

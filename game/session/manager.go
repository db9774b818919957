package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/co2-grid-game/game/engine"
	"github.com/wricardo/co2-grid-game/game/service"
	"github.com/wricardo/co2-grid-game/game/storage"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	store    storage.Store
	configs  service.ConfigManager
	logger   *log.Logger
	mu       sync.RWMutex
}

// NewManager creates a session manager backed by an in-memory store
func NewManager() *Manager {
	return NewManagerWithStore(storage.NewMemoryStore(), nil)
}

// NewManagerWithStore creates a session manager that persists sessions in
// store. configs resolves the configuration of sessions loaded back from the
// store; when nil the classic configuration is used.
func NewManagerWithStore(store storage.Store, configs service.ConfigManager) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		store:    store,
		configs:  configs,
		logger:   log.WithPrefix("session"),
	}
}

// SetLogger replaces the manager's logger
func (m *Manager) SetLogger(logger *log.Logger) {
	m.logger = logger
}

// Create creates a new session with the given ID and configuration
func (m *Manager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	if strings.Contains(id, ":") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	}

	// Check if session already exists (case-insensitive)
	if _, exists := m.sessions[strings.ToLower(id)]; exists || m.persisted(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		Store:          NewSessionPersistence(m.store, strings.ToLower(id), config),
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[strings.ToLower(id)] = session

	if err := m.persist(session, meta(session)); err != nil {
		// Log error but don't fail the creation
		m.logger.Warn("failed to persist session", "session", id, "error", err)
	}

	return session, nil
}

// Get retrieves a session by ID (case-insensitive), loading it from the
// store when it is not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	key := strings.ToLower(id)

	m.mu.RLock()
	session, exists := m.sessions[key]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists := m.sessions[key]; exists {
		return session, nil
	}

	session, err := m.load(key)
	if err != nil {
		return nil, err
	}
	m.sessions[key] = session
	return session, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config)
	}

	return nil, err
}

// List returns all sessions held in memory
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and from the store
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	_, inMemory := m.sessions[key]
	delete(m.sessions, key)

	if !inMemory && !m.persisted(key) {
		return ErrSessionNotFound
	}

	if err := m.removeKeys(key); err != nil {
		return fmt.Errorf("failed to delete persisted session: %w", err)
	}
	return nil
}

// DeleteFromMemory removes a session from memory only (not from the store)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.LastAccessedAt = time.Now()

	if err := m.saveMeta(meta(session)); err != nil {
		m.logger.Warn("failed to persist session after access update", "session", id, "error", err)
	}

	return nil
}

// Save writes a session's metadata, state and leaderboard to the store
func (m *Manager) Save(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	var data PersistedSessionData
	if exists {
		data = meta(session)
	}
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}

	return m.persist(session, data)
}

// SaveAllSessions saves all in-memory sessions to the store
func (m *Manager) SaveAllSessions() error {
	m.mu.RLock()
	sessions := make([]*service.Session, 0, len(m.sessions))
	records := make([]PersistedSessionData, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
		records = append(records, meta(session))
	}
	m.mu.RUnlock()

	errorCount := 0
	for i, session := range sessions {
		if err := m.persist(session, records[i]); err != nil {
			m.logger.Warn("failed to save session", "session", session.ID, "error", err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration from memory. Their persisted progress is kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of sessions in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	ids, err := m.persistedIDs()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range ids {
		if _, exists := m.sessions[id]; exists {
			continue
		}

		session, err := m.load(id)
		if err != nil {
			m.logger.Warn("failed to load persisted session", "session", id, "error", err)
			continue
		}

		m.sessions[id] = session
		loadedCount++
	}

	if loadedCount > 0 {
		m.logger.Info("loaded persisted sessions", "count", loadedCount)
	}

	return nil
}

// PruneOrphans deletes game state and leaderboard keys whose session
// metadata record is gone. It returns the number of keys removed.
func (m *Manager) PruneOrphans() (int, error) {
	keys, err := m.store.Keys("")
	if err != nil {
		return 0, fmt.Errorf("failed to list store keys: %w", err)
	}

	known := make(map[string]bool)
	for _, key := range keys {
		if id, name, ok := strings.Cut(key, ":"); ok && name == SessionKey {
			known[id] = true
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	removed := 0
	for _, key := range keys {
		id, name, ok := strings.Cut(key, ":")
		if !ok || known[id] || m.sessions[id] != nil {
			continue
		}
		if name != StateKey && name != LeaderboardKey {
			continue
		}
		if err := m.store.Delete(key); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		removed++
	}

	if removed > 0 {
		m.logger.Info("pruned orphaned keys", "count", removed)
	}
	return removed, nil
}

// persist writes metadata, state and leaderboard
func (m *Manager) persist(session *service.Session, data PersistedSessionData) error {
	if err := m.saveMeta(data); err != nil {
		return err
	}
	if err := session.Store.SaveState(session.Engine.GetState()); err != nil {
		return err
	}
	return session.Store.SaveLeaderboard(session.Engine.GetLeaderboard())
}

// meta snapshots the metadata record of a session. Callers hold m.mu.
func meta(session *service.Session) PersistedSessionData {
	return PersistedSessionData{
		ID:             session.ID,
		ConfigName:     session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
	}
}

func (m *Manager) saveMeta(record PersistedSessionData) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := m.store.Set(metaKey(strings.ToLower(record.ID)), data); err != nil {
		return fmt.Errorf("failed to write session data: %w", err)
	}
	return nil
}

// load rebuilds a session from its metadata record and saved progress
func (m *Manager) load(key string) (*service.Session, error) {
	raw, err := m.store.Get(metaKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session data: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.ID == "" {
		data.ID = key
	}

	config := m.resolveConfig(data.ConfigName)

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}

	persistence := NewSessionPersistence(m.store, key, config)
	if err := eng.SetState(persistence.LoadState()); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}
	eng.SetLeaderboard(persistence.LoadLeaderboard())

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         eng,
		Config:         config,
		Store:          persistence,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// resolveConfig finds the configuration a stored session was created with,
// falling back to the default one
func (m *Manager) resolveConfig(configID string) *engine.GameConfig {
	if m.configs == nil {
		return engine.DefaultConfig()
	}
	if configID != "" {
		config, err := m.configs.LoadConfig(configID)
		if err == nil {
			return config
		}
		m.logger.Warn("config of stored session unavailable, using default", "config", configID, "error", err)
	}
	return m.configs.GetDefault()
}

func (m *Manager) persisted(key string) bool {
	_, err := m.store.Get(metaKey(strings.ToLower(key)))
	return err == nil
}

func (m *Manager) persistedIDs() ([]string, error) {
	keys, err := m.store.Keys("")
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, key := range keys {
		if id, name, ok := strings.Cut(key, ":"); ok && name == SessionKey {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Manager) removeKeys(key string) error {
	var errs []error
	for _, name := range []string{SessionKey, StateKey, LeaderboardKey} {
		if err := m.store.Delete(key + ":" + name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	for {
		bytes := make([]byte, 2)
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if _, exists := m.sessions[id]; !exists && !m.persisted(id) {
			return id
		}
	}
}

func metaKey(id string) string {
	return id + ":" + SessionKey
}

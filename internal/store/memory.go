package store

import (
	"sync"

	"github.com/sweeney/growbox/internal/settings"
)

// Memory is an in-memory settings.Store for tests and dry runs.
type Memory struct {
	mu    sync.Mutex
	saved *settings.Settings
	Saves int

	// SaveErr and LoadErr, when set, are returned instead of touching state.
	SaveErr error
	LoadErr error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Save stores a copy of s.
func (m *Memory) Save(s settings.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saved = &s
	m.Saves++
	return nil
}

// Load returns the saved settings or settings.ErrNotFound.
func (m *Memory) Load() (settings.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return settings.Settings{}, m.LoadErr
	}
	if m.saved == nil {
		return settings.Settings{}, settings.ErrNotFound
	}
	return *m.saved, nil
}

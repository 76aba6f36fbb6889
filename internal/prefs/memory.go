package prefs

import (
	"context"
	"sync"
)

// Memory garde les préférences en mémoire (tests, backend "memory").
type Memory struct {
	hub

	mu    sync.Mutex
	prefs Preferences
}

func NewMemory(initial Preferences) *Memory {
	return &Memory{prefs: initial}
}

func (m *Memory) Get(context.Context) (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, nil
}

func (m *Memory) Set(_ context.Context, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	old := m.prefs
	m.prefs = u.Apply(old)
	cur := m.prefs
	m.mu.Unlock()

	m.notify(Diff(old, cur))
	return nil
}

func (m *Memory) Close() error { return nil }

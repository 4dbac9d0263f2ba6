// Package settings keeps small per-user preferences such as the last opened
// formula and the UI theme.
package settings

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/alexedwards/scs/v2"

	"aloniva/models"
)

// Keys used by the formula builder.
const (
	KeyLastFormula = "settings:last-formula"
	KeyTheme       = "settings:theme"
)

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, value string)
	Keys(ctx context.Context) []string
}

// Memory is a process-local Store safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Put(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Memory) Keys(_ context.Context) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Session stores values in the request's scs session. The context must have
// passed through the session manager's LoadAndSave middleware.
type Session struct {
	sm *scs.SessionManager
}

// NewSession wraps a session manager.
func NewSession(sm *scs.SessionManager) *Session {
	return &Session{sm: sm}
}

func (s *Session) Get(ctx context.Context, key string) (string, bool) {
	if !s.sm.Exists(ctx, key) {
		return "", false
	}
	return s.sm.GetString(ctx, key), true
}

func (s *Session) Put(ctx context.Context, key, value string) {
	s.sm.Put(ctx, key, value)
}

func (s *Session) Keys(ctx context.Context) []string {
	var keys []string
	for _, k := range s.sm.Keys(ctx) {
		if strings.HasPrefix(k, "settings:") {
			keys = append(keys, k)
		}
	}
	return keys
}

// LastFormula returns the id of the formula opened most recently.
func LastFormula(ctx context.Context, s Store) string {
	v, _ := s.Get(ctx, KeyLastFormula)
	return v
}

// SetLastFormula records the formula being edited.
func SetLastFormula(ctx context.Context, s Store, id string) {
	s.Put(ctx, KeyLastFormula, strings.TrimSpace(id))
}

// Theme returns the stored theme, or the default when unset.
func Theme(ctx context.Context, s Store) string {
	v, _ := s.Get(ctx, KeyTheme)
	return models.NormalizeTheme(v)
}

// SetTheme normalises and stores a theme, returning the value kept.
func SetTheme(ctx context.Context, s Store, theme string) string {
	normalized := models.NormalizeTheme(theme)
	s.Put(ctx, KeyTheme, normalized)
	return normalized
}

package location

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quintalapp/geoscope/internal/persist"
)

// Manager is the explicit registry of session stores. It is constructed once
// at startup and injected into every consumer; there is no package-level
// state. Each session key (authenticated user ID or anonymous device ID)
// maps to exactly one Store for the life of the process.
type Manager struct {
	kv     persist.KV
	sink   HistorySink
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a session store registry backed by the given cache.
// sink may be nil when history recording is disabled.
func NewManager(kv persist.KV, sink HistorySink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		kv:     kv,
		sink:   sink,
		logger: logger,
		stores: make(map[string]*Store),
	}
}

// Store returns the store for sessionKey, creating and cache-seeding it on
// first use. authenticated marks keys backed by a verified user identity;
// anonymous device sessions get a store without a history sink, so their
// updates never reach the durable visit log. The flag takes effect when the
// store is created: user IDs only ever arrive through verified tokens and
// device IDs never do, so it is stable per key.
func (m *Manager) Store(ctx context.Context, sessionKey string, authenticated bool) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[sessionKey]; ok {
		return s
	}

	sink := m.sink
	if !authenticated {
		sink = nil
	}

	s := NewStore(ctx, sessionKey, m.kv, sink, m.logger)
	m.stores[sessionKey] = s
	return s
}

// Sessions returns the number of live session stores.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Package kvstore provides key/value local storage backends for client settings.
//
// Every backend is partitioned into namespaces, one per client. ForClient
// returns a view scoped to a single namespace that satisfies settings.Storage.
package kvstore

import (
	"context"
	"sync"

	"github.com/blubywaff/ftag/internal/constants"
)

// Memory keeps local storage in process memory. The zero value is not usable;
// call NewMemory.
type Memory struct {
	mu     *sync.RWMutex
	spaces map[string]map[string]string
	ns     string
}

// NewMemory creates an empty in-memory store scoped to the default namespace.
func NewMemory() *Memory {
	return &Memory{mu: &sync.RWMutex{}, spaces: make(map[string]map[string]string), ns: constants.LocalNamespace}
}

// ForClient returns a view of the store scoped to the client's namespace.
// Views share the underlying data. An empty id selects the default namespace.
func (m *Memory) ForClient(clientID string) *Memory {
	if clientID == "" {
		clientID = constants.LocalNamespace
	}
	return &Memory{mu: m.mu, spaces: m.spaces, ns: clientID}
}

// GetItem returns the value stored under key.
func (m *Memory) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.spaces[m.ns][key]
	return v, ok, nil
}

// SetItem stores value under key.
func (m *Memory) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	space, ok := m.spaces[m.ns]
	if !ok {
		space = make(map[string]string)
		m.spaces[m.ns] = space
	}
	space[key] = value
	return nil
}

// RemoveItem deletes key.
func (m *Memory) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spaces[m.ns], key)
	return nil
}

// RemoveClient drops every key in the client's namespace.
func (m *Memory) RemoveClient(ctx context.Context, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ns := m.ForClient(clientID).ns
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spaces, ns)
	return nil
}

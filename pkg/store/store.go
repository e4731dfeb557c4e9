// Package store keeps finished lookups keyed by the normalised digit string
// so repeat callers are answered without recomputation.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/vanityserve/vanityserve/pkg/vanity"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store closed")

// Store is the cache contract. PutIfAbsent never overwrites: it reports
// whether this call stored the result.
type Store interface {
	Get(ctx context.Context, key string) (*vanity.Result, bool, error)
	PutIfAbsent(ctx context.Context, key string, result *vanity.Result) (bool, error)
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	results map[string]*vanity.Result
	closed  bool
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{results: make(map[string]*vanity.Result)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (*vanity.Result, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	r, ok := m.results[key]
	return r, ok, nil
}

// PutIfAbsent implements Store.
func (m *Memory) PutIfAbsent(_ context.Context, key string, result *vanity.Result) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if _, ok := m.results[key]; ok {
		return false, nil
	}
	m.results[key] = result
	return true, nil
}

// Len returns the number of stored results.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results)
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.results = nil
	return nil
}

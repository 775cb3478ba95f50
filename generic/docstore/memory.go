// Package docstore provides DocStore implementations.
package docstore

import (
	"context"
	"strings"
	"sync"

	"github.com/warp/loan-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte
}

var _ generic.DocStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Create(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[path]; ok {
		return generic.ErrAlreadyExists
	}
	m.docs[path] = clone(data)
	return nil
}

func (m *Memory) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[path]
	if !ok {
		return nil, generic.ErrNotFound
	}
	return clone(data), nil
}

func (m *Memory) Update(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[path]; !ok {
		return generic.ErrNotFound
	}
	m.docs[path] = clone(data)
	return nil
}

// Transaction applies fn under the store lock, so the read of the current
// document and the write of its replacement are one atomic unit. A second
// Transaction on the same path observes either none or all of the first.
func (m *Memory) Transaction(_ context.Context, path string, fn func(current []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.docs[path]
	if !ok {
		return generic.ErrNotFound
	}
	next, err := fn(clone(current))
	if err != nil {
		return err
	}
	m.docs[path] = clone(next)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string][]byte)
	for path, data := range m.docs {
		if strings.HasPrefix(path, prefix) {
			result[path] = clone(data)
		}
	}
	return result, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

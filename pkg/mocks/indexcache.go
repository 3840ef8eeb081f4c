package mocks

import (
	"sync"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/ports"
)

// IndexCache is a mock implementation of ports.IndexCache backed by a map.
type IndexCache struct {
	mu sync.Mutex

	Entries map[string]*index.Index
	Loads   int
	Saves   int

	LoadErr error
	SaveErr error
}

// NewIndexCache creates a new mock IndexCache.
func NewIndexCache() *IndexCache {
	return &IndexCache{Entries: make(map[string]*index.Index)}
}

func (m *IndexCache) Load(identity string) (*index.Index, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Loads++
	if m.LoadErr != nil {
		return nil, false, m.LoadErr
	}
	x, ok := m.Entries[identity]
	return x, ok, nil
}

func (m *IndexCache) Save(identity string, x *index.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Entries[identity] = x
	return nil
}

var _ ports.IndexCache = (*IndexCache)(nil)

package store

import (
	"context"
	"sync"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/shortlink"
)

// MemoryStore is an in-memory shortlink.Repository. Every link is lost when
// the process restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[shortlink.Code]shortlink.Link
}

// NewMemoryStore creates an empty in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[shortlink.Code]shortlink.Link),
	}
}

func (m *MemoryStore) Save(_ context.Context, link *shortlink.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.Code]; ok {
		return shortlink.ErrCodeTaken
	}

	m.links[link.Code] = *link

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortlink.Code) (*shortlink.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[code]
	if !ok {
		return nil, shortlink.ErrNotFound
	}

	return &link, nil
}

func (m *MemoryStore) Delete(_ context.Context, code shortlink.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.links, code)

	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*shortlink.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*shortlink.Link, 0, len(m.links))

	for _, link := range m.links {
		out = append(out, &link)
	}

	return out, nil
}

func (m *MemoryStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0

	for code, link := range m.links {
		if link.CreatedAt.Before(cutoff) {
			delete(m.links, code)
			removed++
		}
	}

	return removed, nil
}

// Compile-time check.
var _ shortlink.Repository = (*MemoryStore)(nil)

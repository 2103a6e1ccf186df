package store

import (
	"context"
	"slices"
	"sync"

	"github.com/greatwhitesecurity/opshub/internal/phone"
	"github.com/greatwhitesecurity/opshub/internal/records"
)

// RecordsMemoryStore is an in-memory records.Store used for development and tests.
type RecordsMemoryStore struct {
	mu         sync.RWMutex
	entities   map[string]records.Entity
	responders map[string]records.Responder
}

// NewRecordsMemoryStore creates an empty record store.
func NewRecordsMemoryStore() *RecordsMemoryStore {
	return &RecordsMemoryStore{
		entities:   make(map[string]records.Entity),
		responders: make(map[string]records.Responder),
	}
}

// PutEntity inserts or replaces an entity.
func (m *RecordsMemoryStore) PutEntity(e records.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.AvailableResponderIDs = slices.Clone(e.AvailableResponderIDs)
	m.entities[e.ID] = e
}

// DeleteEntity removes an entity.
func (m *RecordsMemoryStore) DeleteEntity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entities, id)
}

// PutResponder inserts or replaces a responder.
func (m *RecordsMemoryStore) PutResponder(r records.Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responders[r.ID] = r
}

func (m *RecordsMemoryStore) GetEntity(_ context.Context, id string) (*records.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[id]
	if !ok {
		return nil, records.ErrEntityNotFound
	}

	e.AvailableResponderIDs = slices.Clone(e.AvailableResponderIDs)

	return &e, nil
}

func (m *RecordsMemoryStore) UpdateEntity(
	_ context.Context, id string, update records.EntityUpdate,
) (*records.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		return nil, records.ErrEntityNotFound
	}

	if update.Status != nil {
		e.Status = *update.Status
	}

	if update.ResponseLog != nil {
		e.ResponseLog = *update.ResponseLog
	}

	if update.AvailableResponderIDs != nil {
		e.AvailableResponderIDs = slices.Clone(update.AvailableResponderIDs)
	}

	m.entities[id] = e

	out := e
	out.AvailableResponderIDs = slices.Clone(e.AvailableResponderIDs)

	return &out, nil
}

func (m *RecordsMemoryStore) GetResponder(_ context.Context, id string) (*records.Responder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.responders[id]
	if !ok {
		return nil, records.ErrResponderNotFound
	}

	return &r, nil
}

func (m *RecordsMemoryStore) FindResponderByPhone(_ context.Context, number string) (*records.Responder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.responders {
		if phone.Equal(r.Phone, number) {
			return &r, nil
		}
	}

	return nil, records.ErrResponderNotFound
}

// Compile-time check.
var _ records.Store = (*RecordsMemoryStore)(nil)

package store

import (
	"context"
	"sync"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/availability"
)

type pairKey struct {
	entityID    string
	responderID string
}

// AvailabilityMemoryStore is an in-memory availability.Repository.
type AvailabilityMemoryStore struct {
	mu     sync.RWMutex
	codes  map[availability.Code]availability.Pairing
	byPair map[pairKey]availability.Code
}

// NewAvailabilityMemoryStore creates an empty in-memory availability code store.
func NewAvailabilityMemoryStore() *AvailabilityMemoryStore {
	return &AvailabilityMemoryStore{
		codes:  make(map[availability.Code]availability.Pairing),
		byPair: make(map[pairKey]availability.Code),
	}
}

func (m *AvailabilityMemoryStore) Save(_ context.Context, pairing *availability.Pairing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[pairing.Code]; ok {
		return availability.ErrCodeTaken
	}

	m.codes[pairing.Code] = *pairing
	m.byPair[pairKey{pairing.EntityID, pairing.ResponderID}] = pairing.Code

	return nil
}

func (m *AvailabilityMemoryStore) GetByCode(_ context.Context, code availability.Code) (*availability.Pairing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pairing, ok := m.codes[code]
	if !ok {
		return nil, availability.ErrNotFound
	}

	return &pairing, nil
}

func (m *AvailabilityMemoryStore) FindByPair(
	_ context.Context, entityID, responderID string,
) (*availability.Pairing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	code, ok := m.byPair[pairKey{entityID, responderID}]
	if !ok {
		return nil, availability.ErrNotFound
	}

	pairing, ok := m.codes[code]
	if !ok {
		return nil, availability.ErrNotFound
	}

	return &pairing, nil
}

func (m *AvailabilityMemoryStore) Delete(_ context.Context, code availability.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(code)

	return nil
}

func (m *AvailabilityMemoryStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0

	for code, pairing := range m.codes {
		if pairing.CreatedAt.Before(cutoff) {
			m.deleteLocked(code)
			removed++
		}
	}

	return removed, nil
}

func (m *AvailabilityMemoryStore) deleteLocked(code availability.Code) {
	pairing, ok := m.codes[code]
	if !ok {
		return
	}

	delete(m.codes, code)

	key := pairKey{pairing.EntityID, pairing.ResponderID}
	if m.byPair[key] == code {
		delete(m.byPair, key)
	}
}

// CheckMemoryLog is an in-memory availability.CheckLog.
type CheckMemoryLog struct {
	mu     sync.RWMutex
	latest map[string]availability.Check // responder id -> newest check
	all    []availability.Check
}

// NewCheckMemoryLog creates an empty outbound check log.
func NewCheckMemoryLog() *CheckMemoryLog {
	return &CheckMemoryLog{latest: make(map[string]availability.Check)}
}

func (l *CheckMemoryLog) Record(_ context.Context, check *availability.Check) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.all = append(l.all, *check)

	if prev, ok := l.latest[check.ResponderID]; !ok || !check.SentAt.Before(prev.SentAt) {
		l.latest[check.ResponderID] = *check
	}

	return nil
}

func (l *CheckMemoryLog) Latest(_ context.Context, responderID string) (*availability.Check, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	check, ok := l.latest[responderID]
	if !ok {
		return nil, availability.ErrNoOpenCheck
	}

	return &check, nil
}

func (l *CheckMemoryLog) DeleteSentBefore(_ context.Context, cutoff time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.all[:0]

	for _, check := range l.all {
		if !check.SentAt.Before(cutoff) {
			kept = append(kept, check)
		}
	}

	removed := len(l.all) - len(kept)
	l.all = kept

	l.latest = make(map[string]availability.Check, len(l.latest))
	for _, check := range l.all {
		if prev, ok := l.latest[check.ResponderID]; !ok || !check.SentAt.Before(prev.SentAt) {
			l.latest[check.ResponderID] = check
		}
	}

	return removed, nil
}

// Compile-time checks.
var (
	_ availability.Repository = (*AvailabilityMemoryStore)(nil)
	_ availability.CheckLog   = (*CheckMemoryLog)(nil)
)

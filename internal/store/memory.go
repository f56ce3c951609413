package store

import (
	"context"
	"sort"
	"sync"
	"time"

	engine "github.com/nhiquach/white-elephant-party/engine"
)

type memoryEntry struct {
	party   *engine.Party
	expires time.Time // zero means never
}

// Memory keeps parties in a map. Records are cloned on the way in and out so
// callers never share state with the store.
type Memory struct {
	mu      sync.RWMutex
	parties map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory store. A positive ttl expires parties that
// have not been written for that long.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		parties: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

// Get returns a copy of the stored party or ErrNotFound.
func (m *Memory) Get(_ context.Context, id string) (*engine.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.parties[id]
	if !ok || m.expired(e) {
		return nil, ErrNotFound
	}
	return e.party.Clone(), nil
}

// Put stores a copy of p, refreshing its expiry.
func (m *Memory) Put(_ context.Context, p *engine.Party) error {
	e := memoryEntry{party: p.Clone()}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.parties[p.ID] = e
	m.mu.Unlock()
	return nil
}

// List returns every live party, most recently updated first.
func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.parties))
	for _, e := range m.parties {
		if m.expired(e) {
			continue
		}
		out = append(out, Summarize(e.party))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated > out[j].LastUpdated })
	return out, nil
}

// Delete removes a party. Deleting an unknown id is not an error.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.parties, id)
	m.mu.Unlock()
	return nil
}

// Package store provides StayStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/residency-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	stays []generic.Stay
}

func NewMemory() *Memory {
	return &Memory{}
}

// AppendStay validates and inserts a stay, keeping the slice ordered by Entry.
func (m *Memory) AppendStay(_ context.Context, stay generic.Stay) (generic.Stay, error) {
	if err := stay.Validate(); err != nil {
		return generic.Stay{}, err
	}
	if stay.ID == "" {
		stay.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.stays {
		if existing.ID == stay.ID {
			return generic.Stay{}, generic.ErrDuplicateStay
		}
	}

	// Binary search for insertion point
	i := sort.Search(len(m.stays), func(i int) bool {
		return m.stays[i].Entry.After(stay.Entry)
	})
	m.stays = append(m.stays, generic.Stay{})
	copy(m.stays[i+1:], m.stays[i:])
	m.stays[i] = stay
	return stay, nil
}

func (m *Memory) ListStays(_ context.Context) ([]generic.Stay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Stay, len(m.stays))
	copy(result, m.stays)
	return result, nil
}

func (m *Memory) StaysFor(_ context.Context, country generic.CountryCode) ([]generic.Stay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Stay
	for _, s := range m.stays {
		if s.Country == country {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *Memory) DeleteStay(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.stays {
		if s.ID == id {
			m.stays = append(m.stays[:i], m.stays[i+1:]...)
			return nil
		}
	}
	return generic.ErrStayNotFound
}

// Compile-time check
var _ generic.StayStore = (*Memory)(nil)

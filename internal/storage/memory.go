package storage

import (
	"context"
	"math/rand/v2"
	"sync"

	"geobot/internal/geoguesser"

	"github.com/google/uuid"
)

// Location pool that lives as long as the process
type MemoryStore struct {
	mu        sync.RWMutex
	locations map[geoguesser.Mode]map[uuid.UUID]geoguesser.Location
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locations: map[geoguesser.Mode]map[uuid.UUID]geoguesser.Location{}}
}

func (m *MemoryStore) LoadRandom(ctx context.Context, mode geoguesser.Mode, count int) ([]geoguesser.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool := make([]geoguesser.Location, 0, len(m.locations[mode]))
	for _, location := range m.locations[mode] {
		pool = append(pool, location)
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count < len(pool) {
		pool = pool[:max(count, 0)]
	}
	return pool, nil
}

func (m *MemoryStore) SaveMany(ctx context.Context, mode geoguesser.Mode, locations []geoguesser.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, ok := m.locations[mode]
	if !ok {
		pool = map[uuid.UUID]geoguesser.Location{}
		m.locations[mode] = pool
	}
	for _, location := range locations {
		location.Mode = mode
		location.Image = ""
		pool[location.ID] = location
	}
	return nil
}

func (m *MemoryStore) Count(ctx context.Context, mode geoguesser.Mode) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locations[mode]), nil
}

package zone

import (
	"context"
	"sort"
	"sync"

	"vetrimart/internal/types"
)

// MemoryStore keeps zones in process; used by tests and the CLI.
type MemoryStore struct {
	mu    sync.RWMutex
	zones map[types.ID]Zone
}

func NewMemoryStore(zones ...Zone) *MemoryStore {
	s := &MemoryStore{zones: make(map[types.ID]Zone, len(zones))}
	for _, z := range zones {
		s.zones[z.ID] = z
	}
	return s
}

func (s *MemoryStore) Put(z Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[z.ID] = z
}

func (s *MemoryStore) ListActive(_ context.Context) ([]Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Zone, 0, len(s.zones))
	for _, z := range s.zones {
		if z.IsActive {
			out = append(out, z)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AreaName == out[j].AreaName {
			return out[i].ID < out[j].ID
		}
		return out[i].AreaName < out[j].AreaName
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &z, nil
}

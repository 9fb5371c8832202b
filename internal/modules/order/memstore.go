// README: In-memory order repository for tests and single-process demos.
package order

import (
	"context"
	"sort"
	"sync"

	"vetrimart/internal/types"
)

type MemoryStore struct {
	mu     sync.RWMutex
	orders map[types.ID]*Order
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[types.ID]*Order)}
}

func (s *MemoryStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return ErrConflict
	}
	s.orders[o.ID] = o.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, o *Order, expectedVersion int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID]
	if !ok {
		return false, ErrNotFound
	}
	if cur.StatusVersion != expectedVersion {
		return false, nil
	}
	c := o.clone()
	c.StatusVersion = expectedVersion + 1
	s.orders[o.ID] = c
	return true, nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := *e
	ev.ID = int64(len(s.events) + 1)
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) ListByCustomer(_ context.Context, customerID types.ID) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, o.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Events(orderID types.ID) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

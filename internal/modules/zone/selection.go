// README: Selected-zone context for a browsing session, kept outside the resolver.
package zone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"vetrimart/internal/types"
)

const (
	selectionKeyPrefix  = "session:%s:zone"
	DefaultSelectionTTL = 7 * 24 * time.Hour
)

// Selection remembers which zone a session delivers to.
type Selection interface {
	Select(ctx context.Context, sessionID string, zoneID types.ID) (previous types.ID, err error)
	Selected(ctx context.Context, sessionID string) (types.ID, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

type RedisSelection struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSelection stores selections with a sliding ttl; a non-positive ttl
// uses DefaultSelectionTTL.
func NewRedisSelection(redis *redis.Client, ttl time.Duration) *RedisSelection {
	if ttl <= 0 {
		ttl = DefaultSelectionTTL
	}
	return &RedisSelection{redis: redis, ttl: ttl}
}

func (s *RedisSelection) Select(ctx context.Context, sessionID string, zoneID types.ID) (types.ID, error) {
	prev, err := s.redis.SetArgs(ctx, selectionKey(sessionID), string(zoneID), redis.SetArgs{
		TTL: s.ttl,
		Get: true,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return types.ID(prev), nil
}

func (s *RedisSelection) Selected(ctx context.Context, sessionID string) (types.ID, bool, error) {
	val, err := s.redis.Get(ctx, selectionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return types.ID(val), true, nil
}

func (s *RedisSelection) Clear(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, selectionKey(sessionID)).Err()
}

func selectionKey(sessionID string) string {
	return fmt.Sprintf(selectionKeyPrefix, sessionID)
}

type MemorySelection struct {
	mu       sync.Mutex
	selected map[string]types.ID
}

func NewMemorySelection() *MemorySelection {
	return &MemorySelection{selected: make(map[string]types.ID)}
}

func (s *MemorySelection) Select(_ context.Context, sessionID string, zoneID types.ID) (types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.selected[sessionID]
	s.selected[sessionID] = zoneID
	return prev, nil
}

func (s *MemorySelection) Selected(_ context.Context, sessionID string) (types.ID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.selected[sessionID]
	return id, ok, nil
}

func (s *MemorySelection) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, sessionID)
	return nil
}

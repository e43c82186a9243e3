package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"mediachat/internal/models"
	"mediachat/internal/redis"
)

// ContentStore keeps acquired text between questions.
type ContentStore interface {
	Save(ctx context.Context, c *models.Content, ttl time.Duration) error
	Load(ctx context.Context, id string) (*models.Content, error)
	Delete(ctx context.Context, id string) error
}

// RedisContentStore stores contents as JSON values with a TTL.
type RedisContentStore struct {
	client *redis.Client
}

func NewRedisContentStore(client *redis.Client) *RedisContentStore {
	return &RedisContentStore{client: client}
}

func contentKey(id string) string {
	return "content:" + id
}

func (s *RedisContentStore) Save(ctx context.Context, c *models.Content, ttl time.Duration) error {
	return s.client.SetJSON(ctx, contentKey(c.ID), c, ttl)
}

func (s *RedisContentStore) Load(ctx context.Context, id string) (*models.Content, error) {
	var c models.Content
	if err := s.client.GetJSON(ctx, contentKey(id), &c); err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	ttl, err := s.client.TTL(ctx, contentKey(id))
	if err != nil {
		return nil, err
	}
	// negative values mean no expiry or a key that vanished in between
	if ttl > 0 {
		expires := time.Now().Add(ttl).UTC()
		c.ExpiresAt = &expires
	}
	return &c, nil
}

func (s *RedisContentStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, contentKey(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContentNotFound
	}
	return nil
}

// MemoryContentStore is used when redis is disabled. Entries expire lazily.
type MemoryContentStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	content   models.Content
	expiresAt time.Time
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryContentStore) Save(_ context.Context, c *models.Content, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{content: *c}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[c.ID] = entry
	return nil
}

func (s *MemoryContentStore) Load(_ context.Context, id string) (*models.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookup(id)
	if !ok {
		return nil, ErrContentNotFound
	}
	c := entry.content
	if !entry.expiresAt.IsZero() {
		expires := entry.expiresAt
		c.ExpiresAt = &expires
	}
	return &c, nil
}

func (s *MemoryContentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(id); !ok {
		return ErrContentNotFound
	}
	delete(s.entries, id)
	return nil
}

// lookup must be called with mu held.
func (s *MemoryContentStore) lookup(id string) (memoryEntry, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return memoryEntry{}, false
	}
	return entry, true
}

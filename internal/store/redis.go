package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"showmatch/internal/match"
)

const defaultSessionTTL = time.Hour

// RedisStore keeps payloads in redis with a sliding TTL: every save refreshes
// the expiry, so an idle session eventually disappears.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(id string) string { return "show:sess:" + id }

func (s *RedisStore) Save(ctx context.Context, p *match.Payload) error {
	if p == nil || p.SessionID == "" {
		return fmt.Errorf("payload missing session id")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.rdb.Set(ctx, s.key(p.SessionID), raw, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (*match.Payload, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p match.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

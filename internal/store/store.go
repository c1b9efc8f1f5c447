package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"showmatch/internal/match"
)

// Store persists session payloads by id. Load returns (nil, nil) for a
// session that does not exist or has expired.
type Store interface {
	Save(ctx context.Context, p *match.Payload) error
	Load(ctx context.Context, id string) (*match.Payload, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps payloads in process memory. Used when no redis is
// configured; sessions then live as long as the process.
type MemoryStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payloads: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, p *match.Payload) error {
	if p == nil || p.SessionID == "" {
		return fmt.Errorf("payload missing session id")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	s.mu.Lock()
	s.payloads[p.SessionID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*match.Payload, error) {
	s.mu.RLock()
	raw, ok := s.payloads[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var p match.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &p, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.payloads, id)
	s.mu.Unlock()
	return nil
}

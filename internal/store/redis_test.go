package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"showmatch/internal/match"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Minute), mr
}

func samplePayload(id string) *match.Payload {
	return &match.Payload{
		SessionID: id,
		Variant:   "scripted",
		Character: "gandalf",
		MovesUCI:  []string{"e2e4", "e7e5"},
		Cursor:    1,
		LastError: "engine hiccup",
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, samplePayload("s1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p == nil {
		t.Fatalf("payload missing after save")
	}
	if p.Character != "gandalf" || p.Cursor != 1 || len(p.MovesUCI) != 2 {
		t.Fatalf("payload = %+v", p)
	}
}

func TestRedisStoreLoadMissing(t *testing.T) {
	s, _ := newTestRedisStore(t)
	p, err := s.Load(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil payload for missing session, got %+v", p)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, samplePayload("s1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	p, err := s.Load(ctx, "s1")
	if err != nil || p != nil {
		t.Fatalf("session survived delete: %+v, %v", p, err)
	}
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, samplePayload("s1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	p, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p != nil {
		t.Fatalf("session survived ttl expiry")
	}
}

func TestRedisStoreSaveRefreshesTTL(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, samplePayload("s1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(45 * time.Second)
	if err := s.Save(ctx, samplePayload("s1")); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	mr.FastForward(45 * time.Second)

	p, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p == nil {
		t.Fatalf("refreshed session expired early")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, samplePayload("s1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := s.Load(ctx, "s1")
	if err != nil || p == nil {
		t.Fatalf("Load: %+v, %v", p, err)
	}

	// mutating the loaded copy must not leak back into the store
	p.MovesUCI[0] = "h2h4"
	again, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load again: %v", err)
	}
	if again.MovesUCI[0] != "e2e4" {
		t.Fatalf("store contents mutated through a loaded copy")
	}

	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if p, _ := s.Load(ctx, "s1"); p != nil {
		t.Fatalf("session survived delete")
	}
}

package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/redis"
)

func newLockStore(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), config.RedisConfig{Address: mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisLockIsExclusive(t *testing.T) {
	client, mr := newLockStore(t)
	ctx := context.Background()

	a, err := NewRedisLock(client, "cron-worker", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	b, err := NewRedisLock(client, "cron-worker", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	if ok, err := a.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := b.Acquire(ctx); err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL(client.LockKey("cron-worker")); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %s", ttl)
	}

	if err := b.Release(ctx); err != nil {
		t.Fatalf("release by non owner: %v", err)
	}
	if !mr.Exists(client.LockKey("cron-worker")) {
		t.Fatal("non owner release must not drop the lock")
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := b.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	client, mr := newLockStore(t)
	ctx := context.Background()

	lock, err := NewRedisLock(client, "cron-worker", time.Second)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if ok, err := lock.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	mr.FastForward(2 * time.Second)

	other, _ := NewRedisLock(client, "cron-worker", time.Minute)
	if ok, err := other.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after expiry: ok=%v err=%v", ok, err)
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release stale lock: %v", err)
	}
	if !mr.Exists(client.LockKey("cron-worker")) {
		t.Fatal("stale owner must not release the new holder's lock")
	}
}

func TestNewRedisLockValidatesInput(t *testing.T) {
	if _, err := NewRedisLock(nil, "x", 0); err == nil {
		t.Fatal("expected error for nil store")
	}
	client, _ := newLockStore(t)
	if _, err := NewRedisLock(client, "", 0); err == nil {
		t.Fatal("expected error for empty name")
	}
}

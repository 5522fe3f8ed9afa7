package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func stubRedis(t *testing.T, pingErr error) *string {
	t.Helper()
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
		Client = nil
	})

	captured := new(string)
	newRedisClient = func(opts *redis.Options) *redis.Client {
		*captured = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return pingErr
	}
	return captured
}

func TestInitRedisWithCustomAddr(t *testing.T) {
	addr := stubRedis(t, nil)

	InitRedis(context.Background(), "redis:9999")
	if *addr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", *addr)
	}
	if Client == nil {
		t.Fatal("expected client to be set")
	}
}

func TestInitRedisParsesURL(t *testing.T) {
	addr := stubRedis(t, nil)

	InitRedis(context.Background(), "redis://cache.internal:6380/2")
	if *addr != "cache.internal:6380" {
		t.Fatalf("expected parsed addr, got %s", *addr)
	}
}

func TestInitRedisEmptyDisablesCache(t *testing.T) {
	addr := stubRedis(t, nil)

	InitRedis(context.Background(), "  ")
	if *addr != "" || Client != nil {
		t.Fatalf("expected no client for empty addr, got %q", *addr)
	}
}

func TestInitRedisPingFailureDisablesCache(t *testing.T) {
	stubRedis(t, errors.New("connection refused"))

	InitRedis(context.Background(), "localhost:6379")
	if Client != nil {
		t.Fatal("expected nil client after ping failure")
	}
}

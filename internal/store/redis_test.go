package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisFromClient(client), mr
}

func TestRedisStore_JSONRoundTripIsCompressed(t *testing.T) {
	rs, mr := setupTestRedis(t)
	ctx := context.Background()

	rockman := "r-1"
	in := []domain.Transaction{{MSISDN: "100", Platform: "sam", RockmanID: &rockman, TotalTransactions: 3}}
	if err := rs.SetJSON(ctx, "fetch:warehouse:ZA", in, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	stored, err := mr.Get("fetch:warehouse:ZA")
	if err != nil {
		t.Fatalf("key not written: %v", err)
	}
	if _, err := snappy.Decode(nil, []byte(stored)); err != nil {
		t.Errorf("expected snappy-encoded value: %v", err)
	}
	if ttl := mr.TTL("fetch:warehouse:ZA"); ttl != time.Minute {
		t.Errorf("expected ttl of 1m, got %v", ttl)
	}

	var out []domain.Transaction
	if err := rs.GetJSON(ctx, "fetch:warehouse:ZA", &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(out) != 1 || out[0].RockmanID == nil || *out[0].RockmanID != "r-1" || out[0].TotalTransactions != 3 {
		t.Errorf("unexpected decoded value: %+v", out)
	}
}

func TestRedisStore_GetJSONMiss(t *testing.T) {
	rs, mr := setupTestRedis(t)

	var out []string
	if err := rs.GetJSON(context.Background(), "absent", &out); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}

	mr.Set("garbage", "not snappy")
	if err := rs.GetJSON(context.Background(), "garbage", &out); err == nil || errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected a decode error, got %v", err)
	}
}

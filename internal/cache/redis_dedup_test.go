package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testDedup(t *testing.T, ttl time.Duration) (*RedisDedup, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisDedup(rdb, ttl), mr
}

func TestDedupMarkThenSeen(t *testing.T) {
	d, _ := testDedup(t, time.Hour)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "SM1", "delivered")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("unmarked delivery reported seen")
	}

	if err := d.Mark(ctx, "SM1", "delivered"); err != nil {
		t.Fatal(err)
	}
	seen, err = d.Seen(ctx, "SM1", "delivered")
	if err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Fatal("marked delivery not reported seen")
	}
}

func TestDedupKeyedByStatus(t *testing.T) {
	d, _ := testDedup(t, time.Hour)
	ctx := context.Background()

	if err := d.Mark(ctx, "SM1", "sent"); err != nil {
		t.Fatal(err)
	}
	seen, err := d.Seen(ctx, "SM1", "delivered")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("a different status for the same message must not count as seen")
	}
}

func TestDedupExpires(t *testing.T) {
	d, mr := testDedup(t, time.Minute)
	ctx := context.Background()

	if err := d.Mark(ctx, "SM1", "delivered"); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	seen, err := d.Seen(ctx, "SM1", "delivered")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("expired entry still reported seen")
	}
}

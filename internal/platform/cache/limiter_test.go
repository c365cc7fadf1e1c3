package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLimiter(rdb, "test:", limit, window), mr
}

func TestLimiterFixedWindow(t *testing.T) {
	l, mr := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("hit %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, retry, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("third hit allowed, want blocked")
	}
	if retry <= 0 || retry > time.Minute {
		t.Errorf("retry = %v", retry)
	}

	if ok, _, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other key blocked")
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("still blocked after the window expired")
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	if ok, _, err := l.Allow(context.Background(), "k"); !ok || err != nil {
		t.Fatalf("nil limiter: ok=%v err=%v", ok, err)
	}
}

func TestLimiterFailsOpenWhenRedisIsDown(t *testing.T) {
	l, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()
	ok, _, err := l.Allow(context.Background(), "k")
	if !ok || err == nil {
		t.Fatalf("ok=%v err=%v, want allowed with error", ok, err)
	}
}

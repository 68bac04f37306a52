package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeEvaler struct {
	counts map[string]int64
	ttls   map[string]int64
	err    error
}

func newFakeEvaler() *fakeEvaler {
	return &fakeEvaler{counts: map[string]int64{}, ttls: map[string]int64{}}
}

func (f *fakeEvaler) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.counts[keys[0]]++
	if f.counts[keys[0]] == 1 {
		f.ttls[keys[0]] = args[0].(int64)
	}
	return redis.NewCmdResult(f.counts[keys[0]], nil)
}

func TestRedisLimiter_Window(t *testing.T) {
	fake := newFakeEvaler()
	l := NewRedisLimiter(fake, RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	base := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return base }

	for i := 0; i < 2; i++ {
		if ok, _, err := l.Allow(context.Background(), "ip:1"); !ok || err != nil {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, retry, err := l.Allow(context.Background(), "ip:1")
	if err != nil || ok {
		t.Fatalf("third request must be limited, ok=%v err=%v", ok, err)
	}
	if retry < 1 || retry > 2 {
		t.Errorf("unexpected retry hint %d", retry)
	}

	if ok, _, _ := l.Allow(context.Background(), "ip:2"); !ok {
		t.Error("another caller must have its own counter")
	}

	l.now = func() time.Time { return base.Add(2 * time.Second) }
	if ok, _, _ := l.Allow(context.Background(), "ip:1"); !ok {
		t.Error("next window must start from zero")
	}

	for k, ttl := range fake.ttls {
		if !strings.HasPrefix(k, "clinic:ratelimit:") {
			t.Errorf("unexpected key %s", k)
		}
		if ttl != 2000 {
			t.Errorf("expected a 2s expiry, got %dms", ttl)
		}
	}
}

func TestNewRedisLimiter_MinimumWindow(t *testing.T) {
	l := NewRedisLimiter(newFakeEvaler(), RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10})
	if l.window != time.Second {
		t.Errorf("expected a one second window, got %s", l.window)
	}
}

func TestRateLimitWith_LimiterErrorLetsRequestThrough(t *testing.T) {
	fake := newFakeEvaler()
	fake.err = errors.New("connection refused")
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}

	e := echo.New()
	h := RateLimitWith(NewRedisLimiter(fake, cfg), cfg, zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		if _, err := runLimited(h, e, "alice"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
}

func TestRateLimitWith_RedisLimited(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 0.01, BurstSize: 1}
	e := echo.New()
	h := RateLimitWith(NewRedisLimiter(newFakeEvaler(), cfg), cfg, zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if _, err := runLimited(h, e, "alice"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	rec, err := runLimited(h, e, "alice")
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter mismo algoritmo que RedisLimiter pero en proceso (go-cache).
// Sirve cuando no hay Redis configurado; el límite es por réplica.
type MemoryLimiter struct {
	c      *gocache.Cache
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(prefix string, max int, window time.Duration) *MemoryLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	k := windowKey(l.prefix, key, now, l.window)
	ttl := now.Truncate(l.window).Add(l.window).Sub(now)

	// Add falla si ya existe: en ese caso solo incrementamos
	_ = l.c.Add(k, int64(0), ttl)
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// expiró entre Add e Increment: primera request de la ventana nueva
		l.c.Set(k, int64(1), ttl)
		hits = 1
	}
	return result(hits, l.max, ttl, l.window), nil
}

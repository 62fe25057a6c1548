package rate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter("", 5, time.Minute)
	base := time.Date(2026, 1, 1, 10, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return base }
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
		assert.EqualValues(t, 5-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.EqualValues(t, 6, res.CurrentHits)
	assert.Equal(t, 50*time.Second, res.RetryAfter)

	// otra key no comparte ventana
	res, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// ventana siguiente
	l.now = func() time.Time { return base.Add(time.Minute) }
	res, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.EqualValues(t, 1, res.CurrentHits)
}

func TestWindowKey(t *testing.T) {
	at := time.Unix(125, 0).UTC()
	assert.Equal(t, "rl:login:a_b:120", windowKey("rl:", "login:a b", at, time.Minute))
}

func TestRedisLimiter_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR no seteado")
	}
	c := rdb.NewClient(&rdb.Options{Addr: addr})
	defer c.Close()

	l := NewRedisLimiter(c, "rl-test:", 2, time.Minute)
	key := uuid.NewString()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

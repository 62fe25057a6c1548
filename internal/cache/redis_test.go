package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR no seteado")
	}
	ctx := context.Background()
	c, err := NewRedis(Config{Addr: addr, Prefix: "ringauth-test"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", st.Driver)
}

func TestInfoField(t *testing.T) {
	info := "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n"
	assert.Equal(t, "1.00K", infoField(info, "used_memory_human"))
	assert.Equal(t, "", infoField(info, "missing"))
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ringauth/internal/config"
	"github.com/dropDatabas3/ringauth/internal/metrics"
	"github.com/dropDatabas3/ringauth/internal/rate"

	_ "github.com/dropDatabas3/ringauth/internal/store/memory"
)

const yamlCfg = `
storage:
  driver: memory
cache:
  replicas: 5
  nodes:
    - name: A
    - name: B
jwt:
  secret: "0123456789abcdef0123456789abcdef"
admission:
  capacity: 4
rate:
  enabled: true
security:
  password_policy:
    require_digit: true
`

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	cfg, err := config.Load(p)
	require.NoError(t, err)
	return cfg
}

func TestBuild_WiresEverything(t *testing.T) {
	cfg := loadConfig(t, yamlCfg)
	reg := prometheus.NewRegistry()

	c, err := Build(context.Background(), cfg, reg)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	assert.Equal(t, []string{"A", "B"}, c.Pool.Ring().Nodes())
	assert.Equal(t, 5, c.Pool.Ring().Replicas())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RingNodes))
	assert.NotNil(t, c.Auth)
	assert.IsType(t, &rate.MemoryLimiter{}, c.RateLimiter)

	n, err := testutil.GatherAndCount(reg, "ringauth_admission_in_use")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuild_UnknownNodeDriverFails(t *testing.T) {
	cfg := loadConfig(t, yamlCfg)
	cfg.Cache.Nodes = append(cfg.Cache.Nodes, config.CacheNode{Name: "C", Driver: "memcached"})

	_, err := Build(context.Background(), cfg, prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add cache node C")
}

func TestBuild_MissingBlacklistFails(t *testing.T) {
	cfg := loadConfig(t, yamlCfg)
	cfg.Security.PasswordBlacklistPath = filepath.Join(t.TempDir(), "missing.txt")

	_, err := Build(context.Background(), cfg, prometheus.NewRegistry())
	require.Error(t, err)
}

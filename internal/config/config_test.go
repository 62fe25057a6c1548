package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsFromYAML(t *testing.T) {
	p := writeYAML(t, `
jwt:
  secret: "0123456789abcdef"
cache:
  nodes:
    - name: A
    - name: B
      addr: redis-b:6379
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, 3, c.Cache.Replicas)
	assert.Equal(t, uint32(3), c.Cache.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, Dur(c.Cache.Breaker.OpenTimeout, 0))
	assert.Equal(t, 24*time.Hour, Dur(c.JWT.TTL, 0))
	assert.Equal(t, "ringauth", c.JWT.Issuer)
	assert.Equal(t, 5, c.Rate.Login.Limit)
	require.Len(t, c.Cache.Nodes, 2)
	assert.Equal(t, "memory", c.Cache.Nodes[0].Driver)
	assert.Equal(t, "redis", c.Cache.Nodes[1].Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-0123456789")
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("APP_ENV", "PROD")
	t.Setenv("CACHE_NODES", "b=redis-b:6379, a=memory")
	t.Setenv("STORAGE_DSN", "postgres://u:p@db/ringauth")
	t.Setenv("ADMISSION_CAPACITY", "4")
	t.Setenv("ADMIN_TOKEN", "admin-0123456789")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret-0123456789", c.JWT.Secret)
	assert.Equal(t, ":9999", c.Server.Addr)
	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, "admin-0123456789", c.Server.AdminToken)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, 4, c.Admission.Capacity)
	assert.Equal(t, []CacheNode{
		{Name: "a", Driver: "memory"},
		{Name: "b", Driver: "redis", Addr: "redis-b:6379"},
	}, c.Cache.Nodes)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing secret":    `server: {addr: ":1"}`,
		"short secret":      `jwt: {secret: "short"}`,
		"bad env":           "app: {app_env: qa}\njwt: {secret: \"0123456789abcdef\"}",
		"pg without dsn":    "storage: {driver: postgres}\njwt: {secret: \"0123456789abcdef\"}",
		"bad duration":      "jwt: {secret: \"0123456789abcdef\", ttl: \"forever\"}",
		"duplicate node":    "jwt: {secret: \"0123456789abcdef\"}\ncache: {nodes: [{name: A}, {name: A}]}",
		"node without name": "jwt: {secret: \"0123456789abcdef\"}\ncache: {nodes: [{addr: x}]}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestLoad_ProdRequiresAdminToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-0123456789")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ADMIN_TOKEN", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.admin_token")

	// en dev el token vacío deja el admin abierto
	t.Setenv("APP_ENV", "dev")
	c, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, c.Server.AdminToken)

	t.Setenv("APP_ENV", "prod")
	t.Setenv("ADMIN_TOKEN", "admin-0123456789")
	_, err = Load("")
	require.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParseKVList(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, parseKVList(" a=1, b=2 ,=x, c= ", ","))
	assert.Empty(t, parseKVList("", ","))
}

func TestDur(t *testing.T) {
	assert.Equal(t, time.Minute, Dur("1m", time.Second))
	assert.Equal(t, time.Second, Dur("", time.Second))
	assert.Equal(t, time.Second, Dur("-5s", time.Second))
}

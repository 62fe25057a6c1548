// Package config carga la configuración YAML del servicio y aplica overrides
// por variables de entorno.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env  string `yaml:"app_env" validate:"omitempty,oneof=dev staging prod"`
		Name string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr" validate:"required"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		// AdminToken protege /v1/ring/*; vacío = sin auth (no permitido en prod).
		AdminToken string `yaml:"admin_token"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver" validate:"oneof=memory postgres pg postgresql"`
		DSN      string `yaml:"dsn" validate:"required_unless=Driver memory"`
		Migrate  bool   `yaml:"migrate"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Replicas int         `yaml:"replicas" validate:"gte=1"`
		Prefix   string      `yaml:"prefix"`
		TokenTTL string      `yaml:"token_ttl"`
		Nodes    []CacheNode `yaml:"nodes" validate:"dive"`
		Breaker  struct {
			FailureThreshold uint32 `yaml:"failure_threshold"`
			OpenTimeout      string `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"cache"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		Secret string `yaml:"secret" validate:"required,min=16"`
		TTL    string `yaml:"ttl"`
	} `yaml:"jwt"`

	Admission struct {
		// Capacity ejecuciones de saga concurrentes; 0 = sin límite.
		Capacity int `yaml:"capacity" validate:"gte=0"`
	} `yaml:"admission"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Login struct {
			Limit  int    `yaml:"limit" validate:"gte=1"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`

	Security struct {
		PasswordBlacklistPath string `yaml:"password_blacklist_path"`
		PasswordPolicy        struct {
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
	} `yaml:"security"`

	Log struct {
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
}

// CacheNode un nodo físico del ring. Driver vacío: redis si hay Addr, si no memory.
type CacheNode struct {
	Name     string `yaml:"name" validate:"required"`
	Driver   string `yaml:"driver" validate:"omitempty,oneof=memory redis"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load lee path (si no es vacío), aplica defaults y overrides de entorno, y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "ringauth"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Replicas == 0 {
		c.Cache.Replicas = 3
	}
	if c.Cache.TokenTTL == "" {
		c.Cache.TokenTTL = "24h"
	}
	if c.Cache.Breaker.FailureThreshold == 0 {
		c.Cache.Breaker.FailureThreshold = 3
	}
	if c.Cache.Breaker.OpenTimeout == "" {
		c.Cache.Breaker.OpenTimeout = "30s"
	}
	for i := range c.Cache.Nodes {
		n := &c.Cache.Nodes[i]
		if n.Driver == "" {
			if n.Addr == "" {
				n.Driver = "memory"
			} else {
				n.Driver = "redis"
			}
		}
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = c.App.Name
	}
	if c.JWT.TTL == "" {
		c.JWT.TTL = "24h"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 5
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("ADMIN_TOKEN"); ok {
		c.Server.AdminToken = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
		if c.Storage.Driver == "" {
			c.Storage.Driver = "postgres"
		}
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE"); ok {
		c.Storage.Migrate = v
	}

	// CACHE
	if v, ok := getEnvInt("CACHE_REPLICAS"); ok {
		c.Cache.Replicas = v
	}
	if v, ok := getEnvKVList("CACHE_NODES", ","); ok {
		c.Cache.Nodes = nodesFromKV(v)
	}

	// JWT
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}

	// ADMISSION
	if v, ok := getEnvInt("ADMISSION_CAPACITY"); ok {
		c.Admission.Capacity = v
	}

	// RATE
	if v, ok := getEnvStr("RATE_REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
		c.Rate.Enabled = true
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
}

// nodesFromKV: "a=redis-a:6379,b=memory". El valor "memory" crea un nodo en proceso.
func nodesFromKV(kv map[string]string) []CacheNode {
	names := make([]string, 0, len(kv))
	for n := range kv {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]CacheNode, 0, len(names))
	for _, n := range names {
		addr := kv[n]
		if strings.EqualFold(addr, "memory") {
			out = append(out, CacheNode{Name: n, Driver: "memory"})
			continue
		}
		out = append(out, CacheNode{Name: n, Driver: "redis", Addr: addr})
	}
	return out
}

// Validate chequea tags, duraciones y que prod no quede con /v1/ring abierto.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	seen := map[string]bool{}
	for _, n := range c.Cache.Nodes {
		if seen[n.Name] {
			return fmt.Errorf("config validation failed: duplicate cache node %q", n.Name)
		}
		seen[n.Name] = true
	}
	if c.App.Env == "prod" && c.Server.AdminToken == "" {
		return fmt.Errorf("config validation failed: server.admin_token is required when app.env=prod")
	}
	for name, s := range map[string]string{
		"server.read_timeout":                c.Server.ReadTimeout,
		"server.write_timeout":               c.Server.WriteTimeout,
		"server.shutdown_timeout":            c.Server.ShutdownTimeout,
		"storage.postgres.conn_max_lifetime": c.Storage.Postgres.ConnMaxLifetime,
		"cache.token_ttl":                    c.Cache.TokenTTL,
		"cache.breaker.open_timeout":         c.Cache.Breaker.OpenTimeout,
		"jwt.ttl":                            c.JWT.TTL,
		"rate.login.window":                  c.Rate.Login.Window,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config validation failed: %s: %w", name, err)
		}
	}
	return nil
}

// Dur parsea s; vacío o inválido devuelve def. Las duraciones ya pasaron por Validate.
func Dur(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return def
}

// parse env of form "k1=v1<sep>k2=v2" into map
func parseKVList(s, sep string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]string{}
	}
	items := strings.Split(s, sep)
	out := make(map[string]string, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		// split at first '='
		if i := strings.IndexRune(it, '='); i > 0 {
			k := strings.TrimSpace(it[:i])
			v := strings.TrimSpace(it[i+1:])
			if k != "" && v != "" {
				out[k] = v
			}
		}
	}
	return out
}

func getEnvKVList(key, sep string) (map[string]string, bool) {
	if s, ok := getEnvStr(key); ok {
		return parseKVList(s, sep), true
	}
	return nil, false
}

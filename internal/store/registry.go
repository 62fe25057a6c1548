package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Config configuración del store de usuarios.
type Config struct {
	Driver          string // "memory" | "postgres"
	DSN             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	// Migrate aplica las migraciones embebidas al abrir (solo postgres).
	Migrate bool
}

// OpenFunc abre una conexión de un driver.
type OpenFunc func(ctx context.Context, cfg Config) (UserStore, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]OpenFunc{}
)

// Register registra un adapter. Se llama desde init() de cada adapter.
// Registrar dos veces el mismo nombre hace panic.
func Register(name string, fn OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name = strings.ToLower(name)
	if _, dup := registry[name]; dup {
		panic("store: adapter registered twice: " + name)
	}
	registry[name] = fn
}

// Drivers lista los adapters registrados.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Open abre el store del driver configurado. "pg" y "postgresql" son alias de
// "postgres"; un driver vacío usa "memory".
func Open(ctx context.Context, cfg Config) (UserStore, error) {
	d := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch d {
	case "", "mem":
		d = "memory"
	case "pg", "postgresql":
		d = "postgres"
	}

	registryMu.RLock()
	fn, ok := registry[d]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %s)", ErrUnknownDriver, cfg.Driver, strings.Join(Drivers(), ", "))
	}
	return fn(ctx, cfg)
}

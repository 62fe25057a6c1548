// Package app arma el contenedor de dependencias del servicio a partir de la
// configuración.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/ringauth/internal/admission"
	"github.com/dropDatabas3/ringauth/internal/audit"
	"github.com/dropDatabas3/ringauth/internal/auth"
	"github.com/dropDatabas3/ringauth/internal/cache"
	"github.com/dropDatabas3/ringauth/internal/config"
	"github.com/dropDatabas3/ringauth/internal/jwt"
	"github.com/dropDatabas3/ringauth/internal/metrics"
	"github.com/dropDatabas3/ringauth/internal/observability/logger"
	"github.com/dropDatabas3/ringauth/internal/rate"
	"github.com/dropDatabas3/ringauth/internal/ring"
	"github.com/dropDatabas3/ringauth/internal/saga"
	"github.com/dropDatabas3/ringauth/internal/security/password"
	"github.com/dropDatabas3/ringauth/internal/store"
	"github.com/dropDatabas3/ringauth/internal/validation"
)

// Container dependencias ya conectadas.
type Container struct {
	Users       store.UserStore
	Pool        *cache.NodePool
	Issuer      *jwt.Issuer
	Admission   admission.Limiter
	Auth        *auth.Service
	RateLimiter rate.Limiter

	closers []func() error
}

// Close libera pool, store y el cliente redis del rate limiter.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build conecta todo según cfg. reg puede ser nil (registry default).
// Los adapters de store deben estar registrados (blank import).
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Container, error) {
	log := logger.L().With(logger.Layer("app"), logger.Op("Build"))
	c := &Container{}

	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// 1. Store de usuarios
	users, err := store.Open(ctx, store.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxConns:        cfg.Storage.Postgres.MaxOpenConns,
		MinConns:        cfg.Storage.Postgres.MinConns,
		ConnMaxLifetime: config.Dur(cfg.Storage.Postgres.ConnMaxLifetime, 0),
		Migrate:         cfg.Storage.Migrate,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.Users = users
	c.closers = append(c.closers, users.Close)

	// 2. Ring + pool de nodos
	r := ring.New(ring.WithReplicas(cfg.Cache.Replicas))
	c.Pool = cache.NewNodePool(r,
		cache.WithBreaker(cache.BreakerSettings{
			FailureThreshold: cfg.Cache.Breaker.FailureThreshold,
			OpenTimeout:      config.Dur(cfg.Cache.Breaker.OpenTimeout, 0),
		}),
		cache.WithTopologyHook(func(n int) { metrics.RingNodes.Set(float64(n)) }),
	)
	c.closers = append(c.closers, c.Pool.Close)
	for _, n := range cfg.Cache.Nodes {
		err := c.Pool.AddNode(ctx, cache.NodeConfig{
			Name: n.Name,
			Config: cache.Config{
				Driver:   n.Driver,
				Addr:     n.Addr,
				Password: n.Password,
				DB:       n.DB,
				Prefix:   cfg.Cache.Prefix,
			},
		})
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("add cache node %s: %w", n.Name, err)
		}
		log.Info("cache node added", logger.Node(n.Name), logger.String("driver", n.Driver))
	}
	if r.Len() == 0 {
		log.Warn("ring has no cache nodes; register and login will fail until one is added")
	}

	// 3. Issuer
	c.Issuer, err = jwt.NewIssuer(cfg.JWT.Issuer, []byte(cfg.JWT.Secret), config.Dur(cfg.JWT.TTL, jwt.DefaultTTL))
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("jwt issuer: %w", err)
	}

	// 4. Admisión
	c.Admission = admission.Unlimited()
	if cfg.Admission.Capacity > 0 {
		sem := admission.NewSemaphore(cfg.Admission.Capacity)
		if err := metrics.RegisterAdmission(reg, sem); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("register admission metrics: %w", err)
		}
		c.Admission = sem
	}

	// 5. Política de passwords
	policy := password.Policy{
		RequireUpper:  cfg.Security.PasswordPolicy.RequireUpper,
		RequireLower:  cfg.Security.PasswordPolicy.RequireLower,
		RequireDigit:  cfg.Security.PasswordPolicy.RequireDigit,
		RequireSymbol: cfg.Security.PasswordPolicy.RequireSymbol,
	}
	if p := cfg.Security.PasswordBlacklistPath; p != "" {
		bl, err := password.LoadBlacklist(p)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("load password blacklist: %w", err)
		}
		policy.Blacklist = bl
		log.Info("password blacklist loaded", logger.Count(bl.Len()))
	}

	// 6. Servicio de auth
	c.Auth, err = auth.NewService(auth.Deps{
		Users:     c.Users,
		Pool:      c.Pool,
		Issuer:    c.Issuer,
		Limiter:   c.Admission,
		Observer:  saga.Observers(audit.NewSagaObserver(nil), metrics.SagaObserver{}),
		Validator: validation.New(policy),
		TokenTTL:  config.Dur(cfg.Cache.TokenTTL, jwt.DefaultTTL),
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	// 7. Rate limit de register/login
	if cfg.Rate.Enabled {
		window := config.Dur(cfg.Rate.Login.Window, time.Minute)
		if addr := cfg.Rate.Redis.Addr; addr != "" {
			client := rdb.NewClient(&rdb.Options{
				Addr:     addr,
				Password: cfg.Rate.Redis.Password,
				DB:       cfg.Rate.Redis.DB,
			})
			c.closers = append(c.closers, client.Close)
			c.RateLimiter = rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.Login.Limit, window)
		} else {
			c.RateLimiter = rate.NewMemoryLimiter("", cfg.Rate.Login.Limit, window)
		}
	}

	return c, nil
}

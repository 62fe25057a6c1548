package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/dropDatabas3/ringauth/internal/observability/logger"
)

// ErrNodeUnavailable se retorna cuando el breaker del nodo está abierto.
var ErrNodeUnavailable = errors.New("cache: node unavailable")

// BreakerSettings controla el circuit breaker de cada nodo.
type BreakerSettings struct {
	// FailureThreshold fallas consecutivas que abren el breaker. Default 3.
	FailureThreshold uint32
	// OpenTimeout tiempo en estado abierto antes de pasar a half-open. Default 30s.
	OpenTimeout time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 3
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return s
}

// breakerClient envuelve un Client con un gobreaker por nodo. Un miss no cuenta
// como falla.
type breakerClient struct {
	node  string
	inner Client
	cb    *gobreaker.CircuitBreaker
}

func newBreakerClient(node string, inner Client, s BreakerSettings) *breakerClient {
	s = s.withDefaults()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        node,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("cache node breaker state change",
				logger.Component("cache.pool"),
				logger.Node(name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &breakerClient{node: node, inner: inner, cb: cb}
}

func (b *breakerClient) do(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %w", ErrNodeUnavailable, b.node, err)
	}
	return v, err
}

func (b *breakerClient) Get(ctx context.Context, key string) (string, error) {
	v, err := b.do(func() (any, error) { return b.inner.Get(ctx, key) })
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (b *breakerClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := b.do(func() (any, error) { return nil, b.inner.Set(ctx, key, value, ttl) })
	return err
}

func (b *breakerClient) Delete(ctx context.Context, key string) error {
	_, err := b.do(func() (any, error) { return nil, b.inner.Delete(ctx, key) })
	return err
}

func (b *breakerClient) Exists(ctx context.Context, key string) (bool, error) {
	v, err := b.do(func() (any, error) { return b.inner.Exists(ctx, key) })
	if err != nil {
		return false, err
	}
	ok, _ := v.(bool)
	return ok, nil
}

func (b *breakerClient) Ping(ctx context.Context) error {
	_, err := b.do(func() (any, error) { return nil, b.inner.Ping(ctx) })
	return err
}

func (b *breakerClient) Close() error { return b.inner.Close() }

func (b *breakerClient) Stats(ctx context.Context) (Stats, error) { return b.inner.Stats(ctx) }

// State retorna "closed", "half-open" u "open".
func (b *breakerClient) State() string { return b.cb.State().String() }

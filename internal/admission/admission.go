// Package admission limita cuántas operaciones caras (ejecuciones de saga,
// lookups de cache contra el store) corren a la vez.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity: dos requests concurrentes, como el user service.
const DefaultCapacity = 2

// ErrRejected envuelve el error de ctx mientras se espera un permiso.
var ErrRejected = errors.New("admission: permit not acquired")

// Permit es un slot de admisión. Release es idempotente.
type Permit interface {
	Release()
}

// Limiter entrega permisos y bloquea mientras estén todos en uso.
type Limiter interface {
	Acquire(ctx context.Context) (Permit, error)
}

// Semaphore implementa Limiter sobre x/sync/semaphore.
type Semaphore struct {
	sem      *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64
}

// NewSemaphore crea un limiter de n slots. n <= 0 usa DefaultCapacity.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		n = DefaultCapacity
	}
	return &Semaphore{sem: semaphore.NewWeighted(int64(n)), capacity: int64(n)}
}

// Acquire bloquea hasta que haya un slot libre o ctx termine.
func (s *Semaphore) Acquire(ctx context.Context) (Permit, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	s.inUse.Add(1)
	return &permit{release: func() {
		s.inUse.Add(-1)
		s.sem.Release(1)
	}}, nil
}

// TryAcquire retorna un permiso sólo si hay uno libre ahora.
func (s *Semaphore) TryAcquire() (Permit, bool) {
	if !s.sem.TryAcquire(1) {
		return nil, false
	}
	s.inUse.Add(1)
	return &permit{release: func() {
		s.inUse.Add(-1)
		s.sem.Release(1)
	}}, true
}

// InUse permisos tomados en este momento.
func (s *Semaphore) InUse() int { return int(s.inUse.Load()) }

// Capacity total de slots.
func (s *Semaphore) Capacity() int { return int(s.capacity) }

type permit struct {
	once    sync.Once
	release func()
}

func (p *permit) Release() { p.once.Do(p.release) }

// Unlimited retorna un Limiter que nunca bloquea.
func Unlimited() Limiter { return unlimited{} }

type unlimited struct{}

func (unlimited) Acquire(ctx context.Context) (Permit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return noopPermit{}, nil
}

type noopPermit struct{}

func (noopPermit) Release() {}

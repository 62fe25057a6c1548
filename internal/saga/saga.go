package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/ringauth/internal/admission"
)

// ActionFunc hace el trabajo del paso. Su resultado se le pasa a la
// compensación si hay rollback.
type ActionFunc func(ctx context.Context) (any, error)

// CompensationFunc deshace lo que hizo la acción. result es lo que retornó.
type CompensationFunc func(ctx context.Context, result any) error

// Step es una unidad de la saga. Compensation nil = nada que deshacer.
type Step struct {
	Name         string
	Action       ActionFunc
	Compensation CompensationFunc
}

// Status estado de una ejecución.
type Status string

const (
	StatusRunning      Status = "running"
	StatusCommitted    Status = "committed"
	StatusCompensating Status = "compensating"
	StatusFailed       Status = "failed"
)

// ErrInvalidDefinition lo retorna Build con una saga vacía o un paso sin acción.
var ErrInvalidDefinition = errors.New("saga: invalid definition")

// Builder acumula pasos. No es seguro para uso concurrente.
type Builder struct {
	name     string
	steps    []Step
	observer Observer
	limiter  admission.Limiter
}

// Option configura un Builder.
type Option func(*Builder)

// WithObserver recibe un evento por acción, por compensación y por el estado final.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// WithLimiter hace que cada ejecución tome un permiso de l durante toda la corrida.
func WithLimiter(l admission.Limiter) Option {
	return func(b *Builder) { b.limiter = l }
}

// NewBuilder arranca la definición de la saga name.
func NewBuilder(name string, opts ...Option) *Builder {
	b := &Builder{name: name}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddStep agrega un paso. El orden de llamadas es el orden de ejecución.
func (b *Builder) AddStep(name string, action ActionFunc, compensation CompensationFunc) *Builder {
	return b.Add(Step{Name: name, Action: action, Compensation: compensation})
}

// Add agrega un Step ya armado.
func (b *Builder) Add(s Step) *Builder {
	if s.Name == "" {
		s.Name = fmt.Sprintf("step-%d", len(b.steps))
	}
	b.steps = append(b.steps, s)
	return b
}

// Build congela los pasos actuales en una Definition. AddStep posteriores no
// afectan definiciones ya construidas.
func (b *Builder) Build() (*Definition, error) {
	if len(b.steps) == 0 {
		return nil, fmt.Errorf("%w: %q has no steps", ErrInvalidDefinition, b.name)
	}
	for i, s := range b.steps {
		if s.Action == nil {
			return nil, fmt.Errorf("%w: step %d (%s) has no action", ErrInvalidDefinition, i, s.Name)
		}
	}
	steps := make([]Step, len(b.steps))
	copy(steps, b.steps)

	obs := b.observer
	if obs == nil {
		obs = nopObserver{}
	}
	lim := b.limiter
	if lim == nil {
		lim = admission.Unlimited()
	}
	return &Definition{name: b.name, steps: steps, observer: obs, limiter: lim}, nil
}

// MustBuild es Build para definiciones armadas en init.
func (b *Builder) MustBuild() *Definition {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Definition es inmutable y reusable. Execute se puede llamar en paralelo; cada
// llamada tiene su propio Execution.
type Definition struct {
	name     string
	steps    []Step
	observer Observer
	limiter  admission.Limiter
}

// Name nombre de la saga.
func (d *Definition) Name() string { return d.name }

// Steps retorna una copia de los pasos en orden de ejecución.
func (d *Definition) Steps() []Step {
	out := make([]Step, len(d.steps))
	copy(out, d.steps)
	return out
}

// Execution registro de una llamada a Execute.
type Execution struct {
	ID         string
	Saga       string
	Status     Status
	Completed  []int // índices de acciones exitosas, en orden de finalización
	Results    []any // resultado por paso; nil si no terminó bien
	StartedAt  time.Time
	FinishedAt time.Time
}

// Result retorna el valor del paso i, o nil.
func (e *Execution) Result(i int) any {
	if i < 0 || i >= len(e.Results) {
		return nil
	}
	return e.Results[i]
}

package saga

import (
	"context"
	"time"
)

// Phase indica a qué parte de la saga pertenece un Event.
type Phase string

const (
	PhaseAction       Phase = "action"
	PhaseCompensation Phase = "compensation"
	PhaseSaga         Phase = "saga"
)

// Valores de Outcome.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCommitted = "committed"
)

// Event se emite después de cada acción y de cada compensación. Al final va uno
// más con Phase == PhaseSaga y StepIndex == -1.
type Event struct {
	Saga        string
	ExecutionID string
	StepIndex   int
	StepName    string
	Phase       Phase
	Outcome     string
	Status      Status
	Err         error
	Duration    time.Duration
}

// Observer recibe los eventos. Tiene que ser seguro para uso concurrente:
// ejecuciones independientes reportan en paralelo.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapta una func a Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Observers reparte cada evento a los observers no nil, en orden.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) OnEvent(ctx context.Context, ev Event) {
	for _, o := range m {
		o.OnEvent(ctx, ev)
	}
}

type nopObserver struct{}

func (nopObserver) OnEvent(context.Context, Event) {}

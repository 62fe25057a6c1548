package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Execute corre la saga una vez. Siempre retorna el Execution; el error es nil
// sólo si Status == StatusCommitted. Si falla un paso el error es un *Error. Si
// no se obtuvo permiso de admisión no corre ningún paso y el error envuelve
// ErrAdmission.
func (d *Definition) Execute(ctx context.Context) (*Execution, error) {
	exec := &Execution{
		ID:        uuid.NewString(),
		Saga:      d.name,
		Status:    StatusRunning,
		Results:   make([]any, len(d.steps)),
		StartedAt: time.Now(),
	}

	permit, err := d.limiter.Acquire(ctx)
	if err != nil {
		exec.Status = StatusFailed
		exec.FinishedAt = time.Now()
		err = fmt.Errorf("%w: %w", ErrAdmission, err)
		d.emit(ctx, exec, Event{StepIndex: -1, Phase: PhaseSaga, Outcome: OutcomeFailed, Err: err, Duration: exec.FinishedAt.Sub(exec.StartedAt)})
		return exec, err
	}
	defer permit.Release()

	var failed *StepFailedError
	for i, step := range d.steps {
		start := time.Now()
		var (
			res  any
			rerr error
		)
		// ctx cancelado: el paso cuenta como fallido y se compensa el prefijo
		if cerr := ctx.Err(); cerr != nil {
			rerr = cerr
		} else {
			res, rerr = runAction(ctx, step.Action)
		}
		ev := Event{StepIndex: i, StepName: step.Name, Phase: PhaseAction, Duration: time.Since(start)}
		if rerr != nil {
			ev.Outcome, ev.Err = OutcomeFailed, rerr
			d.emit(ctx, exec, ev)
			failed = &StepFailedError{Index: i, Name: step.Name, Cause: rerr}
			break
		}
		ev.Outcome = OutcomeSucceeded
		d.emit(ctx, exec, ev)
		exec.Results[i] = res
		exec.Completed = append(exec.Completed, i)
	}

	if failed == nil {
		exec.Status = StatusCommitted
		exec.FinishedAt = time.Now()
		d.emit(ctx, exec, Event{StepIndex: -1, Phase: PhaseSaga, Outcome: OutcomeCommitted, Duration: exec.FinishedAt.Sub(exec.StartedAt)})
		return exec, nil
	}

	exec.Status = StatusCompensating
	serr := &Error{Saga: d.name, ExecutionID: exec.ID, Step: failed}
	serr.Compensations = d.compensate(context.WithoutCancel(ctx), exec)

	exec.Status = StatusFailed
	exec.FinishedAt = time.Now()
	d.emit(ctx, exec, Event{StepIndex: -1, Phase: PhaseSaga, Outcome: OutcomeFailed, Err: serr, Duration: exec.FinishedAt.Sub(exec.StartedAt)})
	return exec, serr
}

// compensate deshace los pasos completados en orden inverso. Una compensación
// que falla se registra y las restantes corren igual.
func (d *Definition) compensate(ctx context.Context, exec *Execution) []*CompensationFailedError {
	var failures []*CompensationFailedError
	for j := len(exec.Completed) - 1; j >= 0; j-- {
		i := exec.Completed[j]
		step := d.steps[i]
		if step.Compensation == nil {
			continue
		}
		start := time.Now()
		err := runCompensation(ctx, step.Compensation, exec.Results[i])
		ev := Event{StepIndex: i, StepName: step.Name, Phase: PhaseCompensation, Duration: time.Since(start)}
		if err != nil {
			ev.Outcome, ev.Err = OutcomeFailed, err
			failures = append(failures, &CompensationFailedError{Index: i, Name: step.Name, Cause: err})
		} else {
			ev.Outcome = OutcomeSucceeded
		}
		d.emit(ctx, exec, ev)
	}
	return failures
}

func (d *Definition) emit(ctx context.Context, exec *Execution, ev Event) {
	ev.Saga = d.name
	ev.ExecutionID = exec.ID
	ev.Status = exec.Status
	d.observer.OnEvent(ctx, ev)
}

func runAction(ctx context.Context, fn ActionFunc) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()
	return fn(ctx)
}

func runCompensation(ctx context.Context, fn CompensationFunc, result any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()
	return fn(ctx, result)
}

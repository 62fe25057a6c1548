package saga

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStepPanicked es la causa registrada cuando una acción o compensación hace panic.
	ErrStepPanicked = errors.New("saga: step panicked")

	// ErrAdmission: la ejecución no consiguió permiso de admisión.
	ErrAdmission = errors.New("saga: admission denied")
)

// StepFailedError es la acción que frenó la saga.
type StepFailedError struct {
	Index int
	Name  string
	Cause error
}

func (e *StepFailedError) Error() string {
	return fmt.Sprintf("saga: step %d (%s) failed: %v", e.Index, e.Name, e.Cause)
}

func (e *StepFailedError) Unwrap() error { return e.Cause }

// CompensationFailedError es una compensación que no pudo deshacer su paso.
type CompensationFailedError struct {
	Index int
	Name  string
	Cause error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("saga: compensation %d (%s) failed: %v", e.Index, e.Name, e.Cause)
}

func (e *CompensationFailedError) Unwrap() error { return e.Cause }

// Error lo retorna Execute cuando la saga no commiteó. Step siempre está;
// Compensations lista las compensaciones fallidas en el orden en que corrieron.
type Error struct {
	Saga          string
	ExecutionID   string
	Step          *StepFailedError
	Compensations []*CompensationFailedError
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "saga %s: %v", e.Saga, e.Step)
	if len(e.Compensations) > 0 {
		fmt.Fprintf(&b, "; %d compensation(s) failed:", len(e.Compensations))
		for _, c := range e.Compensations {
			fmt.Fprintf(&b, " [%d %s: %v]", c.Index, c.Name, c.Cause)
		}
	}
	return b.String()
}

// Unwrap expone la falla del paso y las de compensación a errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 1+len(e.Compensations))
	if e.Step != nil {
		out = append(out, e.Step)
	}
	for _, c := range e.Compensations {
		out = append(out, c)
	}
	return out
}

// CompensationIncomplete: algún rollback falló, puede hacer falta reconciliar a mano.
func (e *Error) CompensationIncomplete() bool { return len(e.Compensations) > 0 }

// IsCompensationIncomplete indica si err trae un *Error con compensaciones fallidas.
func IsCompensationIncomplete(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.CompensationIncomplete()
}

// FailedStep retorna el índice del paso que falló, o -1 si err no viene de una saga.
func FailedStep(err error) int {
	var sf *StepFailedError
	if errors.As(err, &sf) {
		return sf.Index
	}
	return -1
}

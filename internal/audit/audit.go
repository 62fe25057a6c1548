// Package audit registra en el log cada evento de las sagas.
package audit

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dropDatabas3/ringauth/internal/observability/logger"
	"github.com/dropDatabas3/ringauth/internal/saga"
)

// SagaObserver loguea eventos de saga. Acciones exitosas van a Debug, fallas
// a Warn y compensaciones fallidas a Error.
type SagaObserver struct {
	log *zap.Logger
}

// NewSagaObserver usa l, o el logger global si l es nil.
func NewSagaObserver(l *zap.Logger) *SagaObserver {
	if l == nil {
		l = logger.L()
	}
	return &SagaObserver{log: l.With(logger.Component("saga.audit"))}
}

func (o *SagaObserver) OnEvent(ctx context.Context, ev saga.Event) {
	fields := []zap.Field{
		logger.Saga(ev.Saga),
		logger.ExecutionID(ev.ExecutionID),
		logger.StepIndex(ev.StepIndex),
		logger.Phase(string(ev.Phase)),
		logger.Outcome(ev.Outcome),
		logger.Duration(ev.Duration),
	}
	if ev.StepName != "" {
		fields = append(fields, logger.Step(ev.StepName))
	}
	if ev.Err != nil {
		fields = append(fields, logger.Err(ev.Err))
	}

	var msg string
	switch ev.Phase {
	case saga.PhaseAction:
		msg = "saga step"
	case saga.PhaseCompensation:
		msg = "saga compensation"
	default:
		msg = "saga finished"
	}
	if ce := o.log.Check(level(ev), msg); ce != nil {
		ce.Write(fields...)
	}
}

func level(ev saga.Event) zapcore.Level {
	switch {
	case ev.Phase == saga.PhaseCompensation && ev.Outcome == saga.OutcomeFailed:
		return zapcore.ErrorLevel
	case ev.Outcome == saga.OutcomeFailed:
		return zapcore.WarnLevel
	case ev.Phase == saga.PhaseSaga:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

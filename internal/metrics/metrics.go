// Package metrics define las métricas Prometheus del servicio.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/ringauth/internal/saga"
)

var (
	SagaSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ringauth_saga_steps_total",
		Help: "Acciones y compensaciones ejecutadas por saga, fase y resultado",
	}, []string{"saga", "phase", "outcome"})

	SagaExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ringauth_saga_executions_total",
		Help: "Ejecuciones terminadas por saga y estado final",
	}, []string{"saga", "status"})

	SagaStepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ringauth_saga_step_duration_seconds",
		Help:    "Duración de cada acción o compensación",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"saga", "phase"})

	RingNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ringauth_ring_nodes",
		Help: "Nodos físicos en el hash ring",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register registra las métricas en reg (o el default si es nil). Registrar dos
// veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{SagaSteps, SagaExecutions, SagaStepDuration, RingNodes, HTTPRequests, HTTPDuration} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// SagaObserver alimenta las métricas de saga.
type SagaObserver struct{}

func (SagaObserver) OnEvent(_ context.Context, ev saga.Event) {
	if ev.Phase == saga.PhaseSaga {
		SagaExecutions.WithLabelValues(ev.Saga, string(ev.Status)).Inc()
		return
	}
	SagaSteps.WithLabelValues(ev.Saga, string(ev.Phase), ev.Outcome).Inc()
	SagaStepDuration.WithLabelValues(ev.Saga, string(ev.Phase)).Observe(ev.Duration.Seconds())
}

// InUseReporter lo implementa admission.Semaphore.
type InUseReporter interface{ InUse() int }

// RegisterAdmission expone r.InUse() como gauge, leído en cada scrape.
func RegisterAdmission(reg prometheus.Registerer, r InUseReporter) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ringauth_admission_in_use",
		Help: "Permisos de admisión tomados",
	}, func() float64 { return float64(r.InUse()) })
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
	}
	return nil
}

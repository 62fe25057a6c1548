package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/ringauth/internal/http/helpers"
	"github.com/dropDatabas3/ringauth/internal/observability/logger"
)

// Pinger algo que responde a un ping (el store de usuarios).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController expone liveness y readiness.
type HealthController struct {
	store   Pinger
	nodes   func() int
	version string
}

// NewHealthController nodes devuelve la cantidad de nodos del ring.
func NewHealthController(store Pinger, nodes func() int, version string) *HealthController {
	return &HealthController{store: store, nodes: nodes, version: version}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Healthz maneja GET /healthz
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: c.version})
}

// Readyz maneja GET /readyz: store accesible y al menos un nodo en el ring.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok", "ring": "ok"}
	ready := true

	if c.store != nil {
		if err := c.store.Ping(ctx); err != nil {
			logger.From(ctx).Warn("readyz: store ping failed", logger.Err(err))
			checks["store"] = "error"
			ready = false
		}
	}
	if c.nodes != nil && c.nodes() == 0 {
		checks["ring"] = "empty"
		ready = false
	}

	status := http.StatusOK
	resp := healthResponse{Status: "ready", Version: c.version, Checks: checks}
	if !ready {
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
	}
	helpers.WriteJSON(w, status, resp)
}

package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/ringauth/internal/cache"
	httperrors "github.com/dropDatabas3/ringauth/internal/http/errors"
	"github.com/dropDatabas3/ringauth/internal/http/helpers"
	"github.com/dropDatabas3/ringauth/internal/observability/logger"
	"github.com/dropDatabas3/ringauth/internal/ring"
)

// NodePool operaciones de topología; *cache.NodePool la implementa.
type NodePool interface {
	AddNode(ctx context.Context, nc cache.NodeConfig) error
	RemoveNode(name string) error
	Nodes(ctx context.Context) []cache.NodeInfo
	Ring() *ring.Ring
}

// RingController administra los nodos del ring.
type RingController struct {
	pool NodePool
}

// NewRingController crea el controller de administración del ring.
func NewRingController(pool NodePool) *RingController {
	return &RingController{pool: pool}
}

// AddNodeRequest body de POST /v1/ring/nodes
type AddNodeRequest struct {
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type nodesResponse struct {
	Replicas int              `json:"replicas"`
	Nodes    []cache.NodeInfo `json:"nodes"`
}

type locateResponse struct {
	Key      string `json:"key"`
	Position string `json:"position"`
	Node     string `json:"node"`
}

// List maneja GET /v1/ring/nodes
func (c *RingController) List(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, nodesResponse{
		Replicas: c.pool.Ring().Replicas(),
		Nodes:    c.pool.Nodes(r.Context()),
	})
}

// Add maneja POST /v1/ring/nodes
func (c *RingController) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RingController.Add"))

	var req AddNodeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("name is required"))
		return
	}

	err := c.pool.AddNode(ctx, cache.NodeConfig{
		Name: req.Name,
		Config: cache.Config{
			Driver:   req.Driver,
			Addr:     req.Addr,
			Password: req.Password,
			DB:       req.DB,
			Prefix:   req.Prefix,
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, ring.ErrDuplicateNode):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail("node already on the ring"))
		return
	case errors.Is(err, ring.ErrInvalidNode), errors.Is(err, cache.ErrUnknownDriver):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
		return
	case errors.Is(err, ring.ErrPositionCollision):
		httperrors.WriteError(w, httperrors.ErrConflict.WithDetail(err.Error()))
		return
	default:
		log.Warn("add node failed", logger.Node(req.Name), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrBadGateway.WithDetail("could not connect to node").WithCause(err))
		return
	}

	log.Info("node added", logger.Node(req.Name), logger.Count(c.pool.Ring().Len()))
	helpers.WriteJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// Remove maneja DELETE /v1/ring/nodes/{name}
func (c *RingController) Remove(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RingController.Remove"))
	name := chi.URLParam(r, "name")

	if err := c.pool.RemoveNode(name); err != nil {
		if errors.Is(err, ring.ErrUnknownNode) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("node not on the ring"))
			return
		}
		// el nodo ya salió del ring; sólo falló el close del cliente
		log.Warn("close node client failed", logger.Node(name), logger.Err(err))
	}
	log.Info("node removed", logger.Node(name), logger.Count(c.pool.Ring().Len()))
	w.WriteHeader(http.StatusNoContent)
}

// Locate maneja GET /v1/ring/locate?key=... o ?username=...
// username se hashea tal cual, igual que al cachear el token.
func (c *RingController) Locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if u := q.Get("username"); u != "" {
		key = u
	}
	if key == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("key or username is required"))
		return
	}
	node, err := c.pool.Ring().GetNode(key)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("ring is empty"))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, locateResponse{
		Key:      key,
		Position: ring.Hash(key).String(),
		Node:     node,
	})
}

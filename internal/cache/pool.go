package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/ringauth/internal/ring"
)

// ErrUnknownNode el nombre no tiene cliente en el pool.
var ErrUnknownNode = errors.New("cache: unknown node")

// NodeConfig describe un nodo físico del ring.
type NodeConfig struct {
	Name string
	Config
}

// Factory crea el Client de un nodo.
type Factory func(ctx context.Context, nc NodeConfig) (Client, error)

// DefaultFactory usa New(nc.Config).
func DefaultFactory(_ context.Context, nc NodeConfig) (Client, error) {
	return New(nc.Config)
}

// NodePool mantiene un Client por nodo físico y resuelve keys vía el ring.
// Thread-safe: el ring tiene su propio lock y el mapa de clientes el suyo.
type NodePool struct {
	ring    *ring.Ring
	factory Factory
	breaker BreakerSettings

	mu      sync.RWMutex
	clients map[string]*breakerClient

	// sf evita crear dos clientes para el mismo nodo en paralelo
	sf singleflight.Group

	onChange func(nodes int)
}

// PoolOption configura un NodePool.
type PoolOption func(*NodePool)

// WithFactory reemplaza la fábrica de clientes.
func WithFactory(f Factory) PoolOption {
	return func(p *NodePool) { p.factory = f }
}

// WithBreaker configura el circuit breaker por nodo.
func WithBreaker(s BreakerSettings) PoolOption {
	return func(p *NodePool) { p.breaker = s }
}

// WithTopologyHook se llama con la cantidad de nodos después de cada alta o baja.
func WithTopologyHook(fn func(nodes int)) PoolOption {
	return func(p *NodePool) { p.onChange = fn }
}

// NewNodePool crea un pool vacío sobre r.
func NewNodePool(r *ring.Ring, opts ...PoolOption) *NodePool {
	p := &NodePool{
		ring:    r,
		factory: DefaultFactory,
		clients: make(map[string]*breakerClient),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ring retorna el ring subyacente.
func (p *NodePool) Ring() *ring.Ring { return p.ring }

// AddNode crea el cliente del nodo y recién entonces lo agrega al ring, de modo
// que ningún GetNode resuelva un nodo sin cliente.
func (p *NodePool) AddNode(ctx context.Context, nc NodeConfig) error {
	if nc.Name == "" {
		return ring.ErrInvalidNode
	}
	if p.ring.Has(nc.Name) {
		return fmt.Errorf("%w: %s", ring.ErrDuplicateNode, nc.Name)
	}

	v, err, shared := p.sf.Do(nc.Name, func() (any, error) {
		return p.factory(ctx, nc)
	})
	if err != nil {
		return fmt.Errorf("cache: connect node %s: %w", nc.Name, err)
	}
	client := v.(Client)

	p.mu.Lock()
	if _, exists := p.clients[nc.Name]; exists {
		p.mu.Unlock()
		if !shared {
			_ = client.Close()
		}
		return fmt.Errorf("%w: %s", ring.ErrDuplicateNode, nc.Name)
	}
	p.clients[nc.Name] = newBreakerClient(nc.Name, client, p.breaker)
	p.mu.Unlock()

	if err := p.ring.AddNode(nc.Name); err != nil {
		p.mu.Lock()
		delete(p.clients, nc.Name)
		p.mu.Unlock()
		_ = client.Close()
		return err
	}
	p.notify()
	return nil
}

// RemoveNode saca el nodo del ring y después cierra su cliente.
func (p *NodePool) RemoveNode(name string) error {
	if err := p.ring.RemoveNode(name); err != nil {
		return err
	}
	p.mu.Lock()
	c := p.clients[name]
	delete(p.clients, name)
	p.mu.Unlock()

	p.notify()
	if c != nil {
		return c.Close()
	}
	return nil
}

// Resolve retorna el cliente de un nodo por nombre.
func (p *NodePool) Resolve(name string) (Client, error) {
	p.mu.RLock()
	c, ok := p.clients[name]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return c, nil
}

// ForKey resuelve el nodo dueño de key y su cliente. Con el ring vacío retorna
// ring.ErrRingUnavailable.
func (p *NodePool) ForKey(ctx context.Context, key string) (string, Client, error) {
	name, err := p.ring.GetNode(key)
	if err != nil {
		return "", nil, err
	}
	c, err := p.Resolve(name)
	if err != nil {
		return "", nil, err
	}
	return name, c, nil
}

// NodeInfo describe un nodo para endpoints de administración.
type NodeInfo struct {
	Name    string `json:"name"`
	Breaker string `json:"breaker"`
	Stats   *Stats `json:"stats,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Nodes lista los nodos del ring con el estado de su breaker y sus stats.
func (p *NodePool) Nodes(ctx context.Context) []NodeInfo {
	names := p.ring.Nodes()
	out := make([]NodeInfo, 0, len(names))
	for _, name := range names {
		p.mu.RLock()
		c, ok := p.clients[name]
		p.mu.RUnlock()
		info := NodeInfo{Name: name}
		if !ok {
			info.Error = ErrUnknownNode.Error()
			out = append(out, info)
			continue
		}
		info.Breaker = c.State()
		if st, err := c.Stats(ctx); err != nil {
			info.Error = err.Error()
		} else {
			info.Stats = &st
		}
		out = append(out, info)
	}
	return out
}

// Close cierra todos los clientes. El ring no se modifica.
func (p *NodePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for name, c := range p.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (p *NodePool) notify() {
	if p.onChange != nil {
		p.onChange(p.ring.Len())
	}
}

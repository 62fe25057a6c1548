// Package ring implementa el hash ring consistente que ubica las keys de
// usuario en los nodos de cache.
//
// Cada nodo físico tiene una cantidad fija de posiciones virtuales en un ring
// de 256 bits. Una key pertenece a la primera posición estrictamente mayor que
// su hash; si no hay ninguna, vuelve a la más baja.
package ring

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// DefaultReplicas posiciones virtuales por nodo.
const DefaultReplicas = 3

var (
	// ErrRingUnavailable: GetNode sin nodos en el ring.
	ErrRingUnavailable = errors.New("ring: no node available")

	// ErrDuplicateNode: el nombre ya está en el ring.
	ErrDuplicateNode = errors.New("ring: node already present")

	// ErrUnknownNode: se quiso sacar un nombre que no está en el ring.
	ErrUnknownNode = errors.New("ring: unknown node")

	// ErrInvalidNode: nombre de nodo vacío.
	ErrInvalidNode = errors.New("ring: invalid node name")

	// ErrPositionCollision: una réplica cayó en una posición que ya es de otro nodo.
	ErrPositionCollision = errors.New("ring: position collision")
)

// Position es un punto del ring: el digest SHA-256 big-endian, así
// bytes.Compare las ordena como enteros sin signo de 256 bits.
type Position [sha256.Size]byte

// Less indica si p está antes que o en el ring.
func (p Position) Less(o Position) bool { return bytes.Compare(p[:], o[:]) < 0 }

// String la posición en hex.
func (p Position) String() string { return hex.EncodeToString(p[:]) }

// Ring mapea keys a nombres de nodo. Es seguro para uso concurrente: los cambios
// de topología toman el write lock y los lookups comparten el read lock.
type Ring struct {
	mu       sync.RWMutex
	owners   map[Position]string
	sorted   []Position
	nodes    map[string]struct{}
	replicas int
}

// Option configura un Ring.
type Option func(*Ring)

// WithReplicas fija las posiciones virtuales por nodo. Valores <= 0 se ignoran.
func WithReplicas(n int) Option {
	return func(r *Ring) {
		if n > 0 {
			r.replicas = n
		}
	}
}

// New crea un ring vacío.
func New(opts ...Option) *Ring {
	r := &Ring{
		owners:   make(map[Position]string),
		nodes:    make(map[string]struct{}),
		replicas: DefaultReplicas,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Hash retorna la posición de key en el ring.
func Hash(key string) Position {
	return sha256.Sum256([]byte(key))
}

// replicaPositions deriva las posiciones de un nodo de "<name>_<i>".
func (r *Ring) replicaPositions(name string) []Position {
	out := make([]Position, r.replicas)
	for i := range out {
		out[i] = Hash(name + "_" + strconv.Itoa(i))
	}
	return out
}

// AddNode pone name en el ring. Agregarlo dos veces da ErrDuplicateNode y no
// toca el ring.
func (r *Ring) AddNode(name string) error {
	if name == "" {
		return ErrInvalidNode
	}
	positions := r.replicaPositions(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	seen := make(map[Position]struct{}, len(positions))
	for _, p := range positions {
		if owner, taken := r.owners[p]; taken {
			return fmt.Errorf("%w: %s collides with %s", ErrPositionCollision, name, owner)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s collides with itself", ErrPositionCollision, name)
		}
		seen[p] = struct{}{}
	}

	for _, p := range positions {
		r.owners[p] = name
	}
	r.sorted = append(r.sorted, positions...)
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Less(r.sorted[j]) })
	r.nodes[name] = struct{}{}
	return nil
}

// RemoveNode borra todas las posiciones de name. Si no existe da ErrUnknownNode.
func (r *Ring) RemoveNode(name string) error {
	positions := r.replicaPositions(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	drop := make(map[Position]struct{}, len(positions))
	for _, p := range positions {
		delete(r.owners, p)
		drop[p] = struct{}{}
	}
	kept := make([]Position, 0, len(r.sorted)-len(positions))
	for _, p := range r.sorted {
		if _, ok := drop[p]; !ok {
			kept = append(kept, p)
		}
	}
	r.sorted = kept
	delete(r.nodes, name)
	return nil
}

// GetNode retorna el nodo dueño de key.
func (r *Ring) GetNode(key string) (string, error) {
	h := Hash(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sorted) == 0 {
		return "", ErrRingUnavailable
	}
	// primera posición estrictamente mayor que h
	i := sort.Search(len(r.sorted), func(i int) bool { return h.Less(r.sorted[i]) })
	if i == len(r.sorted) {
		i = 0
	}
	return r.owners[r.sorted[i]], nil
}

// Has indica si name está en el ring.
func (r *Ring) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[name]
	return ok
}

// Nodes nombres de los nodos en orden lexicográfico.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.nodes))
	for n := range r.nodes {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Positions copia de las posiciones ordenadas.
func (r *Ring) Positions() []Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Position, len(r.sorted))
	copy(out, r.sorted)
	return out
}

// Len cantidad de nodos físicos.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Replicas posiciones por nodo.
func (r *Ring) Replicas() int { return r.replicas }

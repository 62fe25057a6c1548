package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ringauth/internal/ring"
)

// flakyClient falla todas las operaciones mientras down sea true.
type flakyClient struct {
	Client
	down   atomic.Bool
	calls  atomic.Int32
	closed atomic.Bool
}

var errDown = errors.New("connection refused")

func (f *flakyClient) Get(ctx context.Context, key string) (string, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return "", errDown
	}
	return f.Client.Get(ctx, key)
}

func (f *flakyClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.calls.Add(1)
	if f.down.Load() {
		return errDown
	}
	return f.Client.Set(ctx, key, value, ttl)
}

func (f *flakyClient) Close() error {
	f.closed.Store(true)
	return f.Client.Close()
}

type fakeFactory struct {
	mu      sync.Mutex
	clients map[string]*flakyClient
	fail    map[string]error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{clients: map[string]*flakyClient{}, fail: map[string]error{}}
}

func (f *fakeFactory) build(_ context.Context, nc NodeConfig) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[nc.Name]; err != nil {
		return nil, err
	}
	c := &flakyClient{Client: NewMemory(nc.Prefix)}
	f.clients[nc.Name] = c
	return c, nil
}

func (f *fakeFactory) get(name string) *flakyClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[name]
}

func newPool(t *testing.T, ff *fakeFactory, nodes ...string) *NodePool {
	t.Helper()
	p := NewNodePool(ring.New(), WithFactory(ff.build))
	for _, n := range nodes {
		require.NoError(t, p.AddNode(context.Background(), NodeConfig{Name: n}))
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNodePool_ForKeyMatchesRing(t *testing.T) {
	ff := newFakeFactory()
	p := newPool(t, ff, "A", "B", "C")
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("jwt_token_user%d", i)
		want, err := p.Ring().GetNode(key)
		require.NoError(t, err)

		name, c, err := p.ForKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, name)

		// el cliente resuelto es el del nodo dueño
		require.NoError(t, c.Set(ctx, key, "tok", 0))
		v, err := ff.get(name).Client.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "tok", v)
	}
}

func TestNodePool_EmptyRing(t *testing.T) {
	p := newPool(t, newFakeFactory())
	_, _, err := p.ForKey(context.Background(), "alice")
	require.ErrorIs(t, err, ring.ErrRingUnavailable)
}

func TestNodePool_AddDuplicate(t *testing.T) {
	ff := newFakeFactory()
	p := newPool(t, ff, "A")
	err := p.AddNode(context.Background(), NodeConfig{Name: "A"})
	require.ErrorIs(t, err, ring.ErrDuplicateNode)
	assert.Equal(t, []string{"A"}, p.Ring().Nodes())
}

func TestNodePool_FactoryErrorLeavesRingUntouched(t *testing.T) {
	ff := newFakeFactory()
	ff.fail["B"] = errDown
	p := newPool(t, ff, "A")

	err := p.AddNode(context.Background(), NodeConfig{Name: "B"})
	require.ErrorIs(t, err, errDown)
	assert.False(t, p.Ring().Has("B"))
	_, err = p.Resolve("B")
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestNodePool_RemoveClosesClient(t *testing.T) {
	ff := newFakeFactory()
	p := newPool(t, ff, "A", "B")

	require.NoError(t, p.RemoveNode("B"))
	assert.True(t, ff.get("B").closed.Load())
	assert.False(t, p.Ring().Has("B"))
	_, err := p.Resolve("B")
	require.ErrorIs(t, err, ErrUnknownNode)

	require.ErrorIs(t, p.RemoveNode("B"), ring.ErrUnknownNode)
}

func TestNodePool_TopologyHook(t *testing.T) {
	var counts []int
	p := NewNodePool(ring.New(), WithFactory(newFakeFactory().build), WithTopologyHook(func(n int) {
		counts = append(counts, n)
	}))
	ctx := context.Background()
	require.NoError(t, p.AddNode(ctx, NodeConfig{Name: "A"}))
	require.NoError(t, p.AddNode(ctx, NodeConfig{Name: "B"}))
	require.NoError(t, p.RemoveNode("A"))
	assert.Equal(t, []int{1, 2, 1}, counts)
}

func TestNodePool_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ff := newFakeFactory()
	p := NewNodePool(ring.New(),
		WithFactory(ff.build),
		WithBreaker(BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute}),
	)
	ctx := context.Background()
	require.NoError(t, p.AddNode(ctx, NodeConfig{Name: "A"}))

	raw := ff.get("A")
	raw.down.Store(true)
	c, err := p.Resolve("A")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, errDown)
	}
	// abierto: no llega al cliente
	before := raw.calls.Load()
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNodeUnavailable)
	assert.Equal(t, before, raw.calls.Load())

	nodes := p.Nodes(ctx)
	require.Len(t, nodes, 1)
	assert.Equal(t, "open", nodes[0].Breaker)
}

func TestNodePool_MissDoesNotTripBreaker(t *testing.T) {
	ff := newFakeFactory()
	p := newPool(t, ff, "A")
	c, err := p.Resolve("A")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := c.Get(context.Background(), "missing")
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", c.(*breakerClient).State())
}

func TestNodePool_BreakerHalfOpenRecovers(t *testing.T) {
	ff := newFakeFactory()
	p := NewNodePool(ring.New(),
		WithFactory(ff.build),
		WithBreaker(BreakerSettings{FailureThreshold: 1, OpenTimeout: 30 * time.Millisecond}),
	)
	ctx := context.Background()
	require.NoError(t, p.AddNode(ctx, NodeConfig{Name: "A"}))
	raw := ff.get("A")
	c, _ := p.Resolve("A")

	raw.down.Store(true)
	require.Error(t, c.Set(ctx, "k", "v", 0))
	require.ErrorIs(t, c.Set(ctx, "k", "v", 0), ErrNodeUnavailable)

	raw.down.Store(false)
	require.Eventually(t, func() bool {
		return c.Set(ctx, "k", "v", 0) == nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "closed", c.(*breakerClient).State())
}

func TestNodePool_NodesReportsStats(t *testing.T) {
	ff := newFakeFactory()
	p := newPool(t, ff, "B", "A")
	nodes := p.Nodes(context.Background())
	require.Len(t, nodes, 2)
	assert.Equal(t, "A", nodes[0].Name)
	assert.Equal(t, "B", nodes[1].Name)
	for _, n := range nodes {
		require.NotNil(t, n.Stats)
		assert.Equal(t, "memory", n.Stats.Driver)
		assert.Equal(t, "closed", n.Breaker)
	}
}

package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_BlocksWhenExhausted(t *testing.T) {
	s := NewSemaphore(2)
	ctx := context.Background()

	p1, err := s.Acquire(ctx)
	require.NoError(t, err)
	p2, err := s.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.InUse())

	_, ok := s.TryAcquire()
	assert.False(t, ok)

	got := make(chan Permit)
	go func() {
		p, err := s.Acquire(ctx)
		if err == nil {
			got <- p
		}
	}()

	select {
	case <-got:
		t.Fatal("acquired a third permit while exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	p1.Release()
	select {
	case p3 := <-got:
		p3.Release()
	case <-time.After(time.Second):
		t.Fatal("waiter was not admitted after release")
	}
	p2.Release()
	assert.Equal(t, 0, s.InUse())
}

func TestSemaphore_ReleaseIsIdempotent(t *testing.T) {
	s := NewSemaphore(1)
	p, err := s.Acquire(context.Background())
	require.NoError(t, err)

	p.Release()
	p.Release()
	assert.Equal(t, 0, s.InUse())

	// a double release must not have freed a second slot
	p1, ok := s.TryAcquire()
	require.True(t, ok)
	_, ok = s.TryAcquire()
	assert.False(t, ok)
	p1.Release()
}

func TestSemaphore_AcquireHonoursContext(t *testing.T) {
	s := NewSemaphore(1)
	held, err := s.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(ctx)
	require.ErrorIs(t, err, ErrRejected)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, s.InUse())
}

func TestNewSemaphore_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewSemaphore(0).Capacity())
}

func TestUnlimited(t *testing.T) {
	l := Unlimited()
	for i := 0; i < 100; i++ {
		p, err := l.Acquire(context.Background())
		require.NoError(t, err)
		p.Release()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Acquire(ctx)
	require.ErrorIs(t, err, ErrRejected)
}

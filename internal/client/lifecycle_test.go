package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleRetriesUntilReady(t *testing.T) {
	fc := clockwork.NewFakeClock()

	attempts := 0
	player := &fakePlayer{}
	factory := func() (Player, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("backend not available yet")
		}
		return player, nil
	}

	ready := make(chan Player, 1)
	l := NewLifecycle(factory, &LifecycleConfig{
		Clock:   fc,
		OnReady: func(p Player) { ready <- p },
	})

	require.Equal(t, StateUninitialized, l.State())
	_, err := l.Player()
	require.ErrorIs(t, err, ErrPlayerNotReady)

	l.Ensure(context.Background())

	// Two failed attempts, each followed by a backoff sleep.
	for i := 0; i < 2; i++ {
		fc.BlockUntil(1)
		fc.Advance(defaultRetryBackoff)
	}

	got := <-ready
	assert.Same(t, player, got)
	assert.Equal(t, StateReady, l.State())
	assert.Equal(t, 3, attempts)

	p, err := l.Player()
	require.NoError(t, err)
	assert.Same(t, player, p)
}

func TestLifecycleFailsAfterRetriesExhausted(t *testing.T) {
	fc := clockwork.NewFakeClock()

	attempts := 0
	factory := func() (Player, error) {
		attempts++
		return nil, errors.New("no backend")
	}

	l := NewLifecycle(factory, &LifecycleConfig{
		MaxAttempts: 3,
		Clock:       fc,
	})
	l.Ensure(context.Background())

	for i := 0; i < 2; i++ {
		fc.BlockUntil(1)
		fc.Advance(defaultRetryBackoff)
	}

	require.Eventually(t, func() bool {
		return l.State() == StateFailed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, attempts)

	_, err := l.Player()
	assert.ErrorIs(t, err, ErrPlayerFailed)
}

func TestLifecycleEnsureIsIdempotent(t *testing.T) {
	attempts := 0
	l := NewLifecycle(func() (Player, error) {
		attempts++
		return &fakePlayer{}, nil
	}, &LifecycleConfig{})

	ctx := context.Background()
	l.Ensure(ctx)

	require.Eventually(t, func() bool {
		return l.State() == StateReady
	}, time.Second, 5*time.Millisecond)

	l.Ensure(ctx)
	l.Ensure(ctx)
	assert.Equal(t, 1, attempts, "once ready, the same player instance is reused across media loads")
}

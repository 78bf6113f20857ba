package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type PlayerState int

const (
	StateUninitialized PlayerState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s PlayerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	defaultMaxAttempts      = 6
	defaultRetryBackoff     = 750 * time.Millisecond
	defaultBootstrapTimeout = 9500 * time.Millisecond
)

// PlayerFactory constructs the underlying player. It is retried with a fixed
// backoff because the platform backend may not be available yet.
type PlayerFactory func() (Player, error)

type LifecycleConfig struct {
	MaxAttempts      int
	RetryBackoff     time.Duration
	BootstrapTimeout time.Duration
	Clock            clockwork.Clock
	Logger           *slog.Logger
	// OnReady fires exactly once, when the player becomes usable. The
	// reconciler uses it to request a fresh snapshot, since events that
	// arrived while the player was initializing may already be stale.
	OnReady func(Player)
}

// Lifecycle drives the player through uninitialized -> loading -> ready.
// Ready is terminal for the session: loading new media reuses the same
// player instance. Exhausting the retry budget ends in failed.
type Lifecycle struct {
	mu      sync.Mutex
	state   PlayerState
	player  Player
	factory PlayerFactory

	maxAttempts      int
	backoff          time.Duration
	bootstrapTimeout time.Duration
	clock            clockwork.Clock
	onReady          func(Player)
	logger           *slog.Logger
}

func NewLifecycle(factory PlayerFactory, cfg *LifecycleConfig) *Lifecycle {
	l := &Lifecycle{
		factory:          factory,
		maxAttempts:      cfg.MaxAttempts,
		backoff:          cfg.RetryBackoff,
		bootstrapTimeout: cfg.BootstrapTimeout,
		clock:            cfg.Clock,
		onReady:          cfg.OnReady,
		logger:           cfg.Logger,
	}
	if l.maxAttempts <= 0 {
		l.maxAttempts = defaultMaxAttempts
	}
	if l.backoff <= 0 {
		l.backoff = defaultRetryBackoff
	}
	if l.bootstrapTimeout <= 0 {
		l.bootstrapTimeout = defaultBootstrapTimeout
	}
	if l.clock == nil {
		l.clock = clockwork.NewRealClock()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l
}

// Ensure kicks off player construction unless it already happened. Safe to
// call from any goroutine and from every remote command that needs a player.
func (l *Lifecycle) Ensure(ctx context.Context) {
	l.mu.Lock()
	if l.state != StateUninitialized {
		l.mu.Unlock()
		return
	}
	l.state = StateLoading
	l.mu.Unlock()

	go l.bootstrap(ctx)
}

func (l *Lifecycle) bootstrap(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, l.bootstrapTimeout)
	defer cancel()

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		player, err := l.factory()
		if err == nil {
			l.mu.Lock()
			l.state = StateReady
			l.player = player
			l.mu.Unlock()

			l.logger.Debug("player ready", "attempt", attempt)
			if l.onReady != nil {
				l.onReady(player)
			}
			return
		}

		l.logger.Debug("player construction failed", "attempt", attempt, "error", err)

		if attempt == l.maxAttempts {
			break
		}
		select {
		case <-l.clock.After(l.backoff):
		case <-ctx.Done():
			l.fail("bootstrap timed out")
			return
		}
	}

	l.fail("retries exhausted")
}

func (l *Lifecycle) fail(reason string) {
	l.mu.Lock()
	l.state = StateFailed
	l.mu.Unlock()
	l.logger.Warn("player unavailable", "reason", reason)
}

func (l *Lifecycle) State() PlayerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// Player returns the ready player, ErrPlayerNotReady while it is still
// initializing, or ErrPlayerFailed after the retry budget is spent.
func (l *Lifecycle) Player() (Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateReady:
		return l.player, nil
	case StateFailed:
		return nil, ErrPlayerFailed
	default:
		return nil, ErrPlayerNotReady
	}
}

package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultPingInterval = 5 * time.Second

// PingFunc performs one round trip to the relay and reports how long it took.
type PingFunc func(ctx context.Context) (time.Duration, error)

// Estimator keeps a one-way latency estimate: half of the most recent round
// trip. Each sample overwrites the previous one; there is no smoothing.
type Estimator struct {
	interval time.Duration
	ping     PingFunc
	clock    clockwork.Clock
	logger   *slog.Logger

	mu       sync.RWMutex
	estimate time.Duration
}

func NewEstimator(ping PingFunc, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Estimator {
	if interval <= 0 {
		interval = defaultPingInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Estimator{
		interval: interval,
		ping:     ping,
		clock:    clock,
		logger:   logger,
	}
}

// Run samples immediately and then once per interval until ctx is done.
func (e *Estimator) Run(ctx context.Context) {
	e.sample(ctx)

	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			e.sample(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Estimator) sample(ctx context.Context) {
	rtt, err := e.ping(ctx)
	if err != nil {
		e.logger.Debug("ping failed", "error", err)
		return
	}

	e.mu.Lock()
	e.estimate = rtt / 2
	e.mu.Unlock()
}

// Estimate is the current one-way latency, zero before the first sample.
func (e *Estimator) Estimate() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.estimate
}

func (e *Estimator) Seconds() float64 {
	return e.Estimate().Seconds()
}

package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorHalvesRoundTrip(t *testing.T) {
	e := NewEstimator(func(context.Context) (time.Duration, error) {
		return 100 * time.Millisecond, nil
	}, 0, nil, nil)

	assert.Zero(t, e.Estimate(), "no estimate before the first sample")

	e.sample(context.Background())
	assert.Equal(t, 50*time.Millisecond, e.Estimate())
}

func TestEstimatorLastSampleWins(t *testing.T) {
	rtts := []time.Duration{100 * time.Millisecond, 40 * time.Millisecond}
	var calls int
	e := NewEstimator(func(context.Context) (time.Duration, error) {
		rtt := rtts[calls]
		calls++
		return rtt, nil
	}, 0, nil, nil)

	e.sample(context.Background())
	e.sample(context.Background())

	assert.Equal(t, 20*time.Millisecond, e.Estimate(), "each sample overwrites the previous one")
}

func TestEstimatorKeepsEstimateOnPingFailure(t *testing.T) {
	var fail bool
	e := NewEstimator(func(context.Context) (time.Duration, error) {
		if fail {
			return 0, errors.New("connection lost")
		}
		return 80 * time.Millisecond, nil
	}, 0, nil, nil)

	e.sample(context.Background())
	require.Equal(t, 40*time.Millisecond, e.Estimate())

	fail = true
	e.sample(context.Background())
	assert.Equal(t, 40*time.Millisecond, e.Estimate())
}

func TestEstimatorRunSamplesOnInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()

	var samples atomic.Int32
	e := NewEstimator(func(context.Context) (time.Duration, error) {
		samples.Add(1)
		return 60 * time.Millisecond, nil
	}, 5*time.Second, fc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	require.Eventually(t, func() bool {
		return samples.Load() == 1
	}, time.Second, 5*time.Millisecond, "one sample right away")

	fc.BlockUntil(1)
	fc.Advance(5 * time.Second)

	require.Eventually(t, func() bool {
		return samples.Load() == 2
	}, time.Second, 5*time.Millisecond, "one more sample per tick")
	assert.Equal(t, 30*time.Millisecond, e.Estimate())
}

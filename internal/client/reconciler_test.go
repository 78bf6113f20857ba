package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnzible/ultragenmusic/internal/protocol"
)

type fakePlayer struct {
	loads    []string
	seeks    []float64
	plays    int
	pauses   int
	position float64
}

func (p *fakePlayer) Load(videoID string) error {
	p.loads = append(p.loads, videoID)
	p.position = 0
	return nil
}

func (p *fakePlayer) Play() error {
	p.plays++
	return nil
}

func (p *fakePlayer) Pause() error {
	p.pauses++
	return nil
}

func (p *fakePlayer) SeekTo(seconds float64) error {
	p.seeks = append(p.seeks, seconds)
	p.position = seconds
	return nil
}

func (p *fakePlayer) CurrentTime() (float64, error) {
	return p.position, nil
}

type stubLatency struct {
	seconds float64
}

func (s stubLatency) Seconds() float64 {
	return s.seconds
}

func newTestReconciler(player *fakePlayer, latencySeconds float64) *Reconciler {
	lifecycle := &Lifecycle{state: StateReady, player: player}
	return NewReconciler(lifecycle, stubLatency{seconds: latencySeconds}, &ReconcilerConfig{})
}

func TestOnPlaybackWithinThreshold(t *testing.T) {
	player := &fakePlayer{position: 10.0}
	r := newTestReconciler(player, 0.3)

	err := r.OnPlayback(context.Background(), protocol.PlaybackPayload{
		RoomID: "r1",
		Action: protocol.ActionPlay,
		Time:   10.0,
	})
	require.NoError(t, err)

	assert.Empty(t, player.seeks, "drift of 0.3s is under the threshold, no seek expected")
	assert.Equal(t, 1, player.plays)
}

func TestOnPlaybackDriftExceeded(t *testing.T) {
	player := &fakePlayer{position: 10.0}
	r := newTestReconciler(player, 0.3)

	err := r.OnPlayback(context.Background(), protocol.PlaybackPayload{
		RoomID: "r1",
		Action: protocol.ActionPlay,
		Time:   10.9,
	})
	require.NoError(t, err)

	require.Len(t, player.seeks, 1)
	assert.InDelta(t, 11.2, player.seeks[0], 1e-9)
	assert.Equal(t, 1, player.plays)
}

func TestOnPlaybackIdempotentWithinThreshold(t *testing.T) {
	player := &fakePlayer{position: 9.0}
	r := newTestReconciler(player, 0.3)

	event := protocol.PlaybackPayload{RoomID: "r1", Action: protocol.ActionPlay, Time: 10.0}

	require.NoError(t, r.OnPlayback(context.Background(), event))
	require.Len(t, player.seeks, 1, "first application corrects the 1.3s drift")

	// The relay echoes our own intent back; the position now matches, so
	// re-applying must not seek again.
	require.NoError(t, r.OnPlayback(context.Background(), event))
	assert.Len(t, player.seeks, 1)
	assert.Equal(t, 2, player.plays)
}

func TestOnPlaybackPause(t *testing.T) {
	player := &fakePlayer{position: 5.0}
	r := newTestReconciler(player, 0)

	err := r.OnPlayback(context.Background(), protocol.PlaybackPayload{
		RoomID: "r1",
		Action: protocol.ActionPause,
		Time:   5.0,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, player.pauses)
	assert.Zero(t, player.plays)
}

func TestOnSeekAlwaysSeeks(t *testing.T) {
	player := &fakePlayer{position: 20.0}
	r := newTestReconciler(player, 0.1)

	err := r.OnSeek(context.Background(), protocol.SeekPayload{RoomID: "r1", Time: 20.0})
	require.NoError(t, err)

	require.Len(t, player.seeks, 1, "an explicit seek is authoritative even with no drift")
	assert.InDelta(t, 20.1, player.seeks[0], 1e-9)
}

func TestOnLoadWithAutoplay(t *testing.T) {
	player := &fakePlayer{}
	r := newTestReconciler(player, 0)

	err := r.OnLoad(context.Background(), protocol.LoadVideoPayload{
		RoomID:  "r1",
		VideoID: "abc12345678",
		PlayNow: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"abc12345678"}, player.loads)
	assert.Equal(t, 1, player.plays)
}

func TestOnLoadWithoutAutoplay(t *testing.T) {
	player := &fakePlayer{}
	r := newTestReconciler(player, 0)

	err := r.OnLoad(context.Background(), protocol.LoadVideoPayload{
		RoomID:  "r1",
		VideoID: "abc12345678",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"abc12345678"}, player.loads)
	assert.Zero(t, player.plays)
}

func TestOnSyncAppliesFullSnapshot(t *testing.T) {
	player := &fakePlayer{}
	var title string
	lifecycle := &Lifecycle{state: StateReady, player: player}
	r := NewReconciler(lifecycle, stubLatency{seconds: 0.2}, &ReconcilerConfig{
		OnTitle: func(s string) { title = s },
	})

	err := r.OnSync(context.Background(), protocol.SyncVideoPayload{
		VideoID:   "xyz98765432",
		Time:      42.0,
		IsPlaying: true,
		Title:     "some title",
		Revision:  7,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"xyz98765432"}, player.loads)
	require.Len(t, player.seeks, 1)
	assert.InDelta(t, 42.2, player.seeks[0], 1e-9)
	assert.Equal(t, 1, player.plays)
	assert.Equal(t, "some title", title)
}

func TestOnSyncWithoutMediaIsNoop(t *testing.T) {
	player := &fakePlayer{}
	r := newTestReconciler(player, 0)

	err := r.OnSync(context.Background(), protocol.SyncVideoPayload{})
	require.NoError(t, err)

	assert.Empty(t, player.loads)
	assert.Empty(t, player.seeks)
	assert.Zero(t, player.plays)
	assert.Zero(t, player.pauses)
}

func TestStaleRevisionDropped(t *testing.T) {
	player := &fakePlayer{}
	r := newTestReconciler(player, 0)

	require.NoError(t, r.OnSeek(context.Background(), protocol.SeekPayload{RoomID: "r1", Time: 30, Revision: 5}))
	require.Len(t, player.seeks, 1)

	// A slower path delivers an older intent after a newer one was applied.
	require.NoError(t, r.OnSeek(context.Background(), protocol.SeekPayload{RoomID: "r1", Time: 10, Revision: 3}))
	assert.Len(t, player.seeks, 1, "superseded revision must not reach the player")
}

func TestEventBeforePlayerReadyIsDeferred(t *testing.T) {
	lifecycle := NewLifecycle(func() (Player, error) { return &fakePlayer{}, nil }, &LifecycleConfig{})
	r := NewReconciler(lifecycle, stubLatency{}, &ReconcilerConfig{})

	err := r.OnPlayback(context.Background(), protocol.PlaybackPayload{
		RoomID: "r1",
		Action: protocol.ActionPlay,
		Time:   1.0,
	})
	assert.ErrorIs(t, err, ErrPlayerNotReady)
	assert.NotEqual(t, StateUninitialized, lifecycle.State(), "the event must trigger player construction")
}

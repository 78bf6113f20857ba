package client

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/vnzible/ultragenmusic/internal/protocol"
)

// DefaultDriftThreshold is how far (in seconds) the local position may lag
// or lead the latency-adjusted remote position before a corrective seek.
// Below it, play/pause toggles apply without seeking to avoid stutter.
const DefaultDriftThreshold = 0.6

type latencySource interface {
	Seconds() float64
}

type ReconcilerConfig struct {
	DriftThreshold float64
	Logger         *slog.Logger
	// OnTitle is called when a sync or load event carries a display title.
	OnTitle func(title string)
}

// Reconciler turns incoming relay events into local player calls, adding the
// one-way latency estimate to every reported position and correcting drift.
type Reconciler struct {
	lifecycle *Lifecycle
	latency   latencySource
	threshold float64
	onTitle   func(string)
	logger    *slog.Logger

	mu           sync.Mutex
	lastRevision uint64
}

func NewReconciler(lifecycle *Lifecycle, latency latencySource, cfg *ReconcilerConfig) *Reconciler {
	r := &Reconciler{
		lifecycle: lifecycle,
		latency:   latency,
		threshold: cfg.DriftThreshold,
		onTitle:   cfg.OnTitle,
		logger:    cfg.Logger,
	}
	if r.threshold <= 0 {
		r.threshold = DefaultDriftThreshold
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// OnPlayback applies a remote play/pause. The reported position plus latency
// is where the media should be right now; a seek is issued only when local
// drift exceeds the threshold, which also makes the relay's echo of our own
// intent a no-op.
func (r *Reconciler) OnPlayback(ctx context.Context, event protocol.PlaybackPayload) error {
	if r.stale(event.Revision) {
		return nil
	}

	player, err := r.playerOrDefer(ctx)
	if err != nil {
		return err
	}

	expected := event.Time + r.latency.Seconds()
	current, err := player.CurrentTime()
	if err != nil {
		return fmt.Errorf("failed to read player position: %w", err)
	}

	if math.Abs(current-expected) > r.threshold {
		if err := player.SeekTo(expected); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
	}

	if event.Action == protocol.ActionPlay {
		return player.Play()
	}
	return player.Pause()
}

// OnSeek always seeks: an explicit seek is an authoritative position
// assertion, not a periodic correction.
func (r *Reconciler) OnSeek(ctx context.Context, event protocol.SeekPayload) error {
	if r.stale(event.Revision) {
		return nil
	}

	player, err := r.playerOrDefer(ctx)
	if err != nil {
		return err
	}

	if err := player.SeekTo(event.Time + r.latency.Seconds()); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return nil
}

func (r *Reconciler) OnLoad(ctx context.Context, event protocol.LoadVideoPayload) error {
	if r.stale(event.Revision) {
		return nil
	}

	player, err := r.playerOrDefer(ctx)
	if err != nil {
		return err
	}

	if err := player.Load(event.VideoID); err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}
	r.setTitle(event.Title)

	if event.PlayNow {
		return player.Play()
	}

	return nil
}

// OnSync applies a full snapshot: load the media, seek to the adjusted
// position, then match the play/pause state. A snapshot without media means
// the room has nothing loaded yet and is a no-op.
func (r *Reconciler) OnSync(ctx context.Context, event protocol.SyncVideoPayload) error {
	if event.VideoID == "" {
		return nil
	}

	player, err := r.playerOrDefer(ctx)
	if err != nil {
		return err
	}

	r.advanceRevision(event.Revision)

	if err := player.Load(event.VideoID); err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}
	if err := player.SeekTo(event.Time + r.latency.Seconds()); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	r.setTitle(event.Title)

	if event.IsPlaying {
		return player.Play()
	}
	return player.Pause()
}

// playerOrDefer returns the ready player. Before readiness it triggers the
// lifecycle and reports ErrPlayerNotReady; the event is dropped because the
// snapshot requested at readiness supersedes it.
func (r *Reconciler) playerOrDefer(ctx context.Context) (Player, error) {
	player, err := r.lifecycle.Player()
	if err != nil {
		r.lifecycle.Ensure(ctx)
		return nil, err
	}

	return player, nil
}

// stale reports whether the event's revision was already superseded by a
// later-applied one. Revision zero means the relay did not stamp the event.
func (r *Reconciler) stale(revision uint64) bool {
	if revision == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if revision < r.lastRevision {
		r.logger.Debug("stale event dropped", "revision", revision, "last", r.lastRevision)
		return true
	}
	r.lastRevision = revision

	return false
}

func (r *Reconciler) advanceRevision(revision uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if revision > r.lastRevision {
		r.lastRevision = revision
	}
}

func (r *Reconciler) setTitle(title string) {
	if title != "" && r.onTitle != nil {
		r.onTitle(title)
	}
}

// Package client is the room participant side: it keeps a websocket to the
// relay, measures latency, and reconciles the local player against incoming
// playback events.
package client

import "errors"

var (
	ErrPlayerNotReady = errors.New("player not ready")
	ErrPlayerFailed   = errors.New("player failed to initialize")
)

// Player is the local video surface driven by the reconciler. Implementations
// wrap whatever playback backend the client program embeds.
type Player interface {
	Load(videoID string) error
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	CurrentTime() (float64, error)
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vnzible/ultragenmusic/internal/protocol"
)

// Handlers receive the room events a client program renders itself.
type Handlers struct {
	OnChat     func(name, text string)
	OnUserList func(users []protocol.UserEntry)
	OnTitle    func(title string)
	OnError    func(message string)
}

type Config struct {
	URL                string
	PingInterval       time.Duration
	DriftThreshold     float64
	PlayerFactory      PlayerFactory
	MaxPlayerAttempts  int
	PlayerRetryBackoff time.Duration
	Clock              clockwork.Clock
	Logger             *slog.Logger
	Handlers           Handlers
}

// Client glues the transport, latency estimator, player lifecycle and
// reconciler together into one room participant.
type Client struct {
	transport  *Transport
	lifecycle  *Lifecycle
	estimator  *Estimator
	reconciler *Reconciler
	logger     *slog.Logger

	mu     sync.Mutex
	roomID string
	name   string
}

func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport, err := DialTransport(ctx, cfg.URL, cfg.Clock, logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport: transport,
		logger:    logger,
	}

	c.estimator = NewEstimator(transport.Ping, cfg.PingInterval, cfg.Clock, logger)
	c.lifecycle = NewLifecycle(cfg.PlayerFactory, &LifecycleConfig{
		MaxAttempts:  cfg.MaxPlayerAttempts,
		RetryBackoff: cfg.PlayerRetryBackoff,
		Clock:        cfg.Clock,
		Logger:       logger,
		// The player may become ready long after join; the room state that
		// accumulated meanwhile is fetched fresh instead of replaying queued
		// raw events that could be stale by now.
		OnReady: func(Player) { c.requestSync() },
	})
	c.reconciler = NewReconciler(c.lifecycle, c.estimator, &ReconcilerConfig{
		DriftThreshold: cfg.DriftThreshold,
		Logger:         logger,
		OnTitle:        cfg.Handlers.OnTitle,
	})

	c.registerHandlers(cfg.Handlers)

	return c, nil
}

// Run drives the latency estimator and the read loop until the connection
// drops or ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.estimator.Run(ctx)

	return c.transport.Run(ctx)
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// Join enters the room and starts player construction right away so the
// player is likely ready by the time the first remote command lands.
func (c *Client) Join(ctx context.Context, roomID, name string) error {
	c.mu.Lock()
	c.roomID = roomID
	c.name = name
	c.mu.Unlock()

	c.lifecycle.Ensure(ctx)

	return c.transport.Send(protocol.TypeJoinRoom, protocol.JoinRoomPayload{RoomID: roomID, Name: name})
}

func (c *Client) Chat(text string) error {
	return c.transport.Send(protocol.TypeChat, protocol.ChatPayload{Text: text})
}

// Play applies locally first and then emits the intent; the relay's echo is
// absorbed by the reconciler's drift threshold.
func (c *Client) Play() error {
	return c.playback(protocol.ActionPlay)
}

func (c *Client) Pause() error {
	return c.playback(protocol.ActionPause)
}

func (c *Client) playback(action string) error {
	player, err := c.lifecycle.Player()
	if err != nil {
		return err
	}

	position, err := player.CurrentTime()
	if err != nil {
		return fmt.Errorf("failed to read player position: %w", err)
	}

	if action == protocol.ActionPlay {
		err = player.Play()
	} else {
		err = player.Pause()
	}
	if err != nil {
		return err
	}

	return c.transport.Send(protocol.TypePlayback, protocol.PlaybackPayload{
		RoomID: c.currentRoom(),
		Action: action,
		Time:   position,
	})
}

func (c *Client) Seek(seconds float64) error {
	player, err := c.lifecycle.Player()
	if err != nil {
		return err
	}

	if err := player.SeekTo(seconds); err != nil {
		return err
	}

	return c.transport.Send(protocol.TypeSeek, protocol.SeekPayload{
		RoomID: c.currentRoom(),
		Time:   seconds,
	})
}

// Load emits the intent even when the local player is still initializing;
// this client will catch up through the snapshot requested at readiness.
func (c *Client) Load(ctx context.Context, videoID string, playNow bool, title string) error {
	c.lifecycle.Ensure(ctx)

	if player, err := c.lifecycle.Player(); err == nil {
		if err := player.Load(videoID); err != nil {
			return fmt.Errorf("failed to load video: %w", err)
		}
		if playNow {
			if err := player.Play(); err != nil {
				return err
			}
		}
	}

	return c.transport.Send(protocol.TypeLoadVideo, protocol.LoadVideoPayload{
		RoomID:  c.currentRoom(),
		VideoID: videoID,
		PlayNow: playNow,
		Title:   title,
	})
}

func (c *Client) Latency() time.Duration {
	return c.estimator.Estimate()
}

func (c *Client) PlayerState() PlayerState {
	return c.lifecycle.State()
}

func (c *Client) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.roomID
}

func (c *Client) requestSync() {
	roomID := c.currentRoom()
	if roomID == "" {
		return
	}

	if err := c.transport.Send(protocol.TypeRequestSync, protocol.RequestSyncPayload{RoomID: roomID}); err != nil {
		c.logger.Debug("failed to request sync", "error", err)
	}
}

func (c *Client) registerHandlers(handlers Handlers) {
	c.transport.Handle(protocol.TypePlayback, func(ctx context.Context, payload json.RawMessage) {
		var event protocol.PlaybackPayload
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Debug("malformed playback event", "error", err)
			return
		}
		if event.RoomID != c.currentRoom() {
			return
		}
		if err := c.reconciler.OnPlayback(ctx, event); err != nil {
			c.logger.Debug("playback event not applied", "error", err)
		}
	})

	c.transport.Handle(protocol.TypeSeek, func(ctx context.Context, payload json.RawMessage) {
		var event protocol.SeekPayload
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Debug("malformed seek event", "error", err)
			return
		}
		if event.RoomID != c.currentRoom() {
			return
		}
		if err := c.reconciler.OnSeek(ctx, event); err != nil {
			c.logger.Debug("seek event not applied", "error", err)
		}
	})

	c.transport.Handle(protocol.TypeLoadVideo, func(ctx context.Context, payload json.RawMessage) {
		var event protocol.LoadVideoPayload
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Debug("malformed load event", "error", err)
			return
		}
		if event.RoomID != c.currentRoom() {
			return
		}
		if err := c.reconciler.OnLoad(ctx, event); err != nil {
			c.logger.Debug("load event not applied", "error", err)
		}
	})

	c.transport.Handle(protocol.TypeSyncVideo, func(ctx context.Context, payload json.RawMessage) {
		var event protocol.SyncVideoPayload
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Debug("malformed sync event", "error", err)
			return
		}
		if err := c.reconciler.OnSync(ctx, event); err != nil {
			c.logger.Debug("sync event not applied", "error", err)
		}
	})

	c.transport.Handle(protocol.TypeChat, func(_ context.Context, payload json.RawMessage) {
		var event protocol.ChatBroadcast
		if err := json.Unmarshal(payload, &event); err != nil {
			return
		}
		if handlers.OnChat != nil {
			handlers.OnChat(event.Name, event.Text)
		}
	})

	c.transport.Handle(protocol.TypeUserList, func(_ context.Context, payload json.RawMessage) {
		var event protocol.UserListPayload
		if err := json.Unmarshal(payload, &event); err != nil {
			return
		}
		if handlers.OnUserList != nil {
			handlers.OnUserList(event.Users)
		}
	})

	c.transport.Handle(protocol.TypeError, func(_ context.Context, payload json.RawMessage) {
		var event protocol.ErrorPayload
		if err := json.Unmarshal(payload, &event); err != nil {
			return
		}
		if handlers.OnError != nil {
			handlers.OnError(event.Message)
		}
	})
}

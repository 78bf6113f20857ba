package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/vnzible/ultragenmusic/internal/protocol"
)

const pingTimeout = 3 * time.Second

// Transport owns the websocket to the relay: serialized writes, a read loop
// that dispatches typed messages, and the ping round-trip primitive.
type Transport struct {
	conn   *websocket.Conn
	clock  clockwork.Clock
	logger *slog.Logger

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[string]func(ctx context.Context, payload json.RawMessage)

	pingMu  sync.Mutex
	pending map[int64]chan protocol.PongPayload
}

func DialTransport(ctx context.Context, url string, clock clockwork.Clock, logger *slog.Logger) (*Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		conn:     conn,
		clock:    clock,
		logger:   logger,
		handlers: make(map[string]func(context.Context, json.RawMessage)),
		pending:  make(map[int64]chan protocol.PongPayload),
	}, nil
}

func (t *Transport) Handle(msgType string, fn func(ctx context.Context, payload json.RawMessage)) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()

	t.handlers[msgType] = fn
}

func (t *Transport) Send(msgType string, payload any) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write %s message: %w", msgType, err)
	}

	return nil
}

// Run reads messages until the connection fails. Pongs resolve pending pings
// internally; everything else goes to the registered handler for its type.
func (t *Transport) Run(ctx context.Context) error {
	for {
		var msg protocol.Message
		if err := t.conn.ReadJSON(&msg); err != nil {
			return err
		}

		if msg.Type == protocol.TypePong {
			t.resolvePong(msg.Payload)
			continue
		}

		t.handlersMu.RLock()
		handler, ok := t.handlers[msg.Type]
		t.handlersMu.RUnlock()
		if !ok {
			t.logger.Debug("unhandled message", "type", msg.Type)
			continue
		}

		handler(ctx, msg.Payload)
	}
}

// Ping measures one round trip to the relay.
func (t *Transport) Ping(ctx context.Context) (time.Duration, error) {
	start := t.clock.Now()
	clientTime := start.UnixMilli()

	ch := make(chan protocol.PongPayload, 1)
	t.pingMu.Lock()
	t.pending[clientTime] = ch
	t.pingMu.Unlock()
	defer func() {
		t.pingMu.Lock()
		delete(t.pending, clientTime)
		t.pingMu.Unlock()
	}()

	if err := t.Send(protocol.TypePing, protocol.PingPayload{ClientTime: clientTime}); err != nil {
		return 0, err
	}

	select {
	case <-ch:
		return t.clock.Since(start), nil
	case <-t.clock.After(pingTimeout):
		return 0, fmt.Errorf("ping timed out")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (t *Transport) resolvePong(payload json.RawMessage) {
	var pong protocol.PongPayload
	if err := json.Unmarshal(payload, &pong); err != nil {
		t.logger.Debug("malformed pong", "error", err)
		return
	}

	t.pingMu.Lock()
	ch, ok := t.pending[pong.ClientTime]
	t.pingMu.Unlock()
	if ok {
		ch <- pong
	}
}

func (t *Transport) Close() error {
	return t.conn.Close()
}

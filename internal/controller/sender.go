package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vnzible/ultragenmusic/internal/protocol"
)

func (c *controller) writeToConn(ctx context.Context, conn *websocket.Conn, msgType string, payload any) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}

	lock, _ := c.connLocks.LoadOrStore(conn, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write %s message: %w", msgType, err)
	}

	return nil
}

// broadcast writes the message to every connection, the sender included. A
// single dead connection does not stop the fanout; its own read loop will
// clean it up.
func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, msgType string, payload any) {
	for _, conn := range conns {
		if err := c.writeToConn(ctx, conn, msgType, payload); err != nil {
			c.logger.DebugContext(ctx, "broadcast write failed", "type", msgType, "error", err)
		}
	}
}

func (c *controller) writeError(ctx context.Context, conn *websocket.Conn, message string) {
	if err := c.writeToConn(ctx, conn, protocol.TypeError, protocol.ErrorPayload{Message: message}); err != nil {
		c.logger.DebugContext(ctx, "error write failed", "error", err)
	}
}

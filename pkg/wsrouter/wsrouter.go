// Package wsrouter routes incoming websocket messages by their type tag.
// Messages are JSON envelopes of the form {"type": ..., "payload": ...}.
package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

// ErrorHandlerFunc is invoked when a handler returns an error. Returning a
// non-nil error from it terminates the connection loop.
type ErrorHandlerFunc func(ctx context.Context, conn *websocket.Conn, msgType string, err error) error

type Router struct {
	routes  map[string]HandlerFunc
	onError ErrorHandlerFunc
}

func New() *Router {
	return &Router{routes: make(map[string]HandlerFunc)}
}

func (r *Router) Handle(msgType string, handler HandlerFunc) {
	r.routes[msgType] = handler
}

func (r *Router) OnError(handler ErrorHandlerFunc) {
	r.onError = handler
}

// ServeConn reads messages until the connection fails and dispatches each to
// its registered handler. It returns the read error that ended the loop;
// handler errors go through the OnError hook instead.
func (r *Router) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, ok := r.routes[msg.Type]
		if !ok {
			if err := r.fail(ctx, conn, msg.Type, fmt.Errorf("unknown message type %q", msg.Type)); err != nil {
				return err
			}
			continue
		}

		if err := handler(ctx, conn, msg.Payload); err != nil {
			if err := r.fail(ctx, conn, msg.Type, err); err != nil {
				return err
			}
		}
	}
}

func (r *Router) fail(ctx context.Context, conn *websocket.Conn, msgType string, err error) error {
	if r.onError == nil {
		return nil
	}

	return r.onError(ctx, conn, msgType, err)
}

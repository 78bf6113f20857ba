package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vnzible/ultragenmusic/internal/domain"
	"github.com/vnzible/ultragenmusic/internal/protocol"
	"github.com/vnzible/ultragenmusic/internal/service/room"
	"github.com/vnzible/ultragenmusic/pkg/wsrouter"
)

func (c *controller) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c.serveConn(r.Context(), conn)
}

func (c *controller) serveConn(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	err := c.wsRouter.ServeConn(ctx, conn)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	c.connLocks.Delete(conn)

	resp, err := c.roomService.DisconnectMember(ctx, conn)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to disconnect member", "error", err)
		return
	}
	if resp.RoomID != "" && !resp.RoomDeleted {
		c.broadcast(ctx, resp.Conns, protocol.TypeUserList, userListPayload(resp.Members))
	}
}

func (c *controller) newWSRouter() *wsrouter.Router {
	r := wsrouter.New()

	r.Handle(protocol.TypeJoinRoom, handler(c, c.handleJoinRoom))
	r.Handle(protocol.TypeChat, handler(c, c.handleChat))
	r.Handle(protocol.TypePlayback, handler(c, c.handlePlayback))
	r.Handle(protocol.TypeSeek, handler(c, c.handleSeek))
	r.Handle(protocol.TypeLoadVideo, handler(c, c.handleLoadVideo))
	r.Handle(protocol.TypeRequestSync, handler(c, c.handleRequestSync))
	r.Handle(protocol.TypePing, handler(c, c.handlePing))

	r.OnError(func(ctx context.Context, conn *websocket.Conn, msgType string, err error) error {
		c.logger.InfoContext(ctx, "message handling failed", "type", msgType, "error", err)
		c.writeError(ctx, conn, fmt.Sprintf("failed to handle %s", msgType))
		return nil
	})

	return r
}

// handler decodes and validates a typed payload before invoking fn.
func handler[T any](c *controller, fn func(ctx context.Context, conn *websocket.Conn, input T) error) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if err := json.Unmarshal(payload, &input); err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}

		if validationErrors, ok := c.validate.Validate(input); !ok {
			return fmt.Errorf("validation failed: %v", validationErrors)
		}

		return fn(ctx, conn, input)
	}
}

func (c *controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input protocol.JoinRoomPayload) error {
	resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Conn:   conn,
		RoomID: input.RoomID,
		Name:   input.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	if resp.PreviousRoom != nil {
		c.broadcast(ctx, resp.PreviousRoom.Conns, protocol.TypeUserList, userListPayload(resp.PreviousRoom.Members))
	}

	c.broadcast(ctx, resp.Conns, protocol.TypeUserList, userListPayload(resp.Members))

	// Playback snapshot goes to the joining connection only.
	if resp.Snapshot != nil {
		if err := c.writeToConn(ctx, conn, protocol.TypeSyncVideo, syncPayload(resp.Snapshot)); err != nil {
			return fmt.Errorf("failed to send snapshot: %w", err)
		}
	}

	return nil
}

func (c *controller) handleChat(ctx context.Context, conn *websocket.Conn, input protocol.ChatPayload) error {
	resp, err := c.roomService.Chat(ctx, &room.ChatParams{Conn: conn, Text: input.Text})
	if err != nil {
		return fmt.Errorf("failed to chat: %w", err)
	}

	c.broadcast(ctx, resp.Conns, protocol.TypeChat, protocol.ChatBroadcast{Name: resp.Name, Text: resp.Text})

	return nil
}

func (c *controller) handlePlayback(ctx context.Context, conn *websocket.Conn, input protocol.PlaybackPayload) error {
	resp, err := c.roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		RoomID: input.RoomID,
		Action: input.Action,
		Time:   input.Time,
	})
	if err != nil {
		return c.dropIfUnknownRoom(ctx, input.RoomID, err)
	}

	input.Revision = resp.Revision
	c.broadcast(ctx, resp.Conns, protocol.TypePlayback, input)

	return nil
}

func (c *controller) handleSeek(ctx context.Context, conn *websocket.Conn, input protocol.SeekPayload) error {
	resp, err := c.roomService.Seek(ctx, &room.SeekParams{RoomID: input.RoomID, Time: input.Time})
	if err != nil {
		return c.dropIfUnknownRoom(ctx, input.RoomID, err)
	}

	input.Revision = resp.Revision
	c.broadcast(ctx, resp.Conns, protocol.TypeSeek, input)

	return nil
}

func (c *controller) handleLoadVideo(ctx context.Context, conn *websocket.Conn, input protocol.LoadVideoPayload) error {
	resp, err := c.roomService.LoadVideo(ctx, &room.LoadVideoParams{
		RoomID:  input.RoomID,
		VideoID: input.VideoID,
		Title:   input.Title,
		PlayNow: input.PlayNow,
	})
	if err != nil {
		return c.dropIfUnknownRoom(ctx, input.RoomID, err)
	}

	input.Revision = resp.Revision
	c.broadcast(ctx, resp.Conns, protocol.TypeLoadVideo, input)

	return nil
}

func (c *controller) handleRequestSync(ctx context.Context, conn *websocket.Conn, input protocol.RequestSyncPayload) error {
	snapshot, err := c.roomService.GetSnapshot(ctx, input.RoomID)
	if err != nil {
		return c.dropIfUnknownRoom(ctx, input.RoomID, err)
	}
	if snapshot.Media == nil {
		return nil
	}

	if err := c.writeToConn(ctx, conn, protocol.TypeSyncVideo, syncPayload(&snapshot)); err != nil {
		return fmt.Errorf("failed to send snapshot: %w", err)
	}

	return nil
}

func (c *controller) handlePing(ctx context.Context, conn *websocket.Conn, input protocol.PingPayload) error {
	return c.writeToConn(ctx, conn, protocol.TypePong, protocol.PongPayload{
		ClientTime: input.ClientTime,
		ServerTime: time.Now().UnixMilli(),
	})
}

// dropIfUnknownRoom swallows intents for rooms that no longer exist. Rooms
// are ephemeral; racing a just-emptied room is expected and not surfaced to
// the sender.
func (c *controller) dropIfUnknownRoom(ctx context.Context, roomID string, err error) error {
	if errors.Is(err, room.ErrRoomNotFound) {
		c.logger.DebugContext(ctx, "intent for unknown room dropped", "room_id", roomID)
		return nil
	}

	return err
}

func userListPayload(members []domain.Member) protocol.UserListPayload {
	users := make([]protocol.UserEntry, 0, len(members))
	for _, m := range members {
		users = append(users, protocol.UserEntry{ID: m.ID, Name: m.Name})
	}

	return protocol.UserListPayload{Users: users}
}

func syncPayload(snapshot *domain.Snapshot) protocol.SyncVideoPayload {
	return protocol.SyncVideoPayload{
		VideoID:   snapshot.Media.ID,
		Time:      snapshot.Position,
		IsPlaying: snapshot.Playing,
		Title:     snapshot.Media.Title,
		Revision:  snapshot.Revision,
	}
}

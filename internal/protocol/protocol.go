// Package protocol defines the message catalog exchanged between clients and
// the relay over a websocket connection. Every frame is a Message envelope
// with a type tag and a raw JSON payload.
package protocol

import "encoding/json"

const (
	TypeJoinRoom    = "join-room"
	TypeChat        = "chat"
	TypePlayback    = "playback"
	TypeSeek        = "seek"
	TypeLoadVideo   = "load-video"
	TypeSyncVideo   = "sync-video"
	TypeRequestSync = "request-sync"
	TypeUserList    = "user-list"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

const (
	ActionPlay  = "play"
	ActionPause = "pause"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewMessage(msgType string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{Type: msgType, Payload: raw}, nil
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"max=32"`
	Name   string `json:"name" validate:"required,max=32"`
}

// ChatPayload is the client-to-relay direction; the relay broadcasts
// ChatBroadcast with the sender's name attached.
type ChatPayload struct {
	Text string `json:"text" validate:"required,max=500"`
}

type ChatBroadcast struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// PlaybackPayload carries a play or pause intent with the sender's current
// position. Revision is stamped by the relay on rebroadcast; clients drop
// payloads whose revision is below the last one they applied.
type PlaybackPayload struct {
	RoomID   string  `json:"roomId" validate:"required"`
	Action   string  `json:"action" validate:"required,oneof=play pause"`
	Time     float64 `json:"time"`
	Revision uint64  `json:"revision,omitempty"`
}

type SeekPayload struct {
	RoomID   string  `json:"roomId" validate:"required"`
	Time     float64 `json:"time"`
	Revision uint64  `json:"revision,omitempty"`
}

type LoadVideoPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	VideoID  string `json:"videoId" validate:"required"`
	PlayNow  bool   `json:"playNow"`
	Title    string `json:"title,omitempty"`
	Revision uint64 `json:"revision,omitempty"`
}

// SyncVideoPayload is a full playback snapshot, relay-to-client only.
type SyncVideoPayload struct {
	VideoID   string  `json:"videoId"`
	Time      float64 `json:"time"`
	IsPlaying bool    `json:"isPlaying"`
	Title     string  `json:"title,omitempty"`
	Revision  uint64  `json:"revision,omitempty"`
}

type RequestSyncPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type UserEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserListPayload struct {
	Users []UserEntry `json:"users"`
}

// PingPayload carries the client's send timestamp in unix milliseconds.
// The relay echoes it back in PongPayload so the client can measure the
// round trip without trusting the server clock.
type PingPayload struct {
	ClientTime int64 `json:"clientTime"`
}

type PongPayload struct {
	ClientTime int64 `json:"clientTime"`
	ServerTime int64 `json:"serverTime"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

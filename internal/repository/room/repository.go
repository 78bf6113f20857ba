// Package room defines the Room Store contract shared by its in-memory and
// redis implementations.
package room

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found")
)

type JoinRoomParams struct {
	RoomID   string
	MemberID string
	Name     string
}

type ApplyPlaybackParams struct {
	RoomID  string
	Playing bool
	Time    float64
}

type ApplySeekParams struct {
	RoomID string
	Time   float64
}

type ApplyLoadParams struct {
	RoomID  string
	VideoID string
	Title   string
	PlayNow bool
}

// JoinRoomResult reports the room the member was moved out of, if the same
// connection was already joined somewhere else (last join wins).
type JoinRoomResult struct {
	PreviousRoomID      string
	PreviousRoomDeleted bool
}

// RemoveMemberResult reports the room the member left and whether the room
// was deleted because it became empty.
type RemoveMemberResult struct {
	RoomID      string
	RoomDeleted bool
}

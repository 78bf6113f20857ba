package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vnzible/ultragenmusic/internal/domain"
	roomRepo "github.com/vnzible/ultragenmusic/internal/repository/room"
)

type JoinRoomParams struct {
	Conn   *websocket.Conn
	RoomID string
	Name   string
}

// RoomUpdate carries a membership change that must be rebroadcast to a room.
type RoomUpdate struct {
	RoomID  string
	Members []domain.Member
	Conns   []*websocket.Conn
}

type JoinRoomResponse struct {
	RoomID   string
	MemberID string
	Members  []domain.Member
	Conns    []*websocket.Conn
	// Snapshot is nil when the room has no media yet.
	Snapshot *domain.Snapshot
	// PreviousRoom is set when the connection was moved out of another room
	// that still has members left to notify.
	PreviousRoom *RoomUpdate
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	roomID := params.RoomID
	if roomID == "" {
		roomID = s.generator.GenerateRandomString(roomIDLength)
	}

	memberID, err := s.connRepo.GetMemberID(params.Conn)
	if err != nil {
		memberID = uuid.NewString()
		if err := s.connRepo.Add(params.Conn, memberID); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to register connection: %w", err)
		}
	}

	joinResult, err := s.roomRepo.JoinRoom(ctx, &roomRepo.JoinRoomParams{
		RoomID:   roomID,
		MemberID: memberID,
		Name:     params.Name,
	})
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	members, err := s.roomRepo.GetMembers(ctx, roomID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get members: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, roomID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}

	resp := JoinRoomResponse{
		RoomID:   roomID,
		MemberID: memberID,
		Members:  members,
		Conns:    conns,
	}

	snapshot, err := s.roomRepo.GetSnapshot(ctx, roomID)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if snapshot.Media != nil {
		resp.Snapshot = &snapshot
	}

	if joinResult.PreviousRoomID != "" && !joinResult.PreviousRoomDeleted {
		update, err := s.roomUpdate(ctx, joinResult.PreviousRoomID)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to get previous room update: %w", err)
		}
		resp.PreviousRoom = &update
	}

	return resp, nil
}

type DisconnectMemberResponse struct {
	RoomID      string
	RoomDeleted bool
	Members     []domain.Member
	Conns       []*websocket.Conn
}

// DisconnectMember handles a transport-level disconnect: the member leaves
// its room and the remaining members get the updated list. An unknown
// connection is not an error; the socket may have dropped before joining.
func (s service) DisconnectMember(ctx context.Context, conn *websocket.Conn) (DisconnectMemberResponse, error) {
	memberID, err := s.connRepo.RemoveByConn(conn)
	if err != nil {
		return DisconnectMemberResponse{}, nil
	}

	result, err := s.roomRepo.RemoveMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, roomRepo.ErrMemberNotFound) {
			return DisconnectMemberResponse{}, nil
		}
		return DisconnectMemberResponse{}, fmt.Errorf("failed to remove member: %w", err)
	}

	resp := DisconnectMemberResponse{
		RoomID:      result.RoomID,
		RoomDeleted: result.RoomDeleted,
	}
	if result.RoomDeleted {
		return resp, nil
	}

	update, err := s.roomUpdate(ctx, result.RoomID)
	if err != nil {
		return DisconnectMemberResponse{}, fmt.Errorf("failed to get room update: %w", err)
	}
	resp.Members = update.Members
	resp.Conns = update.Conns

	return resp, nil
}

type ChatParams struct {
	Conn *websocket.Conn
	Text string
}

type ChatResponse struct {
	Name  string
	Text  string
	Conns []*websocket.Conn
}

func (s service) Chat(ctx context.Context, params *ChatParams) (ChatResponse, error) {
	memberID, err := s.connRepo.GetMemberID(params.Conn)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to get member id: %w", err)
	}

	member, err := s.roomRepo.GetMember(ctx, memberID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	roomID, err := s.roomRepo.GetMemberRoomID(ctx, memberID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to get member room: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, roomID)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}

	return ChatResponse{Name: member.Name, Text: params.Text, Conns: conns}, nil
}

func (s service) roomUpdate(ctx context.Context, roomID string) (RoomUpdate, error) {
	members, err := s.roomRepo.GetMembers(ctx, roomID)
	if err != nil {
		return RoomUpdate{}, fmt.Errorf("failed to get members: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, roomID)
	if err != nil {
		return RoomUpdate{}, fmt.Errorf("failed to get conns: %w", err)
	}

	return RoomUpdate{RoomID: roomID, Members: members, Conns: conns}, nil
}

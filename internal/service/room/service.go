// Package room implements the relay: it applies client intents to the room
// store and tells the controller which connections to rebroadcast to.
package room

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/vnzible/ultragenmusic/internal/domain"
	roomRepo "github.com/vnzible/ultragenmusic/internal/repository/room"
)

var (
	ErrRoomNotFound   = roomRepo.ErrRoomNotFound
	ErrMemberNotFound = roomRepo.ErrMemberNotFound
)

// RoomRepo is the Room Store contract; the relay accepts any implementation
// (in-memory by default, redis optionally).
type RoomRepo interface {
	JoinRoom(context.Context, *roomRepo.JoinRoomParams) (roomRepo.JoinRoomResult, error)
	RemoveMember(ctx context.Context, memberID string) (roomRepo.RemoveMemberResult, error)
	GetMember(ctx context.Context, memberID string) (domain.Member, error)
	GetMemberRoomID(ctx context.Context, memberID string) (string, error)
	GetMembers(ctx context.Context, roomID string) ([]domain.Member, error)
	GetMemberIDs(ctx context.Context, roomID string) ([]string, error)
	GetSnapshot(ctx context.Context, roomID string) (domain.Snapshot, error)
	ApplyPlayback(context.Context, *roomRepo.ApplyPlaybackParams) (uint64, error)
	ApplySeek(context.Context, *roomRepo.ApplySeekParams) (uint64, error)
	ApplyLoad(context.Context, *roomRepo.ApplyLoadParams) (uint64, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, memberID string) error
	RemoveByConn(conn *websocket.Conn) (string, error)
	GetMemberID(conn *websocket.Conn) (string, error)
	GetConn(memberID string) (*websocket.Conn, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

const roomIDLength = 6

type service struct {
	roomRepo  RoomRepo
	connRepo  iConnRepo
	generator iGenerator
	logger    *slog.Logger
}

func NewService(roomRepo RoomRepo, connRepo iConnRepo, generator iGenerator, logger *slog.Logger) *service {
	return &service{
		roomRepo:  roomRepo,
		connRepo:  connRepo,
		generator: generator,
		logger:    logger,
	}
}

// getConnsByRoomID collects the live connections of every member in the
// room. Members without a registered connection are skipped.
func (s service) getConnsByRoomID(ctx context.Context, roomID string) ([]*websocket.Conn, error) {
	memberIDs, err := s.roomRepo.GetMemberIDs(ctx, roomID)
	if err != nil {
		return nil, err
	}

	conns := make([]*websocket.Conn, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		conn, err := s.connRepo.GetConn(memberID)
		if err != nil {
			s.logger.DebugContext(ctx, "member has no connection", "member_id", memberID)
			continue
		}
		conns = append(conns, conn)
	}

	return conns, nil
}

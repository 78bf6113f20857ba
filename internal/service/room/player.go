package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/vnzible/ultragenmusic/internal/domain"
	"github.com/vnzible/ultragenmusic/internal/protocol"
	roomRepo "github.com/vnzible/ultragenmusic/internal/repository/room"
)

type UpdatePlaybackParams struct {
	RoomID string
	Action string
	Time   float64
}

type IntentResponse struct {
	Revision uint64
	Conns    []*websocket.Conn
}

func (s service) UpdatePlayback(ctx context.Context, params *UpdatePlaybackParams) (IntentResponse, error) {
	revision, err := s.roomRepo.ApplyPlayback(ctx, &roomRepo.ApplyPlaybackParams{
		RoomID:  params.RoomID,
		Playing: params.Action == protocol.ActionPlay,
		Time:    params.Time,
	})
	if err != nil {
		return IntentResponse{}, fmt.Errorf("failed to apply playback: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return IntentResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}

	return IntentResponse{Revision: revision, Conns: conns}, nil
}

type SeekParams struct {
	RoomID string
	Time   float64
}

func (s service) Seek(ctx context.Context, params *SeekParams) (IntentResponse, error) {
	revision, err := s.roomRepo.ApplySeek(ctx, &roomRepo.ApplySeekParams{
		RoomID: params.RoomID,
		Time:   params.Time,
	})
	if err != nil {
		return IntentResponse{}, fmt.Errorf("failed to apply seek: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return IntentResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}

	return IntentResponse{Revision: revision, Conns: conns}, nil
}

type LoadVideoParams struct {
	RoomID  string
	VideoID string
	Title   string
	PlayNow bool
}

func (s service) LoadVideo(ctx context.Context, params *LoadVideoParams) (IntentResponse, error) {
	revision, err := s.roomRepo.ApplyLoad(ctx, &roomRepo.ApplyLoadParams{
		RoomID:  params.RoomID,
		VideoID: params.VideoID,
		Title:   params.Title,
		PlayNow: params.PlayNow,
	})
	if err != nil {
		return IntentResponse{}, fmt.Errorf("failed to apply load: %w", err)
	}

	conns, err := s.getConnsByRoomID(ctx, params.RoomID)
	if err != nil {
		return IntentResponse{}, fmt.Errorf("failed to get conns: %w", err)
	}

	return IntentResponse{Revision: revision, Conns: conns}, nil
}

func (s service) GetSnapshot(ctx context.Context, roomID string) (domain.Snapshot, error) {
	snapshot, err := s.roomRepo.GetSnapshot(ctx, roomID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return snapshot, nil
}

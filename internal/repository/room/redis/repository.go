// Package redis is a Room Store backed by redis, for deployments where the
// relay should survive a restart with rooms intact. Semantics match the
// in-memory store: a room with zero members is deleted immediately.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnzible/ultragenmusic/internal/domain"
	"github.com/vnzible/ultragenmusic/internal/repository/room"
)

type playbackState struct {
	VideoID   string  `redis:"video_id"`
	Title     string  `redis:"title"`
	Time      float64 `redis:"time"`
	IsPlaying bool    `redis:"is_playing"`
	Revision  uint64  `redis:"revision"`
}

type repo struct {
	rc             *redis.Client
	expireDuration time.Duration
	logger         *slog.Logger
}

func NewRepo(rc *redis.Client, expireDuration time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
		logger:         logger,
	}
}

func (r repo) stateKey(roomID string) string {
	return "room:" + roomID + ":state"
}

func (r repo) membersKey(roomID string) string {
	return "room:" + roomID + ":members"
}

func (r repo) memberRoomKey(memberID string) string {
	return "member:" + memberID + ":room"
}

func (r repo) roomExists(ctx context.Context, roomID string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.membersKey(roomID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) JoinRoom(ctx context.Context, params *room.JoinRoomParams) (room.JoinRoomResult, error) {
	var result room.JoinRoomResult

	prevRoomID, err := r.rc.Get(ctx, r.memberRoomKey(params.MemberID)).Result()
	if err != nil && err != redis.Nil {
		return result, fmt.Errorf("failed to get member room: %w", err)
	}
	if prevRoomID != "" && prevRoomID != params.RoomID {
		deleted, err := r.removeFromRoom(ctx, params.MemberID, prevRoomID)
		if err != nil {
			return result, err
		}
		result.PreviousRoomID = prevRoomID
		result.PreviousRoomDeleted = deleted
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, r.membersKey(params.RoomID), params.MemberID, params.Name)
	pipe.Set(ctx, r.memberRoomKey(params.MemberID), params.RoomID, r.expireDuration)
	pipe.Expire(ctx, r.membersKey(params.RoomID), r.expireDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return result, fmt.Errorf("failed to join room: %w", err)
	}

	return result, nil
}

func (r repo) RemoveMember(ctx context.Context, memberID string) (room.RemoveMemberResult, error) {
	roomID, err := r.rc.Get(ctx, r.memberRoomKey(memberID)).Result()
	if err == redis.Nil {
		return room.RemoveMemberResult{}, room.ErrMemberNotFound
	}
	if err != nil {
		return room.RemoveMemberResult{}, fmt.Errorf("failed to get member room: %w", err)
	}

	deleted, err := r.removeFromRoom(ctx, memberID, roomID)
	if err != nil {
		return room.RemoveMemberResult{}, err
	}

	return room.RemoveMemberResult{RoomID: roomID, RoomDeleted: deleted}, nil
}

func (r repo) removeFromRoom(ctx context.Context, memberID, roomID string) (bool, error) {
	pipe := r.rc.TxPipeline()
	pipe.HDel(ctx, r.membersKey(roomID), memberID)
	pipe.Del(ctx, r.memberRoomKey(memberID))
	lenCmd := pipe.HLen(ctx, r.membersKey(roomID))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}

	if lenCmd.Val() > 0 {
		return false, nil
	}

	if err := r.rc.Del(ctx, r.membersKey(roomID), r.stateKey(roomID)).Err(); err != nil {
		return false, fmt.Errorf("failed to delete empty room: %w", err)
	}
	r.logger.Debug("room deleted", "room_id", roomID)

	return true, nil
}

func (r repo) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	roomID, err := r.rc.Get(ctx, r.memberRoomKey(memberID)).Result()
	if err == redis.Nil {
		return domain.Member{}, room.ErrMemberNotFound
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to get member room: %w", err)
	}

	name, err := r.rc.HGet(ctx, r.membersKey(roomID), memberID).Result()
	if err == redis.Nil {
		return domain.Member{}, room.ErrMemberNotFound
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to get member name: %w", err)
	}

	return domain.Member{ID: memberID, Name: name}, nil
}

func (r repo) GetMemberRoomID(ctx context.Context, memberID string) (string, error) {
	roomID, err := r.rc.Get(ctx, r.memberRoomKey(memberID)).Result()
	if err == redis.Nil {
		return "", room.ErrMemberNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get member room: %w", err)
	}

	return roomID, nil
}

func (r repo) GetMembers(ctx context.Context, roomID string) ([]domain.Member, error) {
	entries, err := r.rc.HGetAll(ctx, r.membersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	if len(entries) == 0 {
		return nil, room.ErrRoomNotFound
	}

	members := make([]domain.Member, 0, len(entries))
	for id, name := range entries {
		members = append(members, domain.Member{ID: id, Name: name})
	}

	return members, nil
}

func (r repo) GetMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	ids, err := r.rc.HKeys(ctx, r.membersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, room.ErrRoomNotFound
	}

	return ids, nil
}

func (r repo) GetSnapshot(ctx context.Context, roomID string) (domain.Snapshot, error) {
	exists, err := r.roomExists(ctx, roomID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !exists {
		return domain.Snapshot{}, room.ErrRoomNotFound
	}

	var state playbackState
	if err := r.rc.HGetAll(ctx, r.stateKey(roomID)).Scan(&state); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to get playback state: %w", err)
	}

	snapshot := domain.Snapshot{
		Position: state.Time,
		Playing:  state.IsPlaying,
		Revision: state.Revision,
	}
	if state.VideoID != "" {
		snapshot.Media = &domain.MediaReference{ID: state.VideoID, Title: state.Title}
	}

	return snapshot, nil
}

func (r repo) ApplyPlayback(ctx context.Context, params *room.ApplyPlaybackParams) (uint64, error) {
	return r.applyState(ctx, params.RoomID, map[string]any{
		"time":       params.Time,
		"is_playing": params.Playing,
	})
}

func (r repo) ApplySeek(ctx context.Context, params *room.ApplySeekParams) (uint64, error) {
	return r.applyState(ctx, params.RoomID, map[string]any{
		"time": params.Time,
	})
}

func (r repo) ApplyLoad(ctx context.Context, params *room.ApplyLoadParams) (uint64, error) {
	return r.applyState(ctx, params.RoomID, map[string]any{
		"video_id":   params.VideoID,
		"title":      params.Title,
		"time":       float64(0),
		"is_playing": params.PlayNow,
	})
}

func (r repo) applyState(ctx context.Context, roomID string, fields map[string]any) (uint64, error) {
	exists, err := r.roomExists(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, room.ErrRoomNotFound
	}

	stateKey := r.stateKey(roomID)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, stateKey, fields)
	revCmd := pipe.HIncrBy(ctx, stateKey, "revision", 1)
	pipe.Expire(ctx, stateKey, r.expireDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to apply playback state: %w", err)
	}

	return uint64(revCmd.Val()), nil
}

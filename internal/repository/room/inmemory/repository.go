// Package inmemory is the default Room Store: a mutex-guarded map that lives
// for the relay's lifetime. A relay restart loses every room.
package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/vnzible/ultragenmusic/internal/domain"
	"github.com/vnzible/ultragenmusic/internal/repository/room"
)

type roomState struct {
	members  map[string]string // member id -> name
	media    *domain.MediaReference
	position float64
	playing  bool
	revision uint64
}

type repo struct {
	mu         sync.RWMutex
	rooms      map[string]*roomState
	memberRoom map[string]string // member id -> room id
	logger     *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:      make(map[string]*roomState),
		memberRoom: make(map[string]string),
		logger:     logger,
	}
}

func (r *repo) JoinRoom(_ context.Context, params *room.JoinRoomParams) (room.JoinRoomResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result room.JoinRoomResult
	if prevRoomID, ok := r.memberRoom[params.MemberID]; ok && prevRoomID != params.RoomID {
		result.PreviousRoomID = prevRoomID
		result.PreviousRoomDeleted = r.removeMemberLocked(params.MemberID, prevRoomID)
	}

	state, ok := r.rooms[params.RoomID]
	if !ok {
		state = &roomState{members: make(map[string]string)}
		r.rooms[params.RoomID] = state
		r.logger.Debug("room created", "room_id", params.RoomID)
	}

	state.members[params.MemberID] = params.Name
	r.memberRoom[params.MemberID] = params.RoomID

	return result, nil
}

func (r *repo) RemoveMember(_ context.Context, memberID string) (room.RemoveMemberResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.memberRoom[memberID]
	if !ok {
		return room.RemoveMemberResult{}, room.ErrMemberNotFound
	}

	deleted := r.removeMemberLocked(memberID, roomID)

	return room.RemoveMemberResult{RoomID: roomID, RoomDeleted: deleted}, nil
}

// removeMemberLocked removes the member from the given room and deletes the
// room once its membership reaches zero. Caller must hold the write lock.
func (r *repo) removeMemberLocked(memberID, roomID string) bool {
	delete(r.memberRoom, memberID)

	state, ok := r.rooms[roomID]
	if !ok {
		return false
	}

	delete(state.members, memberID)
	if len(state.members) == 0 {
		delete(r.rooms, roomID)
		r.logger.Debug("room deleted", "room_id", roomID)
		return true
	}

	return false
}

func (r *repo) GetMember(_ context.Context, memberID string) (domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.memberRoom[memberID]
	if !ok {
		return domain.Member{}, room.ErrMemberNotFound
	}

	name := r.rooms[roomID].members[memberID]

	return domain.Member{ID: memberID, Name: name}, nil
}

func (r *repo) GetMemberRoomID(_ context.Context, memberID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.memberRoom[memberID]
	if !ok {
		return "", room.ErrMemberNotFound
	}

	return roomID, nil
}

func (r *repo) GetMembers(_ context.Context, roomID string) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	members := make([]domain.Member, 0, len(state.members))
	for id, name := range state.members {
		members = append(members, domain.Member{ID: id, Name: name})
	}

	return members, nil
}

func (r *repo) GetMemberIDs(_ context.Context, roomID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return maps.Keys(state.members), nil
}

func (r *repo) GetSnapshot(_ context.Context, roomID string) (domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.rooms[roomID]
	if !ok {
		return domain.Snapshot{}, room.ErrRoomNotFound
	}

	return domain.Snapshot{
		Media:    copyMedia(state.media),
		Position: state.position,
		Playing:  state.playing,
		Revision: state.revision,
	}, nil
}

func (r *repo) ApplyPlayback(_ context.Context, params *room.ApplyPlaybackParams) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomID]
	if !ok {
		return 0, room.ErrRoomNotFound
	}

	state.position = params.Time
	state.playing = params.Playing
	state.revision++

	return state.revision, nil
}

func (r *repo) ApplySeek(_ context.Context, params *room.ApplySeekParams) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomID]
	if !ok {
		return 0, room.ErrRoomNotFound
	}

	state.position = params.Time
	state.revision++

	return state.revision, nil
}

func (r *repo) ApplyLoad(_ context.Context, params *room.ApplyLoadParams) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.rooms[params.RoomID]
	if !ok {
		return 0, room.ErrRoomNotFound
	}

	state.media = &domain.MediaReference{ID: params.VideoID, Title: params.Title}
	state.position = 0
	state.playing = params.PlayNow
	state.revision++

	return state.revision, nil
}

func copyMedia(media *domain.MediaReference) *domain.MediaReference {
	if media == nil {
		return nil
	}

	m := *media
	return &m
}

package inmemory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnzible/ultragenmusic/internal/domain"
	"github.com/vnzible/ultragenmusic/internal/repository/room"
)

func newTestRepo() *repo {
	return NewRepo(slog.Default())
}

func TestJoinCreatesRoomAndTracksMembers(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	_, err := r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r1", MemberID: "m1", Name: "alice"})
	require.NoError(t, err)
	_, err = r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r1", MemberID: "m2", Name: "bob"})
	require.NoError(t, err)

	members, err := r.GetMembers(ctx, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Member{
		{ID: "m1", Name: "alice"},
		{ID: "m2", Name: "bob"},
	}, members)

	roomID, err := r.GetMemberRoomID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "r1", roomID)
}

func TestLastMemberLeavingDeletesRoom(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	_, err := r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r1", MemberID: "m1", Name: "alice"})
	require.NoError(t, err)
	_, err = r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r1", MemberID: "m2", Name: "bob"})
	require.NoError(t, err)

	result, err := r.RemoveMember(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "r1", result.RoomID)
	assert.False(t, result.RoomDeleted)

	result, err = r.RemoveMember(ctx, "m2")
	require.NoError(t, err)
	assert.True(t, result.RoomDeleted)

	_, err = r.GetSnapshot(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestLastJoinWins(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	_, err := r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r1", MemberID: "m1", Name: "alice"})
	require.NoError(t, err)

	result, err := r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r2", MemberID: "m1", Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "r1", result.PreviousRoomID)
	assert.True(t, result.PreviousRoomDeleted, "r1 became empty when its only member moved")

	roomID, err := r.GetMemberRoomID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "r2", roomID)
}

func TestApplyPlaybackMutatesStateAndBumpsRevision(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	_, err := r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r1", MemberID: "m1", Name: "alice"})
	require.NoError(t, err)

	rev, err := r.ApplyPlayback(ctx, &room.ApplyPlaybackParams{RoomID: "r1", Playing: true, Time: 42.0})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)

	snapshot, err := r.GetSnapshot(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, snapshot.Playing)
	assert.Equal(t, 42.0, snapshot.Position)
	assert.Equal(t, uint64(1), snapshot.Revision)

	rev, err = r.ApplySeek(ctx, &room.ApplySeekParams{RoomID: "r1", Time: 10.0})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)
}

func TestApplyLoadResetsPosition(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	_, err := r.JoinRoom(ctx, &room.JoinRoomParams{RoomID: "r1", MemberID: "m1", Name: "alice"})
	require.NoError(t, err)

	_, err = r.ApplySeek(ctx, &room.ApplySeekParams{RoomID: "r1", Time: 100})
	require.NoError(t, err)

	_, err = r.ApplyLoad(ctx, &room.ApplyLoadParams{RoomID: "r1", VideoID: "abc123", Title: "a title", PlayNow: true})
	require.NoError(t, err)

	snapshot, err := r.GetSnapshot(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, snapshot.Media)
	assert.Equal(t, "abc123", snapshot.Media.ID)
	assert.Equal(t, "a title", snapshot.Media.Title)
	assert.True(t, snapshot.Playing)
	assert.Zero(t, snapshot.Position)
}

func TestIntentForUnknownRoom(t *testing.T) {
	r := newTestRepo()
	ctx := context.Background()

	_, err := r.ApplyPlayback(ctx, &room.ApplyPlaybackParams{RoomID: "nope", Playing: true, Time: 1})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	_, err = r.ApplySeek(ctx, &room.ApplySeekParams{RoomID: "nope", Time: 1})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	_, err = r.ApplyLoad(ctx, &room.ApplyLoadParams{RoomID: "nope", VideoID: "abc"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

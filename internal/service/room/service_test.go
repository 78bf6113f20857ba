package room

import (
	"context"
	"log/slog"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conninmemory "github.com/vnzible/ultragenmusic/internal/repository/connection/inmemory"
	roominmemory "github.com/vnzible/ultragenmusic/internal/repository/room/inmemory"
	"github.com/vnzible/ultragenmusic/pkg/randstr"
)

func newTestService() *service {
	roomRepo := roominmemory.NewRepo(slog.Default())
	connRepo := conninmemory.NewRepo()
	generator := randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789"))

	return NewService(roomRepo, connRepo, generator, slog.Default())
}

func TestJoinRoomAndMemberList(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	connA := &websocket.Conn{}
	joinA, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: connA, RoomID: "r1", Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "r1", joinA.RoomID)
	assert.NotEmpty(t, joinA.MemberID)
	assert.Len(t, joinA.Members, 1)
	assert.Len(t, joinA.Conns, 1)
	assert.Nil(t, joinA.Snapshot, "no media loaded yet, no snapshot for the joiner")

	connB := &websocket.Conn{}
	joinB, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: connB, RoomID: "r1", Name: "bob"})
	require.NoError(t, err)
	assert.Len(t, joinB.Members, 2)
	assert.Len(t, joinB.Conns, 2)

	names := []string{joinB.Members[0].Name, joinB.Members[1].Name}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestJoinRoomGeneratesRoomID(t *testing.T) {
	s := newTestService()

	join, err := s.JoinRoom(context.Background(), &JoinRoomParams{Conn: &websocket.Conn{}, Name: "alice"})
	require.NoError(t, err)
	assert.Len(t, join.RoomID, roomIDLength)
}

func TestPlaybackIntentThenSnapshot(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: &websocket.Conn{}, RoomID: "r1", Name: "alice"})
	require.NoError(t, err)

	resp, err := s.UpdatePlayback(ctx, &UpdatePlaybackParams{RoomID: "r1", Action: "play", Time: 42.0})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.Revision)
	assert.Len(t, resp.Conns, 1)

	snapshot, err := s.GetSnapshot(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, snapshot.Playing)
	assert.Equal(t, 42.0, snapshot.Position)
}

func TestLoadVideoThenSnapshot(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: &websocket.Conn{}, RoomID: "r1", Name: "alice"})
	require.NoError(t, err)

	_, err = s.LoadVideo(ctx, &LoadVideoParams{RoomID: "r1", VideoID: "abc123", PlayNow: true})
	require.NoError(t, err)

	snapshot, err := s.GetSnapshot(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, snapshot.Media)
	assert.Equal(t, "abc123", snapshot.Media.ID)
	assert.True(t, snapshot.Playing)
	assert.Zero(t, snapshot.Position)
}

func TestSnapshotSentToLateJoiner(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: &websocket.Conn{}, RoomID: "r1", Name: "alice"})
	require.NoError(t, err)
	_, err = s.LoadVideo(ctx, &LoadVideoParams{RoomID: "r1", VideoID: "xyz", PlayNow: true})
	require.NoError(t, err)
	_, err = s.Seek(ctx, &SeekParams{RoomID: "r1", Time: 30})
	require.NoError(t, err)

	join, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: &websocket.Conn{}, RoomID: "r1", Name: "bob"})
	require.NoError(t, err)
	require.NotNil(t, join.Snapshot)
	assert.Equal(t, "xyz", join.Snapshot.Media.ID)
	assert.Equal(t, 30.0, join.Snapshot.Position)
	assert.True(t, join.Snapshot.Playing)
}

func TestChatBroadcastsToRoom(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	connA := &websocket.Conn{}
	_, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: connA, RoomID: "r1", Name: "alice"})
	require.NoError(t, err)
	_, err = s.JoinRoom(ctx, &JoinRoomParams{Conn: &websocket.Conn{}, RoomID: "r1", Name: "bob"})
	require.NoError(t, err)

	resp, err := s.Chat(ctx, &ChatParams{Conn: connA, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Name)
	assert.Equal(t, "hello", resp.Text)
	assert.Len(t, resp.Conns, 2)
}

func TestIntentForUnknownRoomIsReported(t *testing.T) {
	s := newTestService()

	_, err := s.UpdatePlayback(context.Background(), &UpdatePlaybackParams{RoomID: "nope", Action: "play", Time: 1})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDisconnectMember(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	connA := &websocket.Conn{}
	connB := &websocket.Conn{}
	_, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: connA, RoomID: "r1", Name: "alice"})
	require.NoError(t, err)
	_, err = s.JoinRoom(ctx, &JoinRoomParams{Conn: connB, RoomID: "r1", Name: "bob"})
	require.NoError(t, err)

	resp, err := s.DisconnectMember(ctx, connA)
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.RoomID)
	assert.False(t, resp.RoomDeleted)
	require.Len(t, resp.Members, 1)
	assert.Equal(t, "bob", resp.Members[0].Name)

	resp, err = s.DisconnectMember(ctx, connB)
	require.NoError(t, err)
	assert.True(t, resp.RoomDeleted)

	_, err = s.GetSnapshot(ctx, "r1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDisconnectUnknownConnIsNoop(t *testing.T) {
	s := newTestService()

	resp, err := s.DisconnectMember(context.Background(), &websocket.Conn{})
	require.NoError(t, err)
	assert.Empty(t, resp.RoomID)
}

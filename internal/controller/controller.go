// Package controller terminates HTTP and websocket connections and routes
// messages between clients and the room service.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vnzible/ultragenmusic/internal/domain"
	"github.com/vnzible/ultragenmusic/internal/service/room"
	"github.com/vnzible/ultragenmusic/pkg/validator"
	"github.com/vnzible/ultragenmusic/pkg/wsrouter"
	"github.com/vnzible/ultragenmusic/pkg/ytsearch"
)

type iRoomService interface {
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	DisconnectMember(ctx context.Context, conn *websocket.Conn) (room.DisconnectMemberResponse, error)
	Chat(context.Context, *room.ChatParams) (room.ChatResponse, error)
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams) (room.IntentResponse, error)
	Seek(context.Context, *room.SeekParams) (room.IntentResponse, error)
	LoadVideo(context.Context, *room.LoadVideoParams) (room.IntentResponse, error)
	GetSnapshot(ctx context.Context, roomID string) (domain.Snapshot, error)
}

type iSearchClient interface {
	Search(ctx context.Context, query string) ([]ytsearch.Item, error)
}

type Config struct {
	SearchAPIKey string
}

type controller struct {
	roomService  iRoomService
	searchClient iSearchClient
	searchAPIKey string
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	wsRouter     *wsrouter.Router
	logger       *slog.Logger

	// gorilla conns do not allow concurrent writers; broadcasts from one
	// member's handler goroutine write to every other member's conn.
	connLocks sync.Map // *websocket.Conn -> *sync.Mutex
}

func NewController(roomService iRoomService, searchClient iSearchClient, cfg *Config, logger *slog.Logger) *controller {
	c := &controller{
		roomService:  roomService,
		searchClient: searchClient,
		searchAPIKey: cfg.SearchAPIKey,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsRouter = c.newWSRouter()

	return c
}

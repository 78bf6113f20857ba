package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vnzible/ultragenmusic/internal/controller"
	conninmemory "github.com/vnzible/ultragenmusic/internal/repository/connection/inmemory"
	roominmemory "github.com/vnzible/ultragenmusic/internal/repository/room/inmemory"
	roomredis "github.com/vnzible/ultragenmusic/internal/repository/room/redis"
	"github.com/vnzible/ultragenmusic/internal/service/room"
	"github.com/vnzible/ultragenmusic/pkg/ctxlogger"
	"github.com/vnzible/ultragenmusic/pkg/randstr"
	"github.com/vnzible/ultragenmusic/pkg/redisclient"
	"github.com/vnzible/ultragenmusic/pkg/ytsearch"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	redisRoomExpiration = 24 * time.Hour
)

type AppConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	LogLevel      string `json:"log_level"`
	Store         string `json:"store"`
	SearchAPIKey  string `json:"-"`
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.Store != StoreMemory && cfg.Store != StoreRedis {
		return fmt.Errorf("store must be %q or %q", StoreMemory, StoreRedis)
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(h)

	var roomRepo room.RoomRepo
	switch cfg.Store {
	case StoreRedis:
		rc, err := redisclient.New(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
		roomRepo = roomredis.NewRepo(rc, redisRoomExpiration, logger)
	default:
		roomRepo = roominmemory.NewRepo(logger)
	}

	connRepo := conninmemory.NewRepo()
	generator := randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789"))
	roomService := room.NewService(roomRepo, connRepo, generator, logger)
	searchClient := ytsearch.NewClient(cfg.SearchAPIKey)
	ctrl := controller.NewController(roomService, searchClient, &controller.Config{
		SearchAPIKey: cfg.SearchAPIKey,
	}, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: ctrl.Mux(),
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "store", cfg.Store)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}

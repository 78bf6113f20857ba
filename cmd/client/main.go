// Command client is a headless room participant: it joins a room, relays
// chat from stdin, and mirrors playback state in a simulated player. Useful
// for poking at a relay without a browser.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/vnzible/ultragenmusic/internal/client"
	"github.com/vnzible/ultragenmusic/internal/protocol"
	"github.com/vnzible/ultragenmusic/pkg/randstr"
	"github.com/vnzible/ultragenmusic/pkg/ytsearch"
)

func main() {
	serverURL := pflag.String("url", "ws://localhost:3000/ws", "relay websocket url")
	roomID := pflag.String("room", "", "room id (generated when empty)")
	name := pflag.String("name", "", "display name")
	logLevel := pflag.String("log-level", "WARN", "logging level")
	pflag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "--name is required")
		os.Exit(1)
	}
	if *roomID == "" {
		*roomID = randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789")).GenerateRandomString(6)
	}

	level := slog.LevelWarn
	level.UnmarshalText([]byte(strings.ToUpper(*logLevel)))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := client.Dial(ctx, &client.Config{
		URL:           *serverURL,
		PlayerFactory: func() (client.Player, error) { return newConsolePlayer(), nil },
		Logger:        logger,
		Handlers: client.Handlers{
			OnChat: func(name, text string) {
				fmt.Printf("[%s] %s\n", name, text)
			},
			OnUserList: func(users []protocol.UserEntry) {
				names := make([]string, 0, len(users))
				for _, u := range users {
					names = append(names, u.Name)
				}
				fmt.Printf("* members: %s\n", strings.Join(names, ", "))
			},
			OnTitle: func(title string) {
				fmt.Printf("* now playing: %s\n", title)
			},
			OnError: func(message string) {
				fmt.Fprintf(os.Stderr, "! server: %s\n", message)
			},
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.Join(ctx, *roomID, *name); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("* joined room %s as %s\n", *roomID, *name)

	go func() {
		if err := c.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
			os.Exit(1)
		}
	}()

	readCommands(ctx, c)
}

func readCommands(ctx context.Context, c *client.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch {
		case line == "/play":
			err = c.Play()
		case line == "/pause":
			err = c.Pause()
		case strings.HasPrefix(line, "/seek "):
			var seconds float64
			seconds, err = strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "/seek ")), 64)
			if err == nil {
				err = c.Seek(seconds)
			}
		case strings.HasPrefix(line, "/load "):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "/load "))
			videoID := ytsearch.ExtractVideoID(raw)
			if videoID == "" {
				err = fmt.Errorf("could not extract a video id from %q", raw)
				break
			}
			err = c.Load(ctx, videoID, true, "")
		case line == "/latency":
			fmt.Printf("* latency estimate: %s\n", c.Latency())
		case line == "/quit":
			return
		default:
			err = c.Chat(line)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
		}
	}
}

// consolePlayer simulates playback: position advances with wall time while
// playing.
type consolePlayer struct {
	videoID  string
	position float64
	playing  bool
	since    time.Time
}

func newConsolePlayer() *consolePlayer {
	return &consolePlayer{}
}

func (p *consolePlayer) Load(videoID string) error {
	p.videoID = videoID
	p.position = 0
	p.playing = false
	fmt.Printf("* loaded %s\n", videoID)
	return nil
}

func (p *consolePlayer) Play() error {
	if !p.playing {
		p.playing = true
		p.since = time.Now()
	}
	fmt.Println("* playing")
	return nil
}

func (p *consolePlayer) Pause() error {
	if p.playing {
		p.position += time.Since(p.since).Seconds()
		p.playing = false
	}
	fmt.Println("* paused")
	return nil
}

func (p *consolePlayer) SeekTo(seconds float64) error {
	p.position = seconds
	if p.playing {
		p.since = time.Now()
	}
	fmt.Printf("* seeked to %.1fs\n", seconds)
	return nil
}

func (p *consolePlayer) CurrentTime() (float64, error) {
	if p.playing {
		return p.position + time.Since(p.since).Seconds(), nil
	}
	return p.position, nil
}

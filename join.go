package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Seednode/lorelord/games/lorelord"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"
)

// runJoin connects to a remote authority and plays from this terminal. The
// session ends when either side closes the connection.
func runJoin(ctx context.Context, cfg *Config, url string, in io.Reader) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Connecting to " + url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err)
		}
		return fmt.Errorf("join %s: %w", url, err)
	}
	if spinner != nil {
		_ = spinner.Stop()
	}

	ch := lorelord.NewWSChannel(conn)
	defer ch.Close()

	selfID := uuid.NewString()
	logger := consoleLogger(cfg)

	replica := lorelord.NewReplica(func(s *lorelord.State) {
		pterm.Print(renderState(s, selfID))
	}, logger)

	router := lorelord.NewUpstreamRouter(ch)
	if err := router.Join(selfID, cfg.name); err != nil {
		return err
	}

	pterm.Success.Printfln("Joined as %s", cfg.name)

	disconnected := make(chan error, 1)
	go func() {
		disconnected <- ch.ReadPump(func(b []byte) {
			if err := replica.Receive(b); err != nil {
				logger("GAMES: %v", err)
			}
		})
	}()

	played := make(chan error, 1)
	go func() {
		played <- runConsole(ctx, in, replica, router, selfID)
	}()

	select {
	case err := <-disconnected:
		pterm.Warning.Println("The host closed the game.")
		return err
	case err := <-played:
		return err
	}
}

package main

import (
	"context"
	"io"
	"net/http"

	"github.com/Seednode/lorelord/games/lorelord"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/pterm/pterm"
)

// runHost runs the authority in this process with the local player attached
// through a loopback channel, and accepts everyone else on /ws.
func runHost(ctx context.Context, cfg *Config, in io.Reader) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	selfID := uuid.NewString()

	authority := lorelord.NewAuthority(lorelord.Options{
		MaxPlayers: cfg.maxPlayers,
		Logf:       consoleLogger(cfg),
	})
	go authority.Run(ctx)

	replica := lorelord.NewReplica(func(s *lorelord.State) {
		pterm.Print(renderState(s, selfID))
	}, consoleLogger(cfg))

	peer := authority.Connect(replica.Channel())
	if err := peer.Join(selfID, cfg.name); err != nil {
		return err
	}

	errs := make(chan error, 64)
	go drainErrors(ctx, cfg, errs)

	listening := make(chan error, 1)
	go func() {
		listening <- listen(ctx, cfg, newHostRouter(cfg, authority, errs))
	}()

	pterm.Success.Printfln("Hosting as %s. Others can join with: lorelord join ws://<this-address>:%d/ws", cfg.name, cfg.port)

	played := make(chan error, 1)
	go func() {
		played <- runConsole(ctx, in, replica, lorelord.NewLocalRouter(peer), selfID)
	}()

	select {
	case err := <-listening:
		cancel()
		return err
	case err := <-played:
		cancel()
		<-listening
		return err
	}
}

func newHostRouter(cfg *Config, authority *lorelord.Authority, errs chan<- error) *httprouter.Router {
	mux := newRouter(cfg)

	mux.GET("/ws", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		serveAuthority(cfg, authority, "host", w, r)
	})
	mux.GET("/healthz", serveHealthCheck(cfg, errs))
	mux.GET("/version", serveVersion(cfg, errs))

	return mux
}

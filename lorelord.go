// Lore Lord over the web
//
// Every game id gets its own authority running inside this server. Browsers
// are ordinary participants: they pick their own participant id, keep it in
// sessionStorage, and send it in the newPlayer handshake on every connect.
//
// Routes:
// - $path               redirects to a fresh 8-char game id
// - $path/:gameid       HTML client
// - $path/:gameid/ws    WebSocket for that game
// - $path/:gameid/qr    PNG QR code pointing at the game
//
// Games with no activity for --session-timeout are stopped and forgotten.

package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/lorelord/games/lorelord"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	gameIDLength = 8
	qrSize       = 320
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type room struct {
	authority *lorelord.Authority
	cancel    context.CancelFunc
}

// RoomInfo is what the home page shows about a running game.
type RoomInfo struct {
	Code    string
	Players int
}

// GameManager holds one authority per game id, so each $path/$gameid is its
// own isolated session.
type GameManager struct {
	ctx context.Context
	cfg *Config

	mu          sync.Mutex
	rooms       map[string]*room
	idleTimeout time.Duration
}

func newGameManager(ctx context.Context, cfg *Config) *GameManager {
	gm := &GameManager{
		ctx:         ctx,
		cfg:         cfg,
		rooms:       make(map[string]*room),
		idleTimeout: cfg.sessionTimeout,
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}

	return gm
}

func (gm *GameManager) getGame(gameID string) *lorelord.Authority {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if r, ok := gm.rooms[gameID]; ok {
		return r.authority
	}

	ctx, cancel := context.WithCancel(gm.ctx)
	authority := lorelord.NewAuthority(lorelord.Options{
		MaxPlayers: gm.cfg.maxPlayers,
		Logf:       gameLogger(gm.cfg, gameID),
	})
	gm.rooms[gameID] = &room{authority: authority, cancel: cancel}

	go authority.Run(ctx)

	logf(gm.cfg, "GAMES: Started game %s", gameID)

	return authority
}

// ListRooms returns every running game, sorted by code.
func (gm *GameManager) ListRooms() []RoomInfo {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	rooms := make([]RoomInfo, 0, len(gm.rooms))
	for code, r := range gm.rooms {
		rooms = append(rooms, RoomInfo{Code: code, Players: r.authority.NumPlayers()})
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Code < rooms[j].Code
	})

	return rooms
}

// newGameID generates a crypto-random game id that no running game uses.
func (gm *GameManager) newGameID() string {
	for {
		id := rand.Text()[:gameIDLength]

		gm.mu.Lock()
		_, exists := gm.rooms[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

// reap stops every game idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, r := range gm.rooms {
		if r.authority.LastActive().Before(cutoff) {
			delete(gm.rooms, id)
			r.cancel()
			reaped++

			logf(gm.cfg, "GAMES: Reaped idle game %s", id)
		}
	}

	return reaped
}

func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		serveAuthority(cfg, gm.getGame(gameID), "game "+gameID, w, r)
	}
}

// serveAuthority upgrades the request and feeds the connection to authority
// until it closes.
func serveAuthority(cfg *Config, authority *lorelord.Authority, label string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logf(cfg, "ERROR: upgrade for %s: %v", realIP(r), err)
		return
	}

	logf(cfg, "SERVE: WebSocket for %s to %s", label, realIP(r))

	ch := lorelord.NewWSChannel(conn)
	peer := authority.Connect(ch)

	if err := ch.ReadPump(peer.Receive); err != nil {
		logf(cfg, "SERVE: WebSocket for %s from %s closed: %v", label, realIP(r), err)
	}

	peer.Close()
}

// qrHandler renders a PNG QR code for the game page this request came from.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("gameid") == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	png, err := qrcode.Encode(gameURL(r), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// gameURL derives the page URL from a request to $path/:gameid/qr.
func gameURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")
}

func getIndexHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/lorelord/index.html")
		if err != nil {
			errs <- err
			http.Error(w, "missing client", http.StatusInternalServerError)
			return
		}

		writeAsset(cfg, w, "index.html", data, errs)
	}
}

func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

func registerLoreLordGame(cfg *Config, path string, gm *GameManager, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg, errs))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}

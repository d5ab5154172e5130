package lorelord

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer sends every frame it receives straight back.
func echoServer(t *testing.T, onOpen func(*WSChannel)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}

		ch := NewWSChannel(conn)
		if onOpen != nil {
			onOpen(ch)
		}
		_ = ch.ReadPump(func(b []byte) {
			_ = ch.Send(b)
		})
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestWSChannelEcho(t *testing.T) {
	conn := dial(t, echoServer(t, nil))

	want := `{"type":"newPlayer","payload":{"id":"a","name":"Ann"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(want)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, got, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestWSChannelCloseSendsCloseFrame(t *testing.T) {
	conn := dial(t, echoServer(t, func(ch *WSChannel) {
		_ = ch.Send([]byte("bye"))
		_ = ch.Close()

		if err := ch.Send([]byte("late")); err != ErrChannelClosed {
			t.Errorf("expected ErrChannelClosed after close, got %v", err)
		}
	}))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))

	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != "bye" {
		t.Fatalf("expected queued frame before close, got %q (%v)", msg, err)
	}

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}

func TestWSChannelReadPumpEndsOnClientClose(t *testing.T) {
	done := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ch := NewWSChannel(conn)
		done <- ch.ReadPump(func([]byte) {})
	}))
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("read pump did not return")
	}
}

func TestWSChannelWithAuthority(t *testing.T) {
	a, _ := startAuthority(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ch := NewWSChannel(conn)
		p := a.Connect(ch)
		_ = ch.ReadPump(p.Receive)
		p.Close()
	}))
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	join, _ := Encode(MsgNewPlayer, NewPlayer{ID: "a", Name: "Ann"})
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewReplica(nil, nil)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	for r.State().LoreLordID == "" {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if err := r.Receive(b); err != nil {
			t.Fatalf("receive: %v", err)
		}
	}

	if s := r.State(); s.LoreLordID != "a" || !s.HasPlayer("a") {
		t.Fatalf("expected first joiner seated as lore lord, got %+v", s)
	}
}

package lorelord

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

type fakeChannel struct {
	mu     sync.Mutex
	sendCh chan []byte
	closed bool
	fail   error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{sendCh: make(chan []byte, 1024)}
}

func (f *fakeChannel) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrChannelClosed
	}
	if f.fail != nil {
		return f.fail
	}

	cp := make([]byte, len(b))
	copy(cp, b)
	f.sendCh <- cp

	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

func (f *fakeChannel) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fail = err
}

// next returns the next frame of type t, skipping others.
func (f *fakeChannel) next(t *testing.T, want MessageType) Envelope {
	t.Helper()

	timeout := time.After(time.Second)
	for {
		select {
		case b := <-f.sendCh:
			env, err := DecodeEnvelope(b)
			if err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if env.Type == want {
				return env
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

// drain discards every frame already queued.
func (f *fakeChannel) drain() {
	for {
		select {
		case <-f.sendCh:
		default:
			return
		}
	}
}

func TestChannelSetRegistrationOrder(t *testing.T) {
	cs := NewChannelSet()
	for _, id := range []string{"c", "a", "b"} {
		cs.Register(id, newFakeChannel())
	}

	if got := cs.IDs(); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("expected registration order, got %v", got)
	}

	cs.Unregister("a")

	if got := cs.IDs(); !slices.Equal(got, []string{"c", "b"}) {
		t.Fatalf("expected [c b], got %v", got)
	}
	if cs.Len() != 2 {
		t.Fatalf("expected 2 channels, got %d", cs.Len())
	}
}

func TestChannelSetRegisterReplaces(t *testing.T) {
	cs := NewChannelSet()
	first, second := newFakeChannel(), newFakeChannel()

	if old := cs.Register("a", first); old != nil {
		t.Fatalf("expected no previous channel, got %v", old)
	}
	if old := cs.Register("a", second); old != first {
		t.Fatalf("expected first channel to be returned as replaced")
	}
	if cs.Len() != 1 || len(cs.IDs()) != 1 {
		t.Fatalf("expected a single registration, got %d / %v", cs.Len(), cs.IDs())
	}
}

func TestChannelSetBroadcastReportsFailures(t *testing.T) {
	cs := NewChannelSet()
	ok, bad := newFakeChannel(), newFakeChannel()
	bad.failWith(ErrChannelFull)

	cs.Register("ok", ok)
	cs.Register("bad", bad)

	errs := cs.Broadcast([]byte(`{"type":"gameState","payload":{}}`))
	if len(errs) != 1 {
		t.Fatalf("expected one failure, got %v", errs)
	}

	var te *TransportError
	if !errors.As(errs[0], &te) || te.ParticipantID != "bad" {
		t.Fatalf("expected TransportError for bad, got %v", errs[0])
	}
	if !errors.Is(errs[0], ErrChannelFull) {
		t.Fatalf("expected wrapped ErrChannelFull, got %v", errs[0])
	}
	if len(ok.sendCh) != 1 {
		t.Fatalf("expected ok channel to receive the frame")
	}
	if _, still := cs.Get("bad"); !still {
		t.Fatalf("failed channel should stay registered for the caller to drop")
	}
}

func TestChannelSetSendToUnknown(t *testing.T) {
	cs := NewChannelSet()

	err := cs.SendTo("ghost", []byte("x"))
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestChannelSetCloseAll(t *testing.T) {
	cs := NewChannelSet()
	a, b := newFakeChannel(), newFakeChannel()
	cs.Register("a", a)
	cs.Register("b", b)

	cs.CloseAll()

	if !a.isClosed() || !b.isClosed() {
		t.Fatalf("expected every channel closed")
	}
	if cs.Len() != 0 || len(cs.IDs()) != 0 {
		t.Fatalf("expected empty set, got %d / %v", cs.Len(), cs.IDs())
	}
}

package lorelord

import (
	"testing"
)

func newTestMembership(maxPlayers int) (*Membership, *ChannelSet) {
	channels := NewChannelSet()
	return NewMembership(channels, NewReplicator(channels, nil), maxPlayers, nil), channels
}

func TestJoinBroadcastsToEveryone(t *testing.T) {
	m, _ := newTestMembership(0)
	s := NewState()

	a, b := newFakeChannel(), newFakeChannel()

	if err := m.Join(s, NewPlayer{ID: "a", Name: "Ann"}, a); err != nil {
		t.Fatalf("join a: %v", err)
	}
	a.drain()

	if err := m.Join(s, NewPlayer{ID: "b", Name: "Bo"}, b); err != nil {
		t.Fatalf("join b: %v", err)
	}

	for name, ch := range map[string]*fakeChannel{"a": a, "b": b} {
		roster, err := DecodePayload[LobbyUpdate](ch.next(t, MsgLobbyUpdate))
		if err != nil {
			t.Fatalf("%s: decode roster: %v", name, err)
		}
		if len(roster.Players) != 2 {
			t.Fatalf("%s: expected 2 players in roster, got %v", name, roster.Players)
		}

		snap, err := DecodePayload[State](ch.next(t, MsgGameState))
		if err != nil {
			t.Fatalf("%s: decode state: %v", name, err)
		}
		if len(snap.Players) != 2 || snap.Scores["b"] != 0 {
			t.Fatalf("%s: unexpected snapshot %+v", name, snap)
		}
	}
}

func TestJoinRequiresID(t *testing.T) {
	m, _ := newTestMembership(0)

	if err := m.Join(NewState(), NewPlayer{Name: "nobody"}, newFakeChannel()); err == nil {
		t.Fatalf("expected join without id to fail")
	}
}

func TestJoinDefaultsName(t *testing.T) {
	m, _ := newTestMembership(0)
	s := NewState()

	if err := m.Join(s, NewPlayer{ID: "a"}, newFakeChannel()); err != nil {
		t.Fatalf("join: %v", err)
	}

	if p, _ := s.Player("a"); p.Name != "Player 1" {
		t.Fatalf("expected default name, got %q", p.Name)
	}
}

func TestJoinRoomFull(t *testing.T) {
	m, channels := newTestMembership(2)
	s := NewState()

	for _, id := range []string{"a", "b"} {
		if err := m.Join(s, NewPlayer{ID: id, Name: id}, newFakeChannel()); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	if err := m.Join(s, NewPlayer{ID: "c", Name: "c"}, newFakeChannel()); err == nil {
		t.Fatalf("expected third join to fail")
	}
	if s.HasPlayer("c") || channels.Len() != 2 {
		t.Fatalf("rejected join should leave no trace, players=%v channels=%d", s.Players, channels.Len())
	}

	if err := m.Join(s, NewPlayer{ID: "a", Name: "a"}, newFakeChannel()); err != nil {
		t.Fatalf("reconnect of a seated player should bypass the limit: %v", err)
	}
}

func TestReconnectKeepsScore(t *testing.T) {
	m, channels := newTestMembership(0)
	s := NewState()

	first := newFakeChannel()
	if err := m.Join(s, NewPlayer{ID: "a", Name: "Ann"}, first); err != nil {
		t.Fatalf("join: %v", err)
	}
	s.Scores["a"] = 7

	second := newFakeChannel()
	if err := m.Join(s, NewPlayer{ID: "a", Name: "Ann"}, second); err != nil {
		t.Fatalf("rejoin: %v", err)
	}

	if !first.isClosed() {
		t.Fatalf("expected replaced channel to be closed")
	}
	if len(s.Players) != 1 || s.Scores["a"] != 7 {
		t.Fatalf("expected one player with score 7, got %v / %v", s.Players, s.Scores)
	}
	if ch, _ := channels.Get("a"); ch != second {
		t.Fatalf("expected new channel registered")
	}

	if m.Leave(s, "a", first) {
		t.Fatalf("stale channel closing should not remove the player")
	}
	if !s.HasPlayer("a") {
		t.Fatalf("expected a to remain seated")
	}
}

func TestLeaveRemovesAndBroadcasts(t *testing.T) {
	m, channels := newTestMembership(0)
	s := NewState()

	a, b := newFakeChannel(), newFakeChannel()
	_ = m.Join(s, NewPlayer{ID: "a", Name: "Ann"}, a)
	_ = m.Join(s, NewPlayer{ID: "b", Name: "Bo"}, b)
	a.drain()
	b.drain()

	if !m.Leave(s, "b", b) {
		t.Fatalf("expected leave to succeed")
	}

	if s.HasPlayer("b") {
		t.Fatalf("expected b removed")
	}
	if _, ok := s.Scores["b"]; ok {
		t.Fatalf("expected b's score removed")
	}
	if channels.Len() != 1 || !b.isClosed() {
		t.Fatalf("expected b's channel unregistered and closed")
	}

	snap, err := DecodePayload[State](a.next(t, MsgGameState))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Players) != 1 || snap.Players[0].ID != "a" {
		t.Fatalf("expected remaining replica to converge, got %v", snap.Players)
	}
}

func TestSyncDropsFailedChannels(t *testing.T) {
	m, channels := newTestMembership(0)
	s := NewState()

	a, b := newFakeChannel(), newFakeChannel()
	_ = m.Join(s, NewPlayer{ID: "a", Name: "Ann"}, a)
	_ = m.Join(s, NewPlayer{ID: "b", Name: "Bo"}, b)
	a.drain()

	b.failWith(ErrChannelFull)
	m.Sync(s)

	if s.HasPlayer("b") || channels.Len() != 1 {
		t.Fatalf("expected failed channel to be dropped, players=%v channels=%d", s.Players, channels.Len())
	}

	a.next(t, MsgGameState)
	snap, err := DecodePayload[State](a.next(t, MsgGameState))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Players) != 1 {
		t.Fatalf("expected follow-up snapshot without b, got %v", snap.Players)
	}
}

func TestHostLeavesPassesHost(t *testing.T) {
	m, _ := newTestMembership(0)
	s := NewState()

	a := newFakeChannel()
	_ = m.Join(s, NewPlayer{ID: "a", Name: "Ann"}, a)
	_ = m.Join(s, NewPlayer{ID: "b", Name: "Bo"}, newFakeChannel())
	_ = m.Join(s, NewPlayer{ID: "c", Name: "Cy"}, newFakeChannel())

	m.Leave(s, "a", a)

	if s.HostID != "b" || s.LoreLordID != "b" {
		t.Fatalf("expected b to take over, got host=%q lore lord=%q", s.HostID, s.LoreLordID)
	}
}

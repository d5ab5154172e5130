package lorelord

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func encodeState(t *testing.T, s *State) []byte {
	t.Helper()

	b, err := Encode(MsgGameState, s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	return b
}

func TestReplicaConvergesOnSnapshot(t *testing.T) {
	m := newTestMachine()
	s := newTestState("A", "B", "C")
	mustApply(t, m, s, "A", StartRound{})
	mustApply(t, m, s, "B", RevealProp{StorytellerID: "B", Index: 1})

	r := NewReplica(nil, nil)
	if err := r.Receive(encodeState(t, s)); err != nil {
		t.Fatalf("receive: %v", err)
	}

	want, _ := json.Marshal(s)
	got, _ := json.Marshal(r.State())
	if !bytes.Equal(want, got) {
		t.Fatalf("replica diverged:\nwant %s\ngot  %s", want, got)
	}
}

func TestReplicaReplacesWholesale(t *testing.T) {
	m := newTestMachine()
	s := newTestState("A", "B", "C")
	mustApply(t, m, s, "A", StartRound{})

	r := NewReplica(nil, nil)
	_ = r.Receive(encodeState(t, s))

	next := newTestState("X")
	_ = r.Receive(encodeState(t, next))

	got := r.State()
	if got.Phase != PhaseLobby || len(got.PropCards) != 0 || got.Prompt != "" {
		t.Fatalf("expected no leftovers from the earlier snapshot, got %+v", got)
	}
	if len(got.Players) != 1 || got.Players[0].ID != "X" {
		t.Fatalf("expected only X, got %v", got.Players)
	}
}

func TestReplicaLobbyUpdate(t *testing.T) {
	r := NewReplica(nil, nil)

	b, _ := Encode(MsgLobbyUpdate, LobbyUpdate{Players: []Participant{{ID: "a", Name: "Ann"}}})
	if err := r.Receive(b); err != nil {
		t.Fatalf("receive: %v", err)
	}

	if got := r.State().Players; len(got) != 1 || got[0].Name != "Ann" {
		t.Fatalf("expected roster applied, got %v", got)
	}
}

func TestReplicaRejectsUnknown(t *testing.T) {
	r := NewReplica(nil, nil)

	b, _ := Encode(MsgNewPlayer, NewPlayer{ID: "a"})
	if err := r.Receive(b); err == nil {
		t.Fatalf("expected newPlayer to be rejected by a replica")
	}
}

func TestReplicaNotifiesCopies(t *testing.T) {
	var updates []*State
	r := NewReplica(func(s *State) { updates = append(updates, s) }, nil)

	_ = r.Receive(encodeState(t, newTestState("A")))

	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}

	updates[0].Players[0].Name = "changed"
	if r.State().Players[0].Name != "A" {
		t.Fatalf("update should be a private copy")
	}
}

type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, format)
	for _, a := range args {
		if err, ok := a.(error); ok {
			l.lines = append(l.lines, err.Error())
		}
	}
}

func (l *logRecorder) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}

	return false
}

func TestEchoMatchingSnapshotIsQuiet(t *testing.T) {
	m := newTestMachine()
	s := newTestState("A", "B", "C")
	mustApply(t, m, s, "A", StartRound{})

	log := &logRecorder{}
	r := NewReplica(nil, log.logf)
	_ = r.Receive(encodeState(t, s))

	reveal := RevealProp{StorytellerID: "B", Index: 0}
	if !r.Echo("B", reveal) {
		t.Fatalf("expected reveal to be predicted")
	}

	if !r.State().IsRevealed("B", 0) {
		t.Fatalf("expected optimistic reveal to show immediately")
	}

	mustApply(t, m, s, "B", reveal)
	_ = r.Receive(encodeState(t, s))

	if log.contains("optimistic") {
		t.Fatalf("expected no desync, got %v", log.lines)
	}
	if len(r.pending) != 0 {
		t.Fatalf("expected reflected echo to be dropped, got %d pending", len(r.pending))
	}
}

func TestEchoSurvivesUnrelatedSnapshot(t *testing.T) {
	m := newTestMachine()
	s := newTestState("A", "B", "C")
	mustApply(t, m, s, "A", StartRound{})

	log := &logRecorder{}
	r := NewReplica(nil, log.logf)
	_ = r.Receive(encodeState(t, s))

	reveal := RevealProp{StorytellerID: "B", Index: 1}
	r.Echo("B", reveal)

	// Another storyteller's reveal lands before B's.
	mustApply(t, m, s, "C", RevealProp{StorytellerID: "C", Index: 0})
	_ = r.Receive(encodeState(t, s))

	if log.contains("optimistic") {
		t.Fatalf("expected no desync for an unrelated snapshot, got %v", log.lines)
	}
	local := r.State()
	if !local.IsRevealed("C", 0) {
		t.Fatalf("expected snapshot to be applied")
	}
	if !local.IsRevealed("B", 1) {
		t.Fatalf("expected pending reveal to stay visible")
	}

	mustApply(t, m, s, "B", reveal)
	_ = r.Receive(encodeState(t, s))

	if log.contains("optimistic") {
		t.Fatalf("expected no desync, got %v", log.lines)
	}
	if len(r.pending) != 0 {
		t.Fatalf("expected reflected echo to be dropped, got %d pending", len(r.pending))
	}
}

func TestEchoRejectedBySnapshot(t *testing.T) {
	m := newTestMachine()
	s := newTestState("A", "B", "C")
	mustApply(t, m, s, "A", StartRound{})

	log := &logRecorder{}
	r := NewReplica(nil, log.logf)
	_ = r.Receive(encodeState(t, s))

	r.Echo("B", SetTruth{StorytellerID: "B", IsTrue: true})
	if status := r.State().StoryStatus["B"]; !status.IsTrue {
		t.Fatalf("expected optimistic truth to show immediately")
	}

	// The authority settled B's story the other way first.
	mustApply(t, m, s, "B", SetTruth{StorytellerID: "B", IsTrue: false})
	_ = r.Receive(encodeState(t, s))

	if status := r.State().StoryStatus["B"]; status.IsTrue {
		t.Fatalf("snapshot should overwrite the optimistic truth")
	}
	if !log.contains("optimistic") {
		t.Fatalf("expected desync to be logged, got %v", log.lines)
	}
	if len(r.pending) != 0 {
		t.Fatalf("expected rejected echo to be dropped, got %d pending", len(r.pending))
	}
}

func TestEchoIgnoresUnpredictable(t *testing.T) {
	s := newTestState("A", "B", "C")

	r := NewReplica(nil, nil)
	_ = r.Receive(encodeState(t, s))

	if r.Echo("A", StartRound{}) {
		t.Fatalf("start depends on the authority's draws and must not be echoed")
	}
	if len(r.pending) != 0 {
		t.Fatalf("expected nothing pending")
	}
}

func TestReplicaChannelLoopback(t *testing.T) {
	r := NewReplica(nil, nil)
	ch := r.Channel()

	if err := ch.Send(encodeState(t, newTestState("A"))); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(r.State().Players) != 1 {
		t.Fatalf("expected loopback to feed the replica")
	}

	_ = ch.Close()
	if err := ch.Send(encodeState(t, newTestState("B"))); err != ErrChannelClosed {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestReplicatorConvergence(t *testing.T) {
	m := newTestMachine()
	s := newTestState("A", "B", "C")

	channels := NewChannelSet()
	replicas := make(map[string]*Replica)
	for _, id := range []string{"A", "B", "C"} {
		replicas[id] = NewReplica(nil, nil)
		channels.Register(id, replicas[id].Channel())
	}
	rep := NewReplicator(channels, nil)

	mustApply(t, m, s, "A", StartRound{})
	mustApply(t, m, s, "B", RevealProp{StorytellerID: "B", Index: 0})
	if errs := rep.Broadcast(s); len(errs) != 0 {
		t.Fatalf("broadcast: %v", errs)
	}

	want, _ := json.Marshal(s)
	for id, r := range replicas {
		got, _ := json.Marshal(r.State())
		if !bytes.Equal(want, got) {
			t.Fatalf("replica %s diverged:\nwant %s\ngot  %s", id, want, got)
		}
	}
}

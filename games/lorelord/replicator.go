package lorelord

import (
	"fmt"
	"sync"
)

// Replicator fans the authority's state out to every registered channel.
type Replicator struct {
	channels *ChannelSet
	logf     func(string, ...any)
}

func NewReplicator(channels *ChannelSet, logf func(string, ...any)) *Replicator {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Replicator{
		channels: channels,
		logf:     logf,
	}
}

// Broadcast sends a full snapshot of s to every channel. The returned errors
// are the channels that could not be written to.
func (r *Replicator) Broadcast(s *State) []error {
	b, err := Encode(MsgGameState, s)
	if err != nil {
		r.logf("GAMES: encode snapshot: %v", err)
		return nil
	}

	return r.channels.Broadcast(b)
}

// BroadcastRoster sends only the player list. Used while still in the lobby.
func (r *Replicator) BroadcastRoster(s *State) []error {
	b, err := Encode(MsgLobbyUpdate, LobbyUpdate{Players: s.Players})
	if err != nil {
		r.logf("GAMES: encode roster: %v", err)
		return nil
	}

	return r.channels.Broadcast(b)
}

// Replica is a participant's read-only copy of the game state. Every snapshot
// replaces it outright; nothing is merged.
type Replica struct {
	mu       sync.RWMutex
	state    *State
	pending  []echo
	onUpdate func(*State)
	logf     func(string, ...any)
}

type echo struct {
	actor  string
	action Action
}

// NewReplica returns an empty replica. onUpdate, if set, is called with a
// private copy after every change.
func NewReplica(onUpdate func(*State), logf func(string, ...any)) *Replica {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Replica{
		state:    NewState(),
		onUpdate: onUpdate,
		logf:     logf,
	}
}

// State returns a copy of the current local state.
func (r *Replica) State() *State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.Clone()
}

// Receive handles one frame from the authority.
func (r *Replica) Receive(b []byte) error {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return err
	}

	switch env.Type {
	case MsgGameState:
		next, err := DecodePayload[State](env)
		if err != nil {
			return err
		}
		r.replace(&next)
	case MsgLobbyUpdate:
		roster, err := DecodePayload[LobbyUpdate](env)
		if err != nil {
			return err
		}
		r.mutate(func(s *State) {
			s.Players = roster.Players
		})
	default:
		return fmt.Errorf("replica: %q: %w", env.Type, ErrUnknownMessage)
	}

	return nil
}

// Echo applies action a locally ahead of the authority so a UI can respond at once.
// It reports false, changing nothing, for actions that cannot be predicted or
// that the local state already rejects. An echoed action stays pending until
// a snapshot reflects it. Snapshots that do not yet reflect it keep it pending
// and re-apply it on top; one that rules it out drops it and logs a desync.
func (r *Replica) Echo(actor string, a Action) bool {
	r.mu.Lock()
	if !Predict(r.state, actor, a) {
		r.mu.Unlock()
		return false
	}
	r.pending = append(r.pending, echo{actor: actor, action: a})
	s := r.state.Clone()
	r.mu.Unlock()

	r.notify(s)

	return true
}

func (r *Replica) replace(next *State) {
	normalize(next)

	r.mu.Lock()
	r.state = next
	var kept []echo
	for _, e := range r.pending {
		switch {
		case reflected(next, e.action):
		case Predict(r.state, e.actor, e.action):
			kept = append(kept, e)
		default:
			r.logf("GAMES: %v", &DesyncError{Version: next.Version})
		}
	}
	r.pending = kept
	s := r.state.Clone()
	r.mu.Unlock()

	r.notify(s)
}

func (r *Replica) mutate(fn func(*State)) {
	r.mu.Lock()
	fn(r.state)
	s := r.state.Clone()
	r.mu.Unlock()

	r.notify(s)
}

func (r *Replica) notify(s *State) {
	if r.onUpdate != nil {
		r.onUpdate(s)
	}
}

// Channel returns a loopback Channel that feeds frames straight into the
// replica. The authority uses it for its own local participant.
func (r *Replica) Channel() Channel {
	return &replicaChannel{replica: r}
}

type replicaChannel struct {
	mu      sync.Mutex
	replica *Replica
	closed  bool
}

func (c *replicaChannel) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	if err := c.replica.Receive(b); err != nil {
		c.replica.logf("GAMES: %v", err)
	}

	return nil
}

func (c *replicaChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

// normalize fills maps a snapshot left out so replicas never hold nil maps.
func normalize(s *State) {
	if s.Players == nil {
		s.Players = []Participant{}
	}
	if s.StorytellerQueue == nil {
		s.StorytellerQueue = []string{}
	}
	if s.PropCards == nil {
		s.PropCards = make(map[string][]string)
	}
	if s.RevealedProps == nil {
		s.RevealedProps = make(map[string][]int)
	}
	if s.StoryStatus == nil {
		s.StoryStatus = make(map[string]StoryStatus)
	}
	if s.Scores == nil {
		s.Scores = make(map[string]int)
	}
}

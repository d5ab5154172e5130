package lorelord

import (
	"errors"
	"fmt"
	"slices"
)

// Membership applies joins and leaves to the authority's state and channel
// set, and rebroadcasts after each one.
type Membership struct {
	channels   *ChannelSet
	replicator *Replicator
	maxPlayers int
	logf       func(string, ...any)
}

func NewMembership(channels *ChannelSet, replicator *Replicator, maxPlayers int, logf func(string, ...any)) *Membership {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Membership{
		channels:   channels,
		replicator: replicator,
		maxPlayers: maxPlayers,
		logf:       logf,
	}
}

// Join completes the handshake for np arriving on ch. An id that is already
// registered has its old channel replaced and closed, keeping its score.
func (m *Membership) Join(s *State, np NewPlayer, ch Channel) error {
	if np.ID == "" {
		return errors.New("join: missing participant id")
	}

	if !s.HasPlayer(np.ID) && m.maxPlayers > 0 && len(s.Players) >= m.maxPlayers {
		return fmt.Errorf("join %q: room is full (%d players)", np.ID, m.maxPlayers)
	}

	if old := m.channels.Register(np.ID, ch); old != nil && old != ch {
		_ = old.Close()
		m.logf("GAMES: %q reconnected", np.ID)
	}

	if addPlayer(s, np.ID, np.Name) {
		m.logf("GAMES: %q joined as %q", np.ID, np.Name)
	}

	if s.Phase == PhaseLobby {
		m.drop(s, m.replicator.BroadcastRoster(s))
	}
	m.Sync(s)

	return nil
}

// Leave removes id if ch is still the channel registered for it. A stale
// channel closing after a reconnect is ignored.
func (m *Membership) Leave(s *State, id string, ch Channel) bool {
	cur, ok := m.channels.Get(id)
	if !ok || cur != ch {
		return false
	}

	m.channels.Unregister(id)
	_ = ch.Close()

	if removePlayer(s, id) {
		m.logf("GAMES: %q left", id)
	}
	if s.Phase == PhaseLobby {
		m.drop(s, m.replicator.BroadcastRoster(s))
	}
	m.Sync(s)

	return true
}

// Sync broadcasts the full state. Channels that fail are treated as closed:
// their participants are removed and the state is broadcast again.
func (m *Membership) Sync(s *State) {
	for {
		if !m.drop(s, m.replicator.Broadcast(s)) {
			return
		}
	}
}

// drop removes the participants behind failed sends and reports whether any
// state changed.
func (m *Membership) drop(s *State, errs []error) bool {
	changed := false
	for _, err := range errs {
		m.logf("GAMES: %v", err)

		var te *TransportError
		if !errors.As(err, &te) {
			continue
		}
		if ch, ok := m.channels.Unregister(te.ParticipantID); ok {
			_ = ch.Close()
		}
		if removePlayer(s, te.ParticipantID) {
			changed = true
		}
	}

	return changed
}

func addPlayer(s *State, id, name string) bool {
	if i := s.playerIndex(id); i >= 0 {
		if name != "" {
			s.Players[i].Name = name
		}
		return false
	}

	if name == "" {
		name = fmt.Sprintf("Player %d", len(s.Players)+1)
	}
	if _, ok := s.Scores[id]; !ok {
		s.Scores[id] = 0
	}
	s.Players = append(s.Players, Participant{ID: id, Name: name, Score: s.Scores[id]})

	if s.HostID == "" {
		s.HostID = id
	}
	if s.LoreLordID == "" {
		s.LoreLordID = id
	}
	s.Version++

	return true
}

func removePlayer(s *State, id string) bool {
	i := s.playerIndex(id)
	if i < 0 {
		return false
	}

	next := s.nextPlayerAfter(id)
	s.Players = slices.Delete(s.Players, i, i+1)
	delete(s.Scores, id)

	if s.LoreLordID == id {
		s.LoreLordID = ""
		if len(s.Players) > 0 {
			s.LoreLordID = next
		}
		if s.Phase == PhaseStorytelling || s.Phase == PhaseVoting {
			abandonRound(s)
		}
	}

	if s.HostID == id {
		s.HostID = ""
		if len(s.Players) > 0 {
			s.HostID = s.Players[0].ID
		}
	}
	s.Version++

	return true
}

// abandonRound ends a round whose lore lord left. The queue is cleared so the
// new lore lord is never also a storyteller.
func abandonRound(s *State) {
	s.Phase = PhaseRoundComplete
	s.StorytellerQueue = []string{}
	s.ActiveStorytellerID = ""
	s.WinnerID = ""
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lorelord

import (
	"slices"
)

// Phase is the round state of a game.
type Phase string

const (
	PhaseLobby         Phase = "lobby"
	PhaseStorytelling  Phase = "storytelling"
	PhaseVoting        Phase = "voting"
	PhaseRoundComplete Phase = "round_complete"
)

// Participant is one connected player.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// StoryStatus records whether a storyteller declared their story true.
type StoryStatus struct {
	IsTrue bool `json:"isTrue"`
}

// State is the full replicated game state. Only the authority mutates it;
// replicas replace their copy wholesale on every snapshot.
type State struct {
	Phase               Phase                  `json:"phase"`
	Players             []Participant          `json:"players"` // join order is turn order
	HostID              string                 `json:"hostId,omitempty"`
	LoreLordID          string                 `json:"loreLordId,omitempty"`
	Prompt              string                 `json:"prompt,omitempty"`
	StorytellerQueue    []string               `json:"storytellerQueue"`
	ActiveStorytellerID string                 `json:"activeStorytellerId,omitempty"`
	PropCards           map[string][]string    `json:"propCards"`
	RevealedProps       map[string][]int       `json:"revealedProps"`
	StoryStatus         map[string]StoryStatus `json:"storyStatus"`
	Scores              map[string]int         `json:"scores"`
	WinnerID            string                 `json:"winnerId,omitempty"`
	Round               int                    `json:"round"`
	Version             uint64                 `json:"version"`
}

// NewState returns an empty lobby.
func NewState() *State {
	return &State{
		Phase:            PhaseLobby,
		Players:          []Participant{},
		StorytellerQueue: []string{},
		PropCards:        make(map[string][]string),
		RevealedProps:    make(map[string][]int),
		StoryStatus:      make(map[string]StoryStatus),
		Scores:           make(map[string]int),
	}
}

// Player returns the participant with the given id.
func (s *State) Player(id string) (Participant, bool) {
	i := s.playerIndex(id)
	if i < 0 {
		return Participant{}, false
	}
	return s.Players[i], true
}

// PlayerByName returns the first participant with the given display name.
func (s *State) PlayerByName(name string) (Participant, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Participant{}, false
}

func (s *State) playerIndex(id string) int {
	return slices.IndexFunc(s.Players, func(p Participant) bool { return p.ID == id })
}

// HasPlayer reports whether id is a current player.
func (s *State) HasPlayer(id string) bool {
	return s.playerIndex(id) >= 0
}

// nextPlayerAfter returns the player following id in join order, wrapping.
// An id that is no longer present yields the first player.
func (s *State) nextPlayerAfter(id string) string {
	if len(s.Players) == 0 {
		return ""
	}
	i := s.playerIndex(id)
	return s.Players[(i+1)%len(s.Players)].ID
}

// IsRevealed reports whether storyteller id has turned over card index.
func (s *State) IsRevealed(id string, index int) bool {
	_, found := slices.BinarySearch(s.RevealedProps[id], index)
	return found
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Players = slices.Clone(s.Players)
	c.StorytellerQueue = slices.Clone(s.StorytellerQueue)

	c.PropCards = make(map[string][]string, len(s.PropCards))
	for id, cards := range s.PropCards {
		c.PropCards[id] = slices.Clone(cards)
	}

	c.RevealedProps = make(map[string][]int, len(s.RevealedProps))
	for id, idx := range s.RevealedProps {
		c.RevealedProps[id] = slices.Clone(idx)
	}

	c.StoryStatus = make(map[string]StoryStatus, len(s.StoryStatus))
	for id, st := range s.StoryStatus {
		c.StoryStatus[id] = st
	}

	c.Scores = make(map[string]int, len(s.Scores))
	for id, score := range s.Scores {
		c.Scores[id] = score
	}

	return &c
}

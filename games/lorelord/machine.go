package lorelord

import (
	"math/rand/v2"
	"slices"
)

// Machine validates and applies actions to a State. It is only ever driven by
// the authority, one action at a time.
type Machine struct {
	content Content
	rng     *rand.Rand
}

// NewMachine returns a Machine drawing prompts and props from content. A nil
// rng is replaced with a randomly seeded one.
func NewMachine(content Content, rng *rand.Rand) *Machine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Machine{
		content: content,
		rng:     rng,
	}
}

// Apply runs a on behalf of actor. A failed precondition returns a
// *ValidationError and leaves s untouched; on success s.Version is bumped.
func (m *Machine) Apply(s *State, actor string, a Action) error {
	if a == nil {
		return &ValidationError{Actor: actor, Reason: "nil action"}
	}
	if !s.HasPlayer(actor) {
		return reject(a, actor, "not a player")
	}

	var err error
	switch a := a.(type) {
	case StartRound:
		err = m.startRound(s, actor, a)
	case SetTruth:
		err = m.setTruth(s, actor, a)
	case RevealProp:
		err = m.revealProp(s, actor, a)
	case PickBestStory:
		err = m.pickBestStory(s, actor, a)
	case SkipTurn:
		err = m.skipTurn(s, actor, a)
	default:
		err = reject(a, actor, "unknown action")
	}
	if err != nil {
		return err
	}

	s.Version++

	return nil
}

func (m *Machine) startRound(s *State, actor string, a StartRound) error {
	if s.Phase != PhaseLobby && s.Phase != PhaseRoundComplete {
		return reject(a, actor, "phase is %s", s.Phase)
	}
	if actor != s.LoreLordID && actor != s.HostID {
		return reject(a, actor, "only the lore lord or host may start a round")
	}
	if !s.HasPlayer(s.LoreLordID) {
		return reject(a, actor, "no lore lord")
	}

	s.Prompt = m.draw(m.content.Prompts)

	queue := make([]string, 0, len(s.Players)-1)
	for _, p := range s.Players {
		if p.ID != s.LoreLordID {
			queue = append(queue, p.ID)
		}
	}
	s.StorytellerQueue = queue

	s.PropCards = make(map[string][]string, len(queue))
	for _, id := range queue {
		hand := make([]string, PropsPerHand)
		for i := range hand {
			hand[i] = m.draw(m.content.Props)
		}
		s.PropCards[id] = hand
	}

	s.RevealedProps = make(map[string][]int)
	s.StoryStatus = make(map[string]StoryStatus)
	s.WinnerID = ""

	s.ActiveStorytellerID = ""
	if len(queue) > 0 {
		s.ActiveStorytellerID = queue[0]
	}

	s.Phase = PhaseStorytelling
	s.Round++

	return nil
}

func (m *Machine) setTruth(s *State, actor string, a SetTruth) error {
	switch {
	case s.Phase != PhaseStorytelling:
		return reject(a, actor, "phase is %s", s.Phase)
	case a.StorytellerID != actor:
		return reject(a, actor, "cannot set truth for %q", a.StorytellerID)
	case a.StorytellerID == "" || a.StorytellerID != s.ActiveStorytellerID:
		return reject(a, actor, "not the active storyteller")
	}
	if _, told := s.StoryStatus[a.StorytellerID]; told {
		return reject(a, actor, "story already told")
	}

	s.StoryStatus[a.StorytellerID] = StoryStatus{IsTrue: a.IsTrue}
	advanceStoryteller(s)

	return nil
}

func (m *Machine) revealProp(s *State, actor string, a RevealProp) error {
	if s.Phase != PhaseStorytelling && s.Phase != PhaseVoting {
		return reject(a, actor, "phase is %s", s.Phase)
	}
	if a.StorytellerID != actor {
		return reject(a, actor, "cannot reveal cards of %q", a.StorytellerID)
	}

	cards := s.PropCards[a.StorytellerID]
	if a.Index < 0 || a.Index >= len(cards) {
		return reject(a, actor, "no prop at index %d", a.Index)
	}

	revealed := s.RevealedProps[a.StorytellerID]
	if i, found := slices.BinarySearch(revealed, a.Index); !found {
		s.RevealedProps[a.StorytellerID] = slices.Insert(revealed, i, a.Index)
	}

	return nil
}

func (m *Machine) pickBestStory(s *State, actor string, a PickBestStory) error {
	switch {
	case s.Phase != PhaseVoting:
		return reject(a, actor, "phase is %s", s.Phase)
	case actor != s.LoreLordID:
		return reject(a, actor, "only the lore lord may pick")
	case !slices.Contains(s.StorytellerQueue, a.WinnerID):
		return reject(a, actor, "%q was not a storyteller this round", a.WinnerID)
	}

	status, told := s.StoryStatus[a.WinnerID]
	if !told {
		return reject(a, actor, "%q never told a story", a.WinnerID)
	}

	i := s.playerIndex(a.WinnerID)
	if i < 0 {
		return reject(a, actor, "%q has left the game", a.WinnerID)
	}

	s.Scores[a.WinnerID] += StoryPoints(status, len(s.RevealedProps[a.WinnerID]))
	s.Players[i].Score = s.Scores[a.WinnerID]
	s.WinnerID = a.WinnerID
	s.Phase = PhaseRoundComplete
	s.LoreLordID = s.nextPlayerAfter(s.LoreLordID)

	return nil
}

func (m *Machine) skipTurn(s *State, actor string, a SkipTurn) error {
	switch {
	case s.Phase != PhaseStorytelling:
		return reject(a, actor, "phase is %s", s.Phase)
	case actor != s.LoreLordID && actor != s.HostID:
		return reject(a, actor, "only the lore lord or host may skip")
	case s.ActiveStorytellerID == "":
		return reject(a, actor, "no active storyteller")
	case s.HasPlayer(s.ActiveStorytellerID):
		return reject(a, actor, "%q is still playing", s.ActiveStorytellerID)
	}

	advanceStoryteller(s)

	return nil
}

// StoryPoints is the award for a winning story: 2 for a true story, 1 for an
// invented one, plus one per revealed prop.
func StoryPoints(status StoryStatus, revealed int) int {
	points := 1
	if status.IsTrue {
		points = 2
	}

	return points + revealed
}

// advanceStoryteller moves to the queue entry after the active one, entering
// voting once the queue is exhausted.
func advanceStoryteller(s *State) {
	next := ""
	if i := slices.Index(s.StorytellerQueue, s.ActiveStorytellerID); i >= 0 && i+1 < len(s.StorytellerQueue) {
		next = s.StorytellerQueue[i+1]
	}

	s.ActiveStorytellerID = next
	if next == "" {
		s.Phase = PhaseVoting
	}
}

func (m *Machine) draw(table []string) string {
	if len(table) == 0 {
		return ""
	}

	return table[m.rng.IntN(len(table))]
}

// Predict applies a locally originated action to a replica's copy when the
// outcome does not depend on the authority's draws. It reports whether s was
// changed.
func Predict(s *State, actor string, a Action) bool {
	switch a.(type) {
	case SetTruth, RevealProp:
		return (&Machine{}).Apply(s, actor, a) == nil
	default:
		return false
	}
}

// reflected reports whether s already shows the effect of a predictable
// action.
func reflected(s *State, a Action) bool {
	switch a := a.(type) {
	case SetTruth:
		status, told := s.StoryStatus[a.StorytellerID]
		return told && status.IsTrue == a.IsTrue
	case RevealProp:
		return s.IsRevealed(a.StorytellerID, a.Index)
	default:
		return false
	}
}

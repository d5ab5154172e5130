package lorelord

// ActionType tags an Action on the wire.
type ActionType string

const (
	ActionStartRound    ActionType = "startRound"
	ActionSetTruth      ActionType = "setTruth"
	ActionRevealProp    ActionType = "revealProp"
	ActionPickBestStory ActionType = "pickBestStory"
	ActionSkipTurn      ActionType = "skipTurn"
)

// Action is a player intent routed to the authority. The set of
// implementations is closed: only the types in this file satisfy it.
type Action interface {
	Type() ActionType
	action()
}

// StartRound deals a new round. Issued by the lore lord or the host.
type StartRound struct{}

// SetTruth ends the active storyteller's turn, recording whether the story was true.
type SetTruth struct {
	StorytellerID string `json:"storytellerId"`
	IsTrue        bool   `json:"isTrue"`
}

// RevealProp turns over one of a storyteller's own prop cards.
type RevealProp struct {
	StorytellerID string `json:"storytellerId"`
	Index         int    `json:"index"`
}

// PickBestStory is the lore lord's verdict for the round.
type PickBestStory struct {
	WinnerID string `json:"winnerId"`
}

// SkipTurn passes over an active storyteller who has left the game.
type SkipTurn struct{}

func (StartRound) Type() ActionType    { return ActionStartRound }
func (SetTruth) Type() ActionType      { return ActionSetTruth }
func (RevealProp) Type() ActionType    { return ActionRevealProp }
func (PickBestStory) Type() ActionType { return ActionPickBestStory }
func (SkipTurn) Type() ActionType      { return ActionSkipTurn }

func (StartRound) action()    {}
func (SetTruth) action()      {}
func (RevealProp) action()    {}
func (PickBestStory) action() {}
func (SkipTurn) action()      {}

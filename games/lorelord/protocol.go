package lorelord

import (
	"encoding/json"
	"fmt"
)

// MessageType tags an Envelope.
type MessageType string

const (
	MsgNewPlayer   MessageType = "newPlayer"   // client -> authority
	MsgLobbyUpdate MessageType = "lobbyUpdate" // authority -> clients
	MsgGameState   MessageType = "gameState"   // authority -> clients
	MsgAction      MessageType = "action"      // client -> authority
)

// Envelope is one frame on a channel.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewPlayer is the join handshake.
type NewPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LobbyUpdate is the pre-round roster.
type LobbyUpdate struct {
	Players []Participant `json:"players"`
}

// ActionMessage carries an Action to the authority.
type ActionMessage struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps payload in an envelope of type t.
func Encode(t MessageType, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode: %w", ErrUnknownMessage)
	}
	if payload == nil {
		return nil, fmt.Errorf("encode %s: %w", t, ErrEmptyMessage)
	}

	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}

	return json.Marshal(Envelope{Type: t, Payload: pb})
}

// DecodeEnvelope parses one frame.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyMessage
	}

	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	return e, nil
}

// DecodePayload unmarshals the payload of env into a T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("decode %s: %w", env.Type, ErrEmptyMessage)
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", env.Type, err)
	}

	return out, nil
}

// EncodeAction wraps a as an action envelope.
func EncodeAction(a Action) ([]byte, error) {
	pb, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", a.Type(), err)
	}

	return Encode(MsgAction, ActionMessage{Type: a.Type(), Payload: pb})
}

// DecodeAction turns an action envelope back into one of the closed set of Actions.
func DecodeAction(env Envelope) (Action, error) {
	msg, err := DecodePayload[ActionMessage](env)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case ActionStartRound:
		return StartRound{}, nil
	case ActionSkipTurn:
		return SkipTurn{}, nil
	case ActionSetTruth:
		return decodeActionPayload[SetTruth](msg)
	case ActionRevealProp:
		return decodeActionPayload[RevealProp](msg)
	case ActionPickBestStory:
		return decodeActionPayload[PickBestStory](msg)
	default:
		return nil, fmt.Errorf("action %q: %w", msg.Type, ErrUnknownMessage)
	}
}

func decodeActionPayload[T Action](msg ActionMessage) (Action, error) {
	var out T
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("decode %s: %w", msg.Type, ErrEmptyMessage)
	}
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.Type, err)
	}

	return out, nil
}

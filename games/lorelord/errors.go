package lorelord

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMessage indicates an envelope or action type this build does not know.
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrEmptyMessage indicates a zero-length frame or payload.
	ErrEmptyMessage = errors.New("empty message")
	// ErrChannelClosed indicates a send on a channel that has been closed.
	ErrChannelClosed = errors.New("channel closed")
	// ErrChannelFull indicates a peer that is not draining its channel.
	ErrChannelFull = errors.New("channel send buffer full")
	// ErrNotJoined indicates a message other than newPlayer on a channel with no participant.
	ErrNotJoined = errors.New("channel has not joined")
	// ErrNoUpstream indicates a replica with no authority channel.
	ErrNoUpstream = errors.New("no authority channel")
)

// ValidationError is an action whose precondition failed. The authority drops
// it; it is only ever logged.
type ValidationError struct {
	Action ActionType
	Actor  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("drop %s from %q: %s", e.Action, e.Actor, e.Reason)
}

func reject(a Action, actor, format string, args ...any) error {
	return &ValidationError{
		Action: a.Type(),
		Actor:  actor,
		Reason: fmt.Sprintf(format, args...),
	}
}

// TransportError is a channel-level failure. The channel is treated as closed.
type TransportError struct {
	ParticipantID string
	Err           error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("channel %q: %v", e.ParticipantID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DesyncError reports an optimistic local state that an authoritative
// snapshot disagreed with. The snapshot always wins.
type DesyncError struct {
	Version uint64
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("optimistic state overwritten by snapshot %d", e.Version)
}

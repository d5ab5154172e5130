package lorelord

import (
	"slices"
	"sync"
)

// Channel is one point-to-point link to another participant. Send must not
// block on the remote end; a slow or dead peer returns an error instead.
type Channel interface {
	Send([]byte) error
	Close() error
}

// ChannelSet holds the active channels keyed by participant id. Broadcast
// order follows registration order.
type ChannelSet struct {
	mu       sync.RWMutex
	channels map[string]Channel
	order    []string
}

func NewChannelSet() *ChannelSet {
	return &ChannelSet{
		channels: make(map[string]Channel),
	}
}

// Register binds ch to id, returning any channel it replaced.
func (cs *ChannelSet) Register(id string, ch Channel) Channel {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	old, ok := cs.channels[id]
	if !ok {
		cs.order = append(cs.order, id)
	}
	cs.channels[id] = ch

	return old
}

// Unregister drops id, returning its channel if it had one.
func (cs *ChannelSet) Unregister(id string) (Channel, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	ch, ok := cs.channels[id]
	if !ok {
		return nil, false
	}
	delete(cs.channels, id)
	cs.order = slices.DeleteFunc(cs.order, func(s string) bool { return s == id })

	return ch, true
}

// Get returns the channel bound to id.
func (cs *ChannelSet) Get(id string) (Channel, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	ch, ok := cs.channels[id]

	return ch, ok
}

// IDs returns the registered participant ids in registration order.
func (cs *ChannelSet) IDs() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return slices.Clone(cs.order)
}

func (cs *ChannelSet) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return len(cs.channels)
}

// SendTo delivers msg to a single participant.
func (cs *ChannelSet) SendTo(id string, msg []byte) error {
	ch, ok := cs.Get(id)
	if !ok {
		return &TransportError{ParticipantID: id, Err: ErrChannelClosed}
	}
	if err := ch.Send(msg); err != nil {
		return &TransportError{ParticipantID: id, Err: err}
	}

	return nil
}

// Broadcast delivers msg to every channel and returns one TransportError per
// channel that failed. Failed channels stay registered; the caller decides.
func (cs *ChannelSet) Broadcast(msg []byte) []error {
	var errs []error
	for _, id := range cs.IDs() {
		if err := cs.SendTo(id, msg); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// CloseAll closes and forgets every channel.
func (cs *ChannelSet) CloseAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, ch := range cs.channels {
		_ = ch.Close()
	}
	cs.channels = make(map[string]Channel)
	cs.order = nil
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lorelord

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

const defaultInboxSize = 256

var errAuthorityStopped = errors.New("authority stopped")

// Options configures an Authority.
type Options struct {
	Content    Content
	Rand       *rand.Rand
	MaxPlayers int
	InboxSize  int
	Logf       func(format string, args ...any)
}

// Authority owns the canonical State of one game. Every join, leave and
// action is funneled through a single goroutine (Run), so two mutations
// never interleave.
type Authority struct {
	inbox chan any
	done  chan struct{}

	state      *State
	machine    *Machine
	channels   *ChannelSet
	replicator *Replicator
	members    *Membership
	logf       func(string, ...any)

	lastActive atomic.Int64
}

type joinCommand struct {
	peer *Peer
	msg  NewPlayer
}

type leaveCommand struct {
	peer *Peer
}

type actionCommand struct {
	peer   *Peer
	action Action
}

type snapshotCommand struct {
	reply chan *State
}

func NewAuthority(opts Options) *Authority {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	content := opts.Content
	if len(content.Prompts) == 0 && len(content.Props) == 0 {
		content = DefaultContent()
	}

	size := opts.InboxSize
	if size <= 0 {
		size = defaultInboxSize
	}

	channels := NewChannelSet()
	replicator := NewReplicator(channels, logf)

	a := &Authority{
		inbox:      make(chan any, size),
		done:       make(chan struct{}),
		state:      NewState(),
		machine:    NewMachine(content, opts.Rand),
		channels:   channels,
		replicator: replicator,
		members:    NewMembership(channels, replicator, opts.MaxPlayers, logf),
		logf:       logf,
	}
	a.touch()

	return a
}

// Run processes commands until ctx is cancelled, then closes every channel.
func (a *Authority) Run(ctx context.Context) {
	defer close(a.done)
	defer a.channels.CloseAll()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.inbox:
			a.touch()
			a.handle(cmd)
		}
	}
}

// Done is closed once Run has returned.
func (a *Authority) Done() <-chan struct{} {
	return a.done
}

func (a *Authority) handle(cmd any) {
	switch c := cmd.(type) {
	case joinCommand:
		a.handleJoin(c)
	case leaveCommand:
		a.handleLeave(c)
	case actionCommand:
		a.handleAction(c)
	case snapshotCommand:
		c.reply <- a.state.Clone()
	}
}

func (a *Authority) handleJoin(c joinCommand) {
	if c.peer.id != "" && c.peer.id != c.msg.ID {
		a.logf("GAMES: channel for %q tried to join as %q", c.peer.id, c.msg.ID)
		return
	}
	if c.peer.id != "" && !a.current(c.peer) {
		a.logf("GAMES: %q: newPlayer on a replaced channel", c.peer.id)
		return
	}

	if err := a.members.Join(a.state, c.msg, c.peer.ch); err != nil {
		a.logf("GAMES: %v", err)
		_ = c.peer.ch.Close()
		return
	}

	c.peer.id = c.msg.ID
}

func (a *Authority) handleLeave(c leaveCommand) {
	if c.peer.id == "" {
		_ = c.peer.ch.Close()
		return
	}

	a.members.Leave(a.state, c.peer.id, c.peer.ch)
}

func (a *Authority) handleAction(c actionCommand) {
	if c.peer.id == "" {
		a.logf("GAMES: %s: %v", c.action.Type(), ErrNotJoined)
		return
	}
	if !a.current(c.peer) {
		a.logf("GAMES: %q: %s on a replaced channel", c.peer.id, c.action.Type())
		return
	}

	if err := a.machine.Apply(a.state, c.peer.id, c.action); err != nil {
		a.logf("GAMES: %v", err)
		return
	}

	a.logf("GAMES: %q applied %s (version %d)", c.peer.id, c.action.Type(), a.state.Version)
	a.members.Sync(a.state)
}

// current reports whether p's channel is still the one registered for its
// participant. A reconnect leaves the old Peer bound to an evicted channel.
func (a *Authority) current(p *Peer) bool {
	ch, ok := a.channels.Get(p.id)
	return ok && ch == p.ch
}

// enqueue hands cmd to Run without blocking once the authority has stopped.
func (a *Authority) enqueue(cmd any) error {
	select {
	case <-a.done:
		return errAuthorityStopped
	default:
	}

	select {
	case a.inbox <- cmd:
		return nil
	case <-a.done:
		return errAuthorityStopped
	}
}

// Snapshot returns a copy of the canonical state as of the moment Run gets to
// the request.
func (a *Authority) Snapshot(ctx context.Context) (*State, error) {
	reply := make(chan *State, 1)
	if err := a.enqueue(snapshotCommand{reply: reply}); err != nil {
		return nil, err
	}

	select {
	case s := <-reply:
		return s, nil
	case <-a.done:
		return nil, errAuthorityStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NumPlayers is the number of registered channels.
func (a *Authority) NumPlayers() int {
	return a.channels.Len()
}

// LastActive is when the authority last processed a command.
func (a *Authority) LastActive() time.Time {
	return time.Unix(0, a.lastActive.Load())
}

func (a *Authority) touch() {
	a.lastActive.Store(time.Now().UnixNano())
}

// Connect attaches a freshly opened channel. The returned Peer is how the
// transport feeds frames and the close event back in.
func (a *Authority) Connect(ch Channel) *Peer {
	return &Peer{authority: a, ch: ch}
}

// Peer is the authority's end of one channel. Its participant id is bound by
// the join handshake and only ever read or written by Run.
type Peer struct {
	authority *Authority
	ch        Channel
	id        string
}

// Receive decodes a frame and queues it for the authority. Frames that do not
// decode are logged and dropped.
func (p *Peer) Receive(b []byte) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		p.authority.logf("GAMES: %v", err)
		return
	}

	switch env.Type {
	case MsgNewPlayer:
		msg, err := DecodePayload[NewPlayer](env)
		if err != nil {
			p.authority.logf("GAMES: %v", err)
			return
		}
		_ = p.Join(msg.ID, msg.Name)
	case MsgAction:
		action, err := DecodeAction(env)
		if err != nil {
			p.authority.logf("GAMES: %v", err)
			return
		}
		_ = p.Submit(action)
	default:
		p.authority.logf("GAMES: %v", fmt.Errorf("authority: %q: %w", env.Type, ErrUnknownMessage))
	}
}

// Join queues the handshake for this channel.
func (p *Peer) Join(id, name string) error {
	return p.authority.enqueue(joinCommand{peer: p, msg: NewPlayer{ID: id, Name: name}})
}

// Submit queues an action from this channel's participant.
func (p *Peer) Submit(a Action) error {
	if a == nil {
		return errors.New("submit: nil action")
	}

	return p.authority.enqueue(actionCommand{peer: p, action: a})
}

// Close queues removal of this channel's participant.
func (p *Peer) Close() {
	_ = p.authority.enqueue(leaveCommand{peer: p})
}

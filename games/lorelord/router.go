package lorelord

import (
	"fmt"
)

// Router delivers a locally originated action to the authority. Nothing
// comes back; the result is observed through the next snapshot.
type Router interface {
	Route(Action) error
}

// UpstreamRouter is the client side: every action goes out on the one channel
// a replica holds to its authority.
type UpstreamRouter struct {
	upstream Channel
}

func NewUpstreamRouter(upstream Channel) *UpstreamRouter {
	return &UpstreamRouter{upstream: upstream}
}

// Join sends the newPlayer handshake.
func (r *UpstreamRouter) Join(id, name string) error {
	if r.upstream == nil {
		return ErrNoUpstream
	}

	b, err := Encode(MsgNewPlayer, NewPlayer{ID: id, Name: name})
	if err != nil {
		return err
	}

	return r.upstream.Send(b)
}

func (r *UpstreamRouter) Route(a Action) error {
	if r.upstream == nil {
		return ErrNoUpstream
	}

	b, err := EncodeAction(a)
	if err != nil {
		return err
	}
	if err := r.upstream.Send(b); err != nil {
		return fmt.Errorf("route %s: %w", a.Type(), err)
	}

	return nil
}

// LocalRouter is the authority's own participant. Its actions enter the same
// inbox as those arriving over the network.
type LocalRouter struct {
	peer *Peer
}

func NewLocalRouter(peer *Peer) *LocalRouter {
	return &LocalRouter{peer: peer}
}

func (r *LocalRouter) Route(a Action) error {
	return r.peer.Submit(a)
}

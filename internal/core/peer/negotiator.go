// Package peer drives the offer/answer/candidate exchange for one match.
// A Negotiator lives for exactly one pairing: it is created on match-found
// and closed on stop, next or partner-left. The signaling relay is its only
// communication medium.
package peer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/peerdrop/roulette/internal/core/domain"
	"github.com/peerdrop/roulette/internal/core/port"
	"github.com/rs/zerolog/log"
)

type State string

const (
	StateNew             State = "new"
	StateHaveLocalOffer  State = "have-local-offer"
	StateHaveRemoteOffer State = "have-remote-offer"
	StateStable          State = "stable"
	StateClosed          State = "closed"
)

// Config carries the collaborators a negotiation needs at construction.
// Send relays a payload to the matched partner. OnRemote fires once, for
// the first incoming media stream.
type Config struct {
	Link      port.PeerLink
	Media     port.MediaSource
	Send      func(domain.Signal)
	OnRemote  func(port.RemoteStream)
	Initiator bool
}

type Negotiator struct {
	mu   sync.Mutex
	link port.PeerLink
	send func(domain.Signal)

	state         State
	remoteSet     bool
	answerPending bool
	pending       []json.RawMessage
	remote        port.RemoteStream
	onRemote      func(port.RemoteStream)
}

// Start wires a fresh negotiation. The local tracks are attached before any
// description is generated; the initiator side kicks off the offer
// asynchronously.
func Start(ctx context.Context, cfg Config) (*Negotiator, error) {
	if cfg.Link == nil || cfg.Send == nil {
		return nil, errors.New("peer: link and send are required")
	}

	n := &Negotiator{
		link:     cfg.Link,
		send:     cfg.Send,
		onRemote: cfg.OnRemote,
		state:    StateNew,
	}

	if cfg.Media != nil {
		for _, t := range cfg.Media.Tracks() {
			if err := cfg.Link.AddTrack(t); err != nil {
				cfg.Link.Close()
				return nil, err
			}
		}
	}

	cfg.Link.OnCandidate(n.localCandidate)
	cfg.Link.OnRemoteStream(n.remoteStream)

	if cfg.Initiator {
		go n.sendOffer(ctx)
	}
	return n, nil
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// HandleSignal applies one relayed payload. Out-of-order payloads are
// ignored: the protocol has no recovery handshake, so there is nothing
// better to do than log and move on.
func (n *Negotiator) HandleSignal(ctx context.Context, sig domain.Signal) {
	switch sig.Type {
	case domain.SignalOffer:
		n.mu.Lock()
		if n.state != StateNew {
			log.Debug().Str("state", string(n.state)).Msg("Ignoring offer outside new state")
			n.mu.Unlock()
			return
		}
		n.state = StateHaveRemoteOffer
		n.mu.Unlock()
		go n.acceptOffer(ctx, sig.SDP)

	case domain.SignalAnswer:
		n.mu.Lock()
		if n.state != StateHaveLocalOffer || n.answerPending {
			log.Debug().Str("state", string(n.state)).Msg("Ignoring answer outside have-local-offer state")
			n.mu.Unlock()
			return
		}
		n.answerPending = true
		n.mu.Unlock()
		go n.acceptAnswer(sig.SDP)

	case domain.SignalCandidate:
		n.mu.Lock()
		if n.state == StateClosed {
			n.mu.Unlock()
			return
		}
		if !n.remoteSet {
			// Candidates may outrun the description that makes them
			// applicable. Hold them until the remote description commits.
			n.pending = append(n.pending, sig.Candidate)
			n.mu.Unlock()
			return
		}
		n.mu.Unlock()
		if err := n.link.AddICECandidate(sig.Candidate); err != nil {
			log.Debug().Err(err).Msg("Discarding ICE candidate")
		}

	default:
		log.Debug().Str("type", string(sig.Type)).Msg("Ignoring unknown signal type")
	}
}

// Close tears the negotiation down. Any asynchronous step still in flight
// finds the state terminal when it completes and discards its result.
func (n *Negotiator) Close() {
	n.mu.Lock()
	if n.state == StateClosed {
		n.mu.Unlock()
		return
	}
	n.state = StateClosed
	n.remote = nil
	n.pending = nil
	n.onRemote = nil
	n.mu.Unlock()

	if err := n.link.Close(); err != nil {
		log.Debug().Err(err).Msg("Error closing peer link")
	}
}

func (n *Negotiator) sendOffer(ctx context.Context) {
	sdp, err := n.link.CreateOffer(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Creating offer failed")
		return
	}

	n.mu.Lock()
	if n.state != StateNew {
		n.mu.Unlock()
		return
	}
	n.state = StateHaveLocalOffer
	n.mu.Unlock()

	n.send(domain.NewOffer(sdp))
}

func (n *Negotiator) acceptOffer(ctx context.Context, sdp json.RawMessage) {
	if err := n.link.SetRemoteDescription(sdp); err != nil {
		log.Debug().Err(err).Msg("Applying remote offer failed")
		return
	}
	n.flushCandidates()

	answer, err := n.link.CreateAnswer(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Creating answer failed")
		return
	}

	n.mu.Lock()
	if n.state != StateHaveRemoteOffer {
		n.mu.Unlock()
		return
	}
	n.state = StateStable
	n.mu.Unlock()

	n.send(domain.NewAnswer(answer))
}

func (n *Negotiator) acceptAnswer(sdp json.RawMessage) {
	if err := n.link.SetRemoteDescription(sdp); err != nil {
		log.Debug().Err(err).Msg("Applying remote answer failed")
		n.mu.Lock()
		n.answerPending = false
		n.mu.Unlock()
		return
	}

	n.mu.Lock()
	if n.state == StateHaveLocalOffer {
		n.state = StateStable
	}
	n.mu.Unlock()

	n.flushCandidates()
}

// flushCandidates marks the remote description committed and applies every
// candidate buffered before it, in arrival order.
func (n *Negotiator) flushCandidates() {
	n.mu.Lock()
	if n.state == StateClosed {
		n.mu.Unlock()
		return
	}
	n.remoteSet = true
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, c := range pending {
		if err := n.link.AddICECandidate(c); err != nil {
			log.Debug().Err(err).Msg("Discarding buffered ICE candidate")
		}
	}
}

func (n *Negotiator) localCandidate(c json.RawMessage) {
	n.mu.Lock()
	if n.state == StateClosed {
		n.mu.Unlock()
		return
	}
	send := n.send
	n.mu.Unlock()

	send(domain.NewCandidate(c))
}

func (n *Negotiator) remoteStream(s port.RemoteStream) {
	n.mu.Lock()
	if n.state == StateClosed || n.remote != nil {
		n.mu.Unlock()
		return
	}
	n.remote = s
	cb := n.onRemote
	n.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

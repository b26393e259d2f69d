package domain

import "encoding/json"

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
)

// Signal is one negotiation payload exchanged between two matched peers.
// SDP and Candidate are opaque to everything except the peer negotiation
// layer; the server relays them without looking inside.
type Signal struct {
	Type      SignalType      `json:"type"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func NewOffer(sdp json.RawMessage) Signal {
	return Signal{Type: SignalOffer, SDP: sdp}
}

func NewAnswer(sdp json.RawMessage) Signal {
	return Signal{Type: SignalAnswer, SDP: sdp}
}

func NewCandidate(candidate json.RawMessage) Signal {
	return Signal{Type: SignalCandidate, Candidate: candidate}
}

package port

import (
	"context"
	"encoding/json"
)

// LocalTrack is one outbound media track. The concrete type belongs to the
// media adapter; the core only cares that it exists and what kind it is.
type LocalTrack interface {
	Kind() string
}

// RemoteStream is an inbound media stream surfaced by the peer link.
type RemoteStream interface {
	ID() string
	Kind() string
}

// MediaSource owns the local capture tracks. It is acquired once per client
// process and reused across matches; Close releases it at teardown only.
type MediaSource interface {
	Tracks() []LocalTrack
	Close() error
}

// PeerLink wraps one native peer connection. Session descriptions and ICE
// candidates cross this boundary as raw JSON so the negotiation core never
// depends on the underlying WebRTC implementation.
//
// CreateOffer and CreateAnswer both commit the generated description as the
// local description before returning it. CreateAnswer requires that a remote
// description has been set.
type PeerLink interface {
	AddTrack(t LocalTrack) error
	OnCandidate(fn func(candidate json.RawMessage))
	OnRemoteStream(fn func(stream RemoteStream))
	CreateOffer(ctx context.Context) (json.RawMessage, error)
	CreateAnswer(ctx context.Context) (json.RawMessage, error)
	SetRemoteDescription(sdp json.RawMessage) error
	AddICECandidate(candidate json.RawMessage) error
	Close() error
}

// LinkFactory builds a fresh PeerLink for each match.
type LinkFactory func() (PeerLink, error)

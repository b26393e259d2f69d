// Package pion implements the peer-link and media ports on top of
// pion/webrtc. Descriptions and candidates cross the port boundary as raw
// JSON in the shape the browser APIs use, so a web peer on the other side
// of the relay understands them as-is.
package pion

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/peerdrop/roulette/internal/core/domain"
	"github.com/peerdrop/roulette/internal/core/port"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Config lists the network-traversal helpers handed to every peer
// connection. This is deployment configuration, not protocol.
type Config struct {
	STUNServers  []string
	TURNServers  []string
	TURNUsername string
	TURNPassword string
}

func (c Config) iceServers() []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if len(c.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNServers})
	}
	if len(c.TURNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.TURNServers,
			Username:   c.TURNUsername,
			Credential: c.TURNPassword,
		})
	}
	return servers
}

// Link wraps one webrtc.PeerConnection behind port.PeerLink.
type Link struct {
	pc *webrtc.PeerConnection

	mu      sync.Mutex
	streams map[string]bool
}

var _ port.PeerLink = (*Link)(nil)

func NewLink(cfg Config) (*Link, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: cfg.iceServers(),
	})
	if err != nil {
		return nil, err
	}
	return &Link{pc: pc, streams: make(map[string]bool)}, nil
}

// Factory returns a port.LinkFactory building one Link per match.
func Factory(cfg Config) port.LinkFactory {
	return func() (port.PeerLink, error) {
		return NewLink(cfg)
	}
}

func (l *Link) AddTrack(t port.LocalTrack) error {
	lt, ok := t.(*LocalTrack)
	if !ok {
		return domain.ErrBadTrack
	}
	_, err := l.pc.AddTrack(lt.track)
	return err
}

func (l *Link) OnCandidate(fn func(candidate json.RawMessage)) {
	l.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal candidate")
			return
		}
		fn(raw)
	})
}

func (l *Link) OnRemoteStream(fn func(stream port.RemoteStream)) {
	l.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		// One callback per stream, not per track.
		l.mu.Lock()
		seen := l.streams[track.StreamID()]
		l.streams[track.StreamID()] = true
		l.mu.Unlock()
		if seen {
			return
		}
		fn(&RemoteStream{
			id:    track.StreamID(),
			kind:  track.Kind().String(),
			track: track,
		})
	})
}

func (l *Link) CreateOffer(ctx context.Context) (json.RawMessage, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return json.Marshal(l.pc.LocalDescription())
}

func (l *Link) CreateAnswer(ctx context.Context) (json.RawMessage, error) {
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return json.Marshal(l.pc.LocalDescription())
}

func (l *Link) SetRemoteDescription(sdp json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(sdp, &desc); err != nil {
		return err
	}
	return l.pc.SetRemoteDescription(desc)
}

func (l *Link) AddICECandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return err
	}
	return l.pc.AddICECandidate(init)
}

func (l *Link) Close() error {
	return l.pc.Close()
}

// RemoteStream hands the first track of an incoming stream to the client.
type RemoteStream struct {
	id    string
	kind  string
	track *webrtc.TrackRemote
}

func (s *RemoteStream) ID() string   { return s.id }
func (s *RemoteStream) Kind() string { return s.kind }

// Track exposes the underlying pion track for consumers that render or
// record the media.
func (s *RemoteStream) Track() *webrtc.TrackRemote { return s.track }

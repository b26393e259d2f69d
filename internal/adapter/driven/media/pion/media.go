package pion

import (
	"fmt"

	"github.com/peerdrop/roulette/internal/core/port"
	"github.com/pion/webrtc/v4"
)

// LocalTrack adapts a pion local track to the port interface.
type LocalTrack struct {
	track webrtc.TrackLocal
	kind  string
}

func (t *LocalTrack) Kind() string { return t.kind }

// MediaSource owns the outbound tracks for the whole client lifetime; the
// same tracks are re-attached to every new peer connection rather than
// reacquired per match. Capture itself happens elsewhere: whoever produces
// frames writes samples into AudioTrack and VideoTrack.
type MediaSource struct {
	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample
}

var _ port.MediaSource = (*MediaSource)(nil)

func NewMediaSource() (*MediaSource, error) {
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "roulette",
	)
	if err != nil {
		return nil, fmt.Errorf("creating audio track: %w", err)
	}
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "roulette",
	)
	if err != nil {
		return nil, fmt.Errorf("creating video track: %w", err)
	}
	return &MediaSource{audio: audio, video: video}, nil
}

func (m *MediaSource) Tracks() []port.LocalTrack {
	return []port.LocalTrack{
		&LocalTrack{track: m.audio, kind: "audio"},
		&LocalTrack{track: m.video, kind: "video"},
	}
}

func (m *MediaSource) AudioTrack() *webrtc.TrackLocalStaticSample { return m.audio }
func (m *MediaSource) VideoTrack() *webrtc.TrackLocalStaticSample { return m.video }

func (m *MediaSource) Close() error { return nil }

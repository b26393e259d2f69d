package domain

import "errors"

var (
	ErrMediaUnavailable = errors.New("local media unavailable")
	ErrPeerClosed       = errors.New("peer connection closed")
	ErrBadTrack         = errors.New("unsupported local track implementation")
	ErrNotConnected     = errors.New("signaling connection not established")
)

// Package protocol defines the JSON envelope carried on the signaling
// websocket. Both the server and the reference client speak it.
package protocol

import "encoding/json"

type EventType string

// Client to server.
const (
	EventFindMatch EventType = "find-match"
	EventSignal    EventType = "signal"
	EventLeave     EventType = "leave"
)

// Server to client.
const (
	EventMatchFound  EventType = "match-found"
	EventPartnerLeft EventType = "partner-left"
)

// Envelope is the single message shape for both directions. Unused fields
// are omitted on the wire. Signal stays a raw blob end to end; the server
// forwards it without decoding.
type Envelope struct {
	Event     EventType       `json:"event"`
	Target    string          `json:"target,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	PartnerID string          `json:"partnerId,omitempty"`
	Initiator bool            `json:"initiator,omitempty"`
	Signal    json.RawMessage `json:"signal,omitempty"`
}

// Package client implements the reference client: a websocket signaling
// connection plus the session orchestration that turns relayed events into
// peer negotiations.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peerdrop/roulette/internal/core/domain"
	"github.com/peerdrop/roulette/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Signaling manages the websocket connection to the server. Incoming
// envelopes are delivered on a single channel in wire order.
type Signaling struct {
	serverURL string
	conn      *websocket.Conn
	incoming  chan protocol.Envelope
	outgoing  chan protocol.Envelope
	done      chan struct{}
	once      sync.Once
}

func NewSignaling(serverURL string) *Signaling {
	return &Signaling{
		serverURL: serverURL,
		incoming:  make(chan protocol.Envelope, 32),
		outgoing:  make(chan protocol.Envelope, 32),
		done:      make(chan struct{}),
	}
}

func (s *Signaling) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.serverURL, nil)
	if err != nil {
		return fmt.Errorf("connecting to signaling server: %w", err)
	}
	s.conn = conn

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go s.readPump()
	go s.writePump()
	return nil
}

// Incoming is closed when the connection drops.
func (s *Signaling) Incoming() <-chan protocol.Envelope {
	return s.incoming
}

func (s *Signaling) Send(env protocol.Envelope) error {
	select {
	case s.outgoing <- env:
		return nil
	case <-s.done:
		return domain.ErrNotConnected
	}
}

func (s *Signaling) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Signaling) readPump() {
	defer func() {
		s.conn.Close()
		close(s.incoming)
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var env protocol.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			return
		}
		s.incoming <- env
	}
}

func (s *Signaling) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case env := <-s.outgoing:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

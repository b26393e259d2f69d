package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peerdrop/roulette/internal/core/domain"
	"github.com/peerdrop/roulette/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Big enough for any SDP blob.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: only for dev
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errSendBufferFull = errors.New("client send buffer full")

// WSClient is the outbound side of one websocket session. It implements
// port.Client: the matchmaker enqueues envelopes, a single write pump
// goroutine drains them, which keeps per-connection delivery ordered.
type WSClient struct {
	conn *websocket.Conn
	send chan protocol.Envelope
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		conn: conn,
		send: make(chan protocol.Envelope, 32),
		done: make(chan struct{}),
	}
}

func (c *WSClient) SendMatchFound(partner domain.SessionID, initiator bool) error {
	return c.enqueue(protocol.Envelope{
		Event:     protocol.EventMatchFound,
		PartnerID: partner.String(),
		Initiator: initiator,
	})
}

func (c *WSClient) SendSignal(sender domain.SessionID, payload json.RawMessage) error {
	return c.enqueue(protocol.Envelope{
		Event:  protocol.EventSignal,
		Sender: sender.String(),
		Signal: payload,
	})
}

func (c *WSClient) SendPartnerLeft() error {
	return c.enqueue(protocol.Envelope{Event: protocol.EventPartnerLeft})
}

func (c *WSClient) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *WSClient) enqueue(env protocol.Envelope) error {
	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return errSendBufferFull
	default:
		return errSendBufferFull
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := newWSClient(conn)
	go client.writePump()

	id := h.Matchmaker.Register(client)

	l := log.With().Str("session_id", id.String()).Logger()
	l.Info().Msg("New client connected")

	defer func() {
		l.Info().Msg("Client disconnected")
		h.Matchmaker.Unregister(id)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}

		switch env.Event {
		case protocol.EventFindMatch:
			h.Matchmaker.FindMatch(id)

		case protocol.EventSignal:
			if env.Target == "" {
				l.Debug().Msg("Signal without target, dropping")
				continue
			}
			h.Matchmaker.Relay(id, domain.SessionID(env.Target), env.Signal)

		case protocol.EventLeave:
			h.Matchmaker.Leave(id)

		default:
			l.Debug().Str("event", string(env.Event)).Msg("Unknown event")
		}
	}
}

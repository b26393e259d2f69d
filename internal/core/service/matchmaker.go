package service

import (
	"encoding/json"

	"github.com/peerdrop/roulette/internal/core/domain"
	"github.com/peerdrop/roulette/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Matchmaker owns every piece of server-side matchmaking state: the
// connection registry, the FIFO waiting queue and the active rooms. All
// mutation happens on the single goroutine running Run, so none of it is
// locked; the exported methods only push work onto channels.
type Matchmaker struct {
	sessions map[domain.SessionID]*session
	queue    []domain.SessionID
	rooms    map[domain.RoomID]room

	register   chan registration
	unregister chan domain.SessionID
	find       chan domain.SessionID
	leave      chan domain.SessionID
	relay      chan relayRequest
	quit       chan struct{}
}

type session struct {
	client port.Client
	phase  domain.Phase
	room   domain.RoomID
}

type room struct {
	a, b domain.SessionID
}

func (r room) other(id domain.SessionID) domain.SessionID {
	if r.a == id {
		return r.b
	}
	return r.a
}

type registration struct {
	client port.Client
	reply  chan domain.SessionID
}

type relayRequest struct {
	sender  domain.SessionID
	target  domain.SessionID
	payload json.RawMessage
}

func NewMatchmaker() *Matchmaker {
	return &Matchmaker{
		sessions:   make(map[domain.SessionID]*session),
		rooms:      make(map[domain.RoomID]room),
		register:   make(chan registration),
		unregister: make(chan domain.SessionID),
		find:       make(chan domain.SessionID),
		leave:      make(chan domain.SessionID),
		relay:      make(chan relayRequest),
		quit:       make(chan struct{}),
	}
}

// Register adds a freshly connected client and returns its session id.
func (m *Matchmaker) Register(c port.Client) domain.SessionID {
	r := registration{client: c, reply: make(chan domain.SessionID, 1)}
	m.register <- r
	return <-r.reply
}

// Unregister handles an implicit disconnect: queue/room cleanup plus
// removal from the registry.
func (m *Matchmaker) Unregister(id domain.SessionID) {
	m.unregister <- id
}

func (m *Matchmaker) FindMatch(id domain.SessionID) {
	m.find <- id
}

func (m *Matchmaker) Leave(id domain.SessionID) {
	m.leave <- id
}

func (m *Matchmaker) Relay(sender, target domain.SessionID, payload json.RawMessage) {
	m.relay <- relayRequest{sender: sender, target: target, payload: payload}
}

func (m *Matchmaker) Stop() {
	close(m.quit)
}

// Run processes events to completion, one at a time, until Stop.
func (m *Matchmaker) Run() {
	for {
		select {
		case <-m.quit:
			for id, s := range m.sessions {
				s.client.Close()
				delete(m.sessions, id)
			}
			return

		case r := <-m.register:
			r.reply <- m.handleRegister(r.client)

		case id := <-m.unregister:
			m.handleUnregister(id)

		case id := <-m.find:
			m.handleFind(id)

		case id := <-m.leave:
			m.handleLeave(id)

		case req := <-m.relay:
			m.handleRelay(req)
		}
	}
}

func (m *Matchmaker) handleRegister(c port.Client) domain.SessionID {
	id := domain.NewSessionID()
	m.sessions[id] = &session{client: c, phase: domain.PhaseIdle}
	log.Info().Str("session_id", id.String()).Msg("Session registered")
	return id
}

func (m *Matchmaker) handleFind(id domain.SessionID) {
	s, ok := m.sessions[id]
	if !ok || s.phase == domain.PhaseMatched {
		return
	}

	for len(m.queue) > 0 {
		partner := m.queue[0]
		m.queue = m.queue[1:]

		// Degenerate race: the requester popped itself. Put it back and
		// keep it waiting; this is not an error.
		if partner == id {
			m.queue = append(m.queue, id)
			return
		}

		p, ok := m.sessions[partner]
		if !ok {
			continue
		}

		m.dropFromQueue(id)

		roomID := domain.NewRoomID(id, partner)
		m.rooms[roomID] = room{a: id, b: partner}
		s.phase, s.room = domain.PhaseMatched, roomID
		p.phase, p.room = domain.PhaseMatched, roomID

		// The session whose request triggered the pairing originates
		// the offer.
		if err := s.client.SendMatchFound(partner, true); err != nil {
			log.Error().Err(err).Str("session_id", id.String()).Msg("Error sending match-found")
		}
		if err := p.client.SendMatchFound(id, false); err != nil {
			log.Error().Err(err).Str("session_id", partner.String()).Msg("Error sending match-found")
		}
		log.Info().
			Str("room_id", roomID.String()).
			Str("initiator", id.String()).
			Str("partner", partner.String()).
			Msg("Match formed")
		return
	}

	m.queue = append(m.queue, id)
	s.phase = domain.PhaseWaiting
	log.Debug().Str("session_id", id.String()).Int("waiting", len(m.queue)).Msg("Session queued")
}

func (m *Matchmaker) handleLeave(id domain.SessionID) {
	s, ok := m.sessions[id]
	if !ok {
		return
	}

	m.dropFromQueue(id)

	if s.phase == domain.PhaseMatched {
		if r, ok := m.rooms[s.room]; ok {
			delete(m.rooms, s.room)
			if p, ok := m.sessions[r.other(id)]; ok {
				p.phase, p.room = domain.PhaseIdle, ""
				if err := p.client.SendPartnerLeft(); err != nil {
					log.Error().Err(err).Str("session_id", r.other(id).String()).Msg("Error sending partner-left")
				}
			}
			log.Info().Str("room_id", s.room.String()).Msg("Room destroyed")
		}
	}

	s.phase, s.room = domain.PhaseIdle, ""
}

func (m *Matchmaker) handleUnregister(id domain.SessionID) {
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	m.handleLeave(id)
	delete(m.sessions, id)
	s.client.Close()
	log.Info().Str("session_id", id.String()).Msg("Session unregistered")
}

// handleRelay forwards a negotiation payload to the target session. An
// unknown target means the partner already disconnected; the message is
// dropped without telling the sender.
func (m *Matchmaker) handleRelay(req relayRequest) {
	t, ok := m.sessions[req.target]
	if !ok {
		log.Debug().Str("target", req.target.String()).Msg("Relay target gone, dropping signal")
		return
	}
	if err := t.client.SendSignal(req.sender, req.payload); err != nil {
		log.Error().Err(err).Str("target", req.target.String()).Msg("Error relaying signal")
	}
}

func (m *Matchmaker) dropFromQueue(id domain.SessionID) {
	for i, q := range m.queue {
		if q == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

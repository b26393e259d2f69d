package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/peerdrop/roulette/internal/core/domain"
	"github.com/peerdrop/roulette/internal/core/peer"
	"github.com/peerdrop/roulette/internal/core/port"
	"github.com/peerdrop/roulette/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Config wires a Session. Media is acquired once by the caller and reused
// across matches. OnNotice surfaces user-visible conditions (partner left,
// connection lost); OnRemote receives the partner's media stream.
type Config struct {
	Signaling *Signaling
	Media     port.MediaSource
	NewLink   port.LinkFactory
	OnRemote  func(port.RemoteStream)
	OnNotice  func(string)
}

// Session is the client-side counterpart of one signaling connection. It
// owns at most one active negotiation at a time; every new match gets a
// fresh negotiator instance.
type Session struct {
	sig      *Signaling
	media    port.MediaSource
	newLink  port.LinkFactory
	onRemote func(port.RemoteStream)
	onNotice func(string)

	mu      sync.Mutex
	neg     *peer.Negotiator
	phase   domain.Phase
	partner domain.SessionID
}

func NewSession(cfg Config) *Session {
	return &Session{
		sig:      cfg.Signaling,
		media:    cfg.Media,
		newLink:  cfg.NewLink,
		onRemote: cfg.OnRemote,
		onNotice: cfg.OnNotice,
		phase:    domain.PhaseIdle,
	}
}

func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// FindMatch asks the server for a partner.
func (s *Session) FindMatch() error {
	s.mu.Lock()
	if s.phase == domain.PhaseIdle {
		s.phase = domain.PhaseWaiting
	}
	s.mu.Unlock()
	return s.sig.Send(protocol.Envelope{Event: protocol.EventFindMatch})
}

// Leave ends the current match or dequeues a pending request.
func (s *Session) Leave() error {
	s.closeNegotiation()
	return s.sig.Send(protocol.Envelope{Event: protocol.EventLeave})
}

// Next leaves the current match and immediately queues for another.
func (s *Session) Next() error {
	if err := s.Leave(); err != nil {
		return err
	}
	return s.FindMatch()
}

// Run consumes signaling events until the context ends or the connection
// drops. A dropped connection is degraded to idle, never escalated.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.closeNegotiation()
			s.sig.Close()
			return ctx.Err()

		case env, ok := <-s.sig.Incoming():
			if !ok {
				s.closeNegotiation()
				s.notice("Connection to the server was lost")
				return domain.ErrNotConnected
			}
			s.handle(ctx, env)
		}
	}
}

func (s *Session) handle(ctx context.Context, env protocol.Envelope) {
	switch env.Event {
	case protocol.EventMatchFound:
		s.startNegotiation(ctx, domain.SessionID(env.PartnerID), env.Initiator)

	case protocol.EventSignal:
		s.mu.Lock()
		neg := s.neg
		partner := s.partner
		s.mu.Unlock()

		if neg == nil {
			log.Debug().Msg("Signal with no active negotiation, dropping")
			return
		}
		if env.Sender != "" && domain.SessionID(env.Sender) != partner {
			log.Debug().Str("sender", env.Sender).Msg("Signal from unexpected sender, dropping")
			return
		}

		var sig domain.Signal
		if err := json.Unmarshal(env.Signal, &sig); err != nil {
			log.Debug().Err(err).Msg("Malformed signal payload, dropping")
			return
		}
		neg.HandleSignal(ctx, sig)

	case protocol.EventPartnerLeft:
		s.closeNegotiation()
		s.notice("Your partner left")

	default:
		log.Debug().Str("event", string(env.Event)).Msg("Unknown event from server")
	}
}

func (s *Session) startNegotiation(ctx context.Context, partner domain.SessionID, initiator bool) {
	// A match while one is active should not happen; collapse the old one
	// before starting over.
	s.closeNegotiation()

	link, err := s.newLink()
	if err != nil {
		log.Error().Err(err).Msg("Creating peer connection failed")
		s.notice("Could not start the call")
		return
	}

	send := func(sig domain.Signal) {
		raw, err := json.Marshal(sig)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal signal")
			return
		}
		if err := s.sig.Send(protocol.Envelope{
			Event:  protocol.EventSignal,
			Target: partner.String(),
			Signal: raw,
		}); err != nil {
			log.Debug().Err(err).Msg("Signal not sent")
		}
	}

	neg, err := peer.Start(ctx, peer.Config{
		Link:      link,
		Media:     s.media,
		Send:      send,
		OnRemote:  s.onRemote,
		Initiator: initiator,
	})
	if err != nil {
		log.Error().Err(err).Msg("Starting negotiation failed")
		s.notice("Could not start the call")
		return
	}

	s.mu.Lock()
	s.neg = neg
	s.partner = partner
	s.phase = domain.PhaseMatched
	s.mu.Unlock()

	log.Info().Str("partner", partner.String()).Bool("initiator", initiator).Msg("Matched")
}

func (s *Session) closeNegotiation() {
	s.mu.Lock()
	neg := s.neg
	s.neg = nil
	s.partner = ""
	s.phase = domain.PhaseIdle
	s.mu.Unlock()

	if neg != nil {
		neg.Close()
	}
}

func (s *Session) notice(msg string) {
	if s.onNotice != nil {
		s.onNotice(msg)
	}
}

// Negotiation exposes the active negotiator, mainly for tests and status
// display. May be nil.
func (s *Session) Negotiation() *peer.Negotiator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.neg
}

package port

import (
	"encoding/json"

	"github.com/peerdrop/roulette/internal/core/domain"
)

// Client is the outbound half of one connected session, as seen by the
// matchmaker. Implementations must not block the caller; delivery rides a
// buffered per-connection channel.
type Client interface {
	SendMatchFound(partner domain.SessionID, initiator bool) error
	SendSignal(sender domain.SessionID, payload json.RawMessage) error
	SendPartnerLeft() error
	Close() error
}

package domain

// Phase tracks where a session is in the matchmaking lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseWaiting Phase = "waiting"
	PhaseMatched Phase = "matched"
)

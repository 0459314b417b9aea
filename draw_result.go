package raffle

import "fmt"

// OutcomeKind classifies what a StartDraw or StopDraw call did
type OutcomeKind int

const (
	// OutcomeIgnored means the call arrived while a draw was running or a rollover was pending
	OutcomeIgnored OutcomeKind = iota

	// OutcomeStarted means the engine entered the running state
	OutcomeStarted

	// OutcomeWinner means a participant was paired with a prize
	OutcomeWinner

	// OutcomeRoundRollover means the participant pool was refilled from the roster
	OutcomeRoundRollover

	// OutcomePrizesExhausted means no prizes remain; drawing has ended
	OutcomePrizesExhausted

	// OutcomeNoParticipants means the roster is empty so no pairing is possible
	OutcomeNoParticipants
)

// String returns the name of the outcome kind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeStarted:
		return "started"
	case OutcomeWinner:
		return "winner"
	case OutcomeRoundRollover:
		return "round_rollover"
	case OutcomePrizesExhausted:
		return "prizes_exhausted"
	case OutcomeNoParticipants:
		return "no_participants"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name
func (k OutcomeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Outcome is the result of a StartDraw or StopDraw call
type Outcome struct {
	Kind   OutcomeKind    `json:"kind"`             // What happened
	Record *HistoryRecord `json:"record,omitempty"` // Winning pair, only for OutcomeWinner
	Final  bool           `json:"final"`            // True once every prize has been drawn
	Round  int            `json:"round"`            // Round the engine is in after the call
}

// Terminal reports whether no further pairing is possible until Configure or Reset
func (o Outcome) Terminal() bool {
	return o.Final || o.Kind == OutcomePrizesExhausted || o.Kind == OutcomeNoParticipants
}

// Message renders the outcome for display
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeStarted:
		return "Drawing..."
	case OutcomeWinner:
		if o.Record == nil {
			return ""
		}
		if o.Final {
			return o.Record.String() + " All prizes have been drawn."
		}
		return o.Record.String()
	case OutcomeRoundRollover:
		return fmt.Sprintf("Round %d complete, round %d begins with the full roster!", o.Round-1, o.Round)
	case OutcomePrizesExhausted:
		return "Prizes exhausted, drawing has ended!"
	case OutcomeNoParticipants:
		return "No participants configured, nothing to draw."
	default:
		return ""
	}
}

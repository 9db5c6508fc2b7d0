package notify

import (
	"time"

	"github.com/sungwon/healthmate/internal/provider"
)

// State is the position of one delivery attempt in the retry state machine.
type State int

const (
	StatePending State = iota
	StateSent
	StateRetryableFailure
	StateTerminalFailure
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSent:
		return "sent"
	case StateRetryableFailure:
		return "retryable_failure"
	case StateTerminalFailure:
		return "terminal_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one attempt. MessageID is set only when State
// is StateSent; StatusCode and Detail only on failure. StatusCode is zero
// when no response was received.
type Outcome struct {
	State      State
	MessageID  string
	StatusCode int
	Detail     string
	Kind       provider.FailureKind
}

// Attempt records one try at delivering to a recipient. Attempts live only
// for the duration of a dispatch call.
type Attempt struct {
	ContactID string
	Number    int
	Outcome   Outcome
	Timestamp time.Time
}

// Delivery is the full retry history for one recipient.
type Delivery struct {
	Attempts []Attempt
}

// Final returns the outcome of the last attempt, which decides success.
func (d Delivery) Final() Outcome {
	if len(d.Attempts) == 0 {
		return Outcome{State: StatePending}
	}
	return d.Attempts[len(d.Attempts)-1].Outcome
}

// Success reports whether the recipient was reached.
func (d Delivery) Success() bool {
	return d.Final().State == StateSent
}

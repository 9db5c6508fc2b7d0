// Package alert fans an emergency alert out to a user's contacts in
// rate-limited batches and reports the outcome per contact.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/sungwon/healthmate/internal/notify"
)

// Contact is one emergency contact, as owned by the contact store.
type Contact struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	Relationship string
	CreatedAt    time.Time
}

// Payload is the content of one alert. Empty fields are absent.
type Payload struct {
	Message    string
	Location   string
	SenderName string
}

func (p Payload) content() notify.AlertContent {
	return notify.AlertContent{
		Message:    p.Message,
		Location:   p.Location,
		SenderName: p.SenderName,
	}
}

// Result is the final outcome for one contact.
type Result struct {
	ContactID   uuid.UUID
	ContactName string
	Email       string
	Success     bool
	// Detail is the provider's explanation of the last failure, empty on success.
	Detail     string
	StatusCode int
	MessageID  string
	Attempts   []notify.Attempt
}

// Report is the aggregate outcome of one dispatch call. Results are in
// the order contacts were given.
type Report struct {
	TotalContacts int
	SuccessCount  int
	Results       []Result
}

// FailedCount returns the number of contacts that could not be reached.
func (r *Report) FailedCount() int {
	return r.TotalContacts - r.SuccessCount
}

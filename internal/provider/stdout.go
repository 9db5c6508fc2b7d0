package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stdout implements the Provider interface by printing each message as one
// JSON line. It never delivers anything; use it for local development.
type Stdout struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStdout creates a Stdout provider that prints messages to os.Stdout.
func NewStdout(_ ProviderConfig) *Stdout {
	return &Stdout{writer: os.Stdout}
}

func (s *Stdout) GetName() string { return "stdout" }

type stdoutRecord struct {
	Provider  string            `json:"provider"`
	ID        string            `json:"id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Headers   map[string]string `json:"headers,omitempty"`
	Text      string            `json:"text"`
	HTMLBytes int               `json:"html_bytes"`
	At        time.Time         `json:"at"`
}

// Send writes msg to the configured writer and reports it as accepted.
func (s *Stdout) Send(_ context.Context, msg *Message) (*DeliveryResult, error) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()

	line, err := json.Marshal(stdoutRecord{
		Provider:  s.GetName(),
		ID:        id,
		From:      msg.From,
		To:        msg.To,
		Subject:   msg.Subject,
		Headers:   msg.Headers,
		Text:      msg.TextBody,
		HTMLBytes: len(msg.HTMLBody),
		At:        now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("stdout: encode: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writer.Write(line); err != nil {
		return nil, fmt.Errorf("stdout: write: %w", err)
	}

	return &DeliveryResult{
		ProviderMessageID: "stdout-" + id,
		Timestamp:         now,
	}, nil
}

// HealthCheck always succeeds.
func (s *Stdout) HealthCheck(_ context.Context) error {
	return nil
}

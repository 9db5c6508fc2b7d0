package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestStdout_Send(t *testing.T) {
	var buf bytes.Buffer
	p := &Stdout{writer: &buf}

	result, err := p.Send(context.Background(), &Message{
		ID:       "test-123",
		From:     "alerts@example.com",
		To:       "mum@example.com",
		Subject:  "Test Subject",
		Headers:  map[string]string{"X-Custom": "value"},
		TextBody: "Hello, World!",
		HTMLBody: "<p>Hello</p>",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.ProviderMessageID != "stdout-test-123" {
		t.Errorf("expected provider message ID stdout-test-123, got %s", result.ProviderMessageID)
	}

	var rec stdoutRecord
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not one JSON record: %v\n%s", err, buf.String())
	}
	if rec.To != "mum@example.com" || rec.Subject != "Test Subject" || rec.Text != "Hello, World!" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.HTMLBytes != 12 || rec.Headers["X-Custom"] != "value" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestStdout_Send_GeneratesID(t *testing.T) {
	var buf bytes.Buffer
	p := &Stdout{writer: &buf}

	result, err := p.Send(context.Background(), &Message{To: "a@example.com"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(result.ProviderMessageID, "stdout-") || len(result.ProviderMessageID) <= len("stdout-") {
		t.Errorf("expected generated message ID, got %q", result.ProviderMessageID)
	}
}

func TestStdout_ConcurrentSendsDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	p := &Stdout{writer: &buf}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Send(context.Background(), &Message{To: "a@example.com", TextBody: strings.Repeat("x", 512)})
		}()
	}
	wg.Wait()

	lines := 0
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec stdoutRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 20 {
		t.Errorf("expected 20 lines, got %d", lines)
	}
}

func TestStdout_NameAndHealth(t *testing.T) {
	p := NewStdout(ProviderConfig{Type: "stdout"})
	if p.GetName() != "stdout" {
		t.Errorf("expected name stdout, got %s", p.GetName())
	}
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

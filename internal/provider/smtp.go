package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

const smtpDefaultPort = "587"

// SMTP implements the Provider interface by relaying through an SMTP
// submission server. TLS mode is one of "starttls" (default), "tls" or "none".
type SMTP struct {
	addr     string
	host     string
	tlsMode  string
	username string
	password string
	timeout  time.Duration
}

// NewSMTP creates an SMTP relay provider. cfg.Endpoint is host[:port].
func NewSMTP(cfg ProviderConfig) *SMTP {
	host, port, err := net.SplitHostPort(cfg.Endpoint)
	if err != nil {
		host, port = cfg.Endpoint, smtpDefaultPort
	}
	mode := strings.ToLower(cfg.TLSMode)
	if mode == "" {
		mode = "starttls"
	}
	return &SMTP{
		addr:     net.JoinHostPort(host, port),
		host:     host,
		tlsMode:  mode,
		username: cfg.Username,
		password: cfg.APIKey,
		timeout:  cfg.Timeout,
	}
}

func (s *SMTP) GetName() string { return "smtp" }

// Send submits one message over a fresh SMTP connection.
func (s *SMTP) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyTransportError(s.GetName(), err)
	}

	messageID := msg.ID
	if messageID == "" {
		messageID = uuid.NewString()
	}
	raw, err := buildMIME(msg, fmt.Sprintf("<%s@%s>", messageID, s.host))
	if err != nil {
		return nil, fmt.Errorf("smtp: build message: %w", err)
	}

	c, err := s.dial()
	if err != nil {
		return nil, s.classify(err)
	}
	defer c.Close()

	c.CommandTimeout = s.commandTimeout(ctx)
	c.SubmissionTimeout = c.CommandTimeout

	if s.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
			return nil, s.classify(err)
		}
	}

	if err := c.SendMail(msg.From, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return nil, s.classify(err)
	}
	_ = c.Quit()

	return &DeliveryResult{
		ProviderMessageID: messageID,
		Timestamp:         time.Now(),
	}, nil
}

// HealthCheck opens a connection and issues NOOP.
func (s *SMTP) HealthCheck(ctx context.Context) error {
	c, err := s.dial()
	if err != nil {
		return fmt.Errorf("smtp: health check dial: %w", err)
	}
	defer c.Close()
	c.CommandTimeout = s.commandTimeout(ctx)
	if err := c.Noop(); err != nil {
		return fmt.Errorf("smtp: health check noop: %w", err)
	}
	return c.Quit()
}

func (s *SMTP) dial() (*gosmtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: s.host}
	switch s.tlsMode {
	case "tls":
		return gosmtp.DialTLS(s.addr, tlsConfig)
	case "none":
		return gosmtp.Dial(s.addr)
	default:
		return gosmtp.DialStartTLS(s.addr, tlsConfig)
	}
}

// commandTimeout bounds each SMTP command by the remaining context deadline.
func (s *SMTP) commandTimeout(ctx context.Context) time.Duration {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

// classify maps SMTP reply codes onto FailureKind: 4yz replies are
// transient by definition, 535 is a credential rejection, other 5yz are
// permanent.
func (s *SMTP) classify(err error) *ProviderError {
	var se *gosmtp.SMTPError
	if !errors.As(err, &se) {
		return ClassifyTransportError(s.GetName(), err)
	}
	pe := &ProviderError{
		Provider:   s.GetName(),
		StatusCode: se.Code,
		Message:    se.Message,
	}
	switch {
	case se.Code >= 400 && se.Code < 500:
		pe.Kind = KindRetryable
	case se.Code == 535 || se.Code == 530:
		pe.Kind = KindUnauthorized
	default:
		pe.Kind = KindTerminal
	}
	return pe
}

// buildMIME renders a multipart/alternative message with quoted-printable parts.
func buildMIME(msg *Message, messageID string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	for k, v := range msg.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", textproto.CanonicalMIMEHeaderKey(k), v)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", msg.TextBody},
		{"text/html; charset=utf-8", msg.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package mail delivers transactional email through the background job
// queue so that request paths never wait on an SMTP server.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/internal/jobs"
)

// JobType is the background job type that carries an Email.
const JobType = "email.send"

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Mailer interface {
	Send(ctx context.Context, m Email) error
}

// New builds the mailer selected by cfg.Driver.
func New(cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogMailer(logger), nil
	case "smtp":
		return NewSMTPMailer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(ctx context.Context, m Email) error {
	l.logger.InfoContext(ctx, "mail", "to", m.To, "subject", m.Subject)
	return nil
}

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	m := &SMTPMailer{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		from: cfg.From,
		send: smtp.SendMail,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

func (s *SMTPMailer) Send(ctx context.Context, m Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, s.from, []string{m.To}, Render(s.from, m)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

// Render builds a minimal RFC 5322 text message.
func Render(from string, m Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(m.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// Outbox queues emails as background jobs.
type Outbox struct {
	queue       jobs.Enqueuer
	maxAttempts int
	logger      *slog.Logger
}

func NewOutbox(queue jobs.Enqueuer, maxAttempts int, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{queue: queue, maxAttempts: maxAttempts, logger: logger}
}

// Enqueue schedules m. Recipients without an address are skipped.
func (o *Outbox) Enqueue(ctx context.Context, m Email) error {
	if strings.TrimSpace(m.To) == "" {
		o.logger.Debug("mail skipped, no recipient", "subject", m.Subject)
		return nil
	}
	id, err := o.queue.Enqueue(ctx, JobType, m, 50, o.maxAttempts)
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	o.logger.Debug("mail queued", "job_id", id, "to", m.To)
	return nil
}

// Handler returns the job handler that delivers queued emails with mailer.
func Handler(mailer Mailer) jobs.Handler {
	return func(ctx context.Context, j *jobs.Job) error {
		var m Email
		if err := json.Unmarshal(j.Payload, &m); err != nil {
			return fmt.Errorf("decode mail payload: %w", err)
		}
		return mailer.Send(ctx, m)
	}
}

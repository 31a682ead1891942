package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipients = errors.New("mailer: no recipients")

// SMTP delivers through a gomail dialer.
type SMTP struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{from: from, dialer: gomail.NewDialer(host, port, user, password)}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := build(s.from, msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func build(from string, msg Message) (*gomail.Message, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	for _, a := range msg.Attachments {
		content := a.Content
		m.Attach(a.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}
	return m, nil
}

// Log records messages instead of sending them; used when SMTP is not
// configured.
type Log struct {
	lg *zap.SugaredLogger
}

func NewLog(lg *zap.SugaredLogger) *Log { return &Log{lg: lg} }

func (l *Log) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	l.lg.Infow("mail not sent (smtp disabled)", "to", msg.To, "subject", msg.Subject, "attachments", names)
	return nil
}

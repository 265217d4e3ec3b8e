// Package mailer sends HTML email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rechub/internal/netx"
	"github.com/wneessen/go-mail"
)

// Message is one email to one recipient.
type Message struct {
	To         string
	Subject    string
	HTML       string
	Attachment *netx.Attachment
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type Options struct {
	Host        string
	Port        int
	ImplicitTLS bool
	Username    string
	Password    string
	From        string
	Timeout     time.Duration
}

// SMTPSender dials a fresh connection per message, so it is safe for
// concurrent use.
type SMTPSender struct {
	opts Options
}

func NewSMTPSender(opts Options) *SMTPSender {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &SMTPSender{opts: opts}
}

// dialAndSend is a seam for tests.
var dialAndSend = func(ctx context.Context, c *mail.Client, msgs ...*mail.Msg) error {
	return c.DialAndSendWithContext(ctx, msgs...)
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := buildMsg(s.opts.From, m)
	if err != nil {
		return err
	}

	c, err := s.newClient()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := dialAndSend(ctx, c, msg); err != nil {
		return fmt.Errorf("send to %s: %w", m.To, err)
	}
	return nil
}

func (s *SMTPSender) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.opts.Username),
		mail.WithPassword(s.opts.Password),
		mail.WithTimeout(s.opts.Timeout),
	}
	if s.opts.ImplicitTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	opts = append(opts, mail.WithPort(s.opts.Port))
	return mail.NewClient(s.opts.Host, opts...)
}

func buildMsg(from string, m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)

	if a := m.Attachment; a != nil {
		err := msg.AttachReader(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(a.ContentType)))
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return msg, nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Mailer sends exactly one outbound email per call. No queueing, no retry:
// the transport must be reachable at call time or the dispatch fails.
type Mailer interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

type SMTPMailer struct {
	client *mail.Client
	from   string
	log    zerolog.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string, log zerolog.Logger) (*SMTPMailer, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{
		client: client,
		from:   from,
		log:    log,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

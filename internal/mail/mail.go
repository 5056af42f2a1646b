// Package mail delivers recovery tokens to account owners.
package mail

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mural-social/apiserver/config"
	"github.com/wneessen/go-mail"
)

const recoverySubject = "Password recovery"

// SMTPNotifier sends recovery tokens over SMTP.
type SMTPNotifier struct {
	client *mail.Client
	from   string
}

// NewSMTPNotifier constructs an SMTP notifier from config.
func NewSMTPNotifier(cfg config.SMTPConfig) (*SMTPNotifier, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	return &SMTPNotifier{
		client: client,
		from:   cfg.From,
	}, nil
}

// SendRecoveryToken mails the token to the given address.
func (n *SMTPNotifier) SendRecoveryToken(ctx context.Context, address, token string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return err
	}
	if err := msg.To(address); err != nil {
		return err
	}
	msg.Subject(recoverySubject)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Use this code to reset your password:\n\n%s\n\nIt expires in one hour. If you did not request a reset, ignore this message.\n",
		token,
	))

	return n.client.DialAndSendWithContext(ctx, msg)
}

// LogNotifier writes tokens to the process log instead of sending mail.
// Used in development when no SMTP host is configured.
type LogNotifier struct{}

// SendRecoveryToken logs the token.
func (LogNotifier) SendRecoveryToken(_ context.Context, address, token string) error {
	log.Printf("mail: recovery token for %s: %s", address, token)
	return nil
}

package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// sendMailHook allows tests to override SMTP sending behavior.
var sendMailHook = smtp.SendMail

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host, User, Pass string
	Port             int
	To               []string
}

// Email sends notifications via SMTP.
type Email struct {
	EmailConfig
}

func NewEmail(cfg EmailConfig) *Email {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &Email{EmailConfig: cfg}
}

func (e *Email) Name() string { return "Email" }

// Send mails title and message to every recipient. net/smtp has no
// context support, so ctx is only checked before dialing.
func (e *Email) Send(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	var auth smtp.Auth
	if e.User != "" {
		auth = smtp.PlainAuth("", e.User, e.Pass, e.Host)
	}
	from := e.User
	if from == "" {
		from = "dockgen@" + e.Host
	}
	header := fmt.Sprintf(
		"To: %s\r\nSubject: [dockgen] %s\r\n\r\n",
		strings.Join(e.To, ","),
		title,
	)
	return sendMailHook(addr, auth, from, e.To, []byte(header+message))
}

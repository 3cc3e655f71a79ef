// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Email is one outgoing message.
type Email struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// DeliveryError is a failed delivery with the provider's diagnostic code.
type DeliveryError struct {
	Provider string
	Code     string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed (%s): %v", e.Provider, e.Code, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// SendGrid delivers through the SendGrid v3 API.
type SendGrid struct {
	client   *sendgrid.Client
	fromMail string
	fromName string
}

func NewSendGrid(apiKey, fromMail, fromName string) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromMail: fromMail,
		fromName: fromName,
	}
}

func (s *SendGrid) Send(ctx context.Context, e Email) error {
	from := mail.NewEmail(s.fromName, s.fromMail)
	to := mail.NewEmail(e.ToName, e.To)
	msg := mail.NewSingleEmail(from, e.Subject, to, e.TextBody, e.HTMLBody)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return &DeliveryError{Provider: "sendgrid", Code: "request_failed", Err: err}
	}
	if resp.StatusCode >= 400 {
		return &DeliveryError{
			Provider: "sendgrid",
			Code:     strconv.Itoa(resp.StatusCode),
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, resp.Body),
		}
	}
	return nil
}

// Log writes messages to the logger instead of sending them. Used when no
// SendGrid key is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Send(_ context.Context, e Email) error {
	l.log.Info("email (log mailer)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody))
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// SMTPConfig carries the delivery endpoint for notification emails.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// EmailJob delivers TaskTypeSendEmail tasks over SMTP.
type EmailJob struct {
	cfg    SMTPConfig
	logger *slog.Logger
	send   func(addr, from string, to []string, msg []byte) error
}

// NewEmailJob initialises the email delivery handler.
func NewEmailJob(cfg SMTPConfig, logger *slog.Logger) *EmailJob {
	return &EmailJob{
		cfg:    cfg,
		logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *EmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}
	msg := buildMessage(j.cfg.From, payload)
	addr := fmt.Sprintf("%s:%d", j.cfg.Host, j.cfg.Port)
	if err := j.send(addr, j.cfg.From, []string{payload.To}, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", payload.To, err)
	}
	if j.logger != nil {
		j.logger.Info("notification email sent",
			slog.String("to", payload.To),
			slog.String("subject", payload.Subject),
		)
	}
	return nil
}

func buildMessage(from string, payload SendEmailPayload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", payload.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", payload.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(payload.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

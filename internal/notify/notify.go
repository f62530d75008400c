// Package notify turns fraud alerts into owner notifications. Delivery is
// fire-and-forget: the alert email is enqueued for the worker and any
// failure here is the caller's to log, never to propagate.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-bank/meridian/internal/accounts"
	"github.com/meridian-bank/meridian/internal/fraud"
	"github.com/meridian-bank/meridian/internal/ledger"
	"github.com/meridian-bank/meridian/jobs"
)

// AccountDirectory resolves the account whose owner should be notified.
type AccountDirectory interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// AlertMailer implements fraud.Notifier on top of the asynq email queue.
type AlertMailer struct {
	queue     *jobs.Client
	directory AccountDirectory
	logger    *slog.Logger
}

func NewAlertMailer(queue *jobs.Client, directory AccountDirectory, logger *slog.Logger) *AlertMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertMailer{queue: queue, directory: directory, logger: logger}
}

// NotifyAlert enqueues an email to the owner of the account the record
// moved money into, falling back to the source account for withdrawals.
func (m *AlertMailer) NotifyAlert(ctx context.Context, alert fraud.Alert, rec ledger.Record) error {
	accountID := rec.DestinationAccountID
	if accountID == nil {
		accountID = rec.SourceAccountID
	}
	if accountID == nil {
		return fmt.Errorf("notify: record %d references no account", rec.ID)
	}
	account, err := m.directory.Get(ctx, *accountID)
	if err != nil {
		return fmt.Errorf("notify: resolve account %d: %w", *accountID, err)
	}
	payload := jobs.SendEmailPayload{
		To:      account.OwnerEmail,
		Subject: fmt.Sprintf("Fraud alert on account %d", account.ID),
		Body: fmt.Sprintf(
			"Hello %s,\n\nA %s alert was raised for transaction %d (%s %s) on your account.\nIf you do not recognise this activity, contact support immediately.\n",
			account.OwnerName, alert.Type, rec.ID, rec.Type, rec.Amount.StringFixed(2),
		),
		Ref: uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "alert:%d", alert.ID)).String(),
	}
	if _, err := m.queue.EnqueueSendEmail(ctx, payload); err != nil {
		return fmt.Errorf("notify: enqueue email: %w", err)
	}
	m.logger.Info("alert notification enqueued",
		slog.Int64("alert_id", alert.ID),
		slog.Int64("account_id", account.ID),
	)
	return nil
}

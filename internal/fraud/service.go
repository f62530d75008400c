package fraud

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/meridian-bank/meridian/internal/accounts"
	"github.com/meridian-bank/meridian/internal/ledger"
)

// AccountDirectory resolves accounts for the new-account rule.
type AccountDirectory interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// Notifier delivers an alert to the account owner. Failures are logged by
// the service and never propagate.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert Alert, rec ledger.Record) error
}

// MetricsPort counts raised alerts by type.
type MetricsPort interface {
	FraudAlert(alertType string)
}

// Service evaluates appended records against the rule set and owns the
// alert review workflow.
type Service struct {
	repo     Repository
	rules    []rule
	notifier Notifier
	metrics  MetricsPort
	cache    *Cache
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, directory AccountDirectory, cfg Thresholds, notifier Notifier, metrics MetricsPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:     repo,
		notifier: notifier,
		metrics:  metrics,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
	s.rules = []rule{
		largeTransactionRule{threshold: cfg.LargeAmount},
		velocityRule{repo: repo, threshold: cfg.LargeAmount, window: cfg.VelocityWindow, count: cfg.VelocityCount, now: func() time.Time { return s.now() }},
		newAccountRule{directory: directory, maxAge: cfg.NewAccountAge, now: func() time.Time { return s.now() }},
	}
	return s
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Evaluate runs every rule against the record. Each rule raises at most one
// alert per record; creation is idempotent, so re-evaluating a record
// returns the existing alerts instead of duplicating them. Rule failures
// are collected, not fatal: the remaining rules still run.
func (s *Service) Evaluate(ctx context.Context, rec ledger.Record) error {
	var firstErr error
	for _, rl := range s.rules {
		applies, err := rl.Applies(ctx, rec)
		if err != nil {
			s.logger.Warn("fraud rule error",
				slog.String("rule", string(rl.Type())),
				slog.Int64("record_id", rec.ID),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !applies {
			continue
		}
		alert, created, err := s.repo.UpsertAlert(ctx, rec.ID, rl.Type(), s.now().UTC())
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !created {
			continue
		}
		s.logger.Info("fraud alert raised",
			slog.String("type", string(alert.Type)),
			slog.Int64("record_id", rec.ID),
			slog.String("amount", rec.Amount.StringFixed(ledger.AmountScale)),
		)
		if s.metrics != nil {
			s.metrics.FraudAlert(string(alert.Type))
		}
		s.invalidate(ctx)
		s.notify(ctx, alert, rec)
	}
	return firstErr
}

// AlertsByStatus lists alerts for the review queue, served through the
// versioned cache when one is configured.
func (s *Service) AlertsByStatus(ctx context.Context, status AlertStatus) ([]Alert, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if s.cache == nil {
		return s.repo.ListByStatus(ctx, status)
	}
	key, err := s.cache.BuildKey(ctx, "fraud", "alerts", string(status))
	if err != nil {
		return s.repo.ListByStatus(ctx, status)
	}
	var alerts []Alert
	err = s.cache.FetchJSON(ctx, key, &alerts, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListByStatus(ctx, status)
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// UpdateStatus applies a reviewer decision. Only PENDING alerts may move.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status AlertStatus) (Alert, error) {
	if !status.Valid() || status == AlertStatusPending {
		return Alert{}, ErrInvalidStatus
	}
	current, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return Alert{}, err
	}
	if current.Status != AlertStatusPending {
		return Alert{}, ErrIllegalTransition
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return Alert{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("alert cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, alert Alert, rec ledger.Record) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAlert(ctx, alert, rec); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("alert notification failed",
			slog.Int64("alert_id", alert.ID),
			slog.Any("error", err),
		)
	}
}

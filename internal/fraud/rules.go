package fraud

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-bank/meridian/internal/ledger"
)

// Thresholds tunes the rule set.
type Thresholds struct {
	// LargeAmount is the single-record amount that trips R1 and feeds R2.
	LargeAmount decimal.Decimal
	// VelocityWindow is the trailing window R2 inspects.
	VelocityWindow time.Duration
	// VelocityCount is the number of large records inside the window that trips R2.
	VelocityCount int
	// NewAccountAge is the destination-account age below which R3 trips.
	NewAccountAge time.Duration
}

// DefaultThresholds returns the production rule configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeAmount:    decimal.NewFromInt(10000),
		VelocityWindow: 10 * time.Minute,
		VelocityCount:  3,
		NewAccountAge:  24 * time.Hour,
	}
}

// rule decides whether a record warrants an alert of its type. Rules are
// independent; each yields at most one alert per record.
type rule interface {
	Type() AlertType
	Applies(ctx context.Context, rec ledger.Record) (bool, error)
}

// largeTransactionRule trips on any single record at or above the threshold.
type largeTransactionRule struct {
	threshold decimal.Decimal
}

func (r largeTransactionRule) Type() AlertType { return AlertLargeTransaction }

func (r largeTransactionRule) Applies(_ context.Context, rec ledger.Record) (bool, error) {
	return rec.Amount.GreaterThanOrEqual(r.threshold), nil
}

// velocityRule trips when enough large records touch one of the record's
// accounts inside the trailing window. The freshly appended record is
// already committed, so it participates in the count.
type velocityRule struct {
	repo      Repository
	threshold decimal.Decimal
	window    time.Duration
	count     int
	now       func() time.Time
}

func (r velocityRule) Type() AlertType { return AlertMultipleLargeTransactions }

func (r velocityRule) Applies(ctx context.Context, rec ledger.Record) (bool, error) {
	since := r.now().UTC().Add(-r.window)
	for _, accountID := range involvedAccounts(rec) {
		n, err := r.repo.CountLargeRecordsForAccount(ctx, accountID, r.threshold, since)
		if err != nil {
			return false, err
		}
		if n >= r.count {
			return true, nil
		}
	}
	return false, nil
}

// newAccountRule trips on deposits and transfers whose destination account
// is younger than the configured age.
type newAccountRule struct {
	directory AccountDirectory
	maxAge    time.Duration
	now       func() time.Time
}

func (r newAccountRule) Type() AlertType { return AlertNewlyCreatedAccountTarget }

func (r newAccountRule) Applies(ctx context.Context, rec ledger.Record) (bool, error) {
	if rec.Type != ledger.RecordTypeDeposit && rec.Type != ledger.RecordTypeTransfer {
		return false, nil
	}
	if rec.DestinationAccountID == nil {
		return false, nil
	}
	account, err := r.directory.Get(ctx, *rec.DestinationAccountID)
	if err != nil {
		return false, err
	}
	return account.Age(r.now().UTC()) < r.maxAge, nil
}

func involvedAccounts(rec ledger.Record) []int64 {
	var ids []int64
	if rec.SourceAccountID != nil {
		ids = append(ids, *rec.SourceAccountID)
	}
	if rec.DestinationAccountID != nil {
		ids = append(ids, *rec.DestinationAccountID)
	}
	return ids
}

package accounts

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a customer balance. The balance is only mutated through
// ledger operations and never goes negative.
type Account struct {
	ID         int64
	OwnerName  string
	OwnerEmail string
	Balance    decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Age reports how long the account has existed at the given instant.
func (a Account) Age(now time.Time) time.Duration {
	return now.Sub(a.CreatedAt)
}

var (
	// ErrNotFound indicates an unknown account id.
	ErrNotFound = errors.New("accounts: account not found")
	// ErrOwnerRequired indicates missing owner details on open.
	ErrOwnerRequired = errors.New("accounts: owner name and email are required")
)

package ledger

import "errors"

var (
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrSameAccount indicates a transfer where source equals destination.
	ErrSameAccount = errors.New("ledger: source and destination accounts must differ")
	// ErrAccountNotFound indicates an unknown account id.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrRecordNotFound indicates an unknown record id.
	ErrRecordNotFound = errors.New("ledger: record not found")
	// ErrInsufficientFunds indicates balance < amount on a debit.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrAlreadyReversed indicates the record was reversed before.
	ErrAlreadyReversed = errors.New("ledger: record already reversed")
	// ErrReverseReversal indicates an attempt to reverse a reversal record.
	ErrReverseReversal = errors.New("ledger: cannot reverse a reversal record")
	// ErrRecordNotCompleted indicates the record is not in COMPLETED status.
	ErrRecordNotCompleted = errors.New("ledger: record is not in a reversible status")
)

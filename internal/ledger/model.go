package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordType enumerates the kinds of ledger records.
type RecordType string

const (
	RecordTypeDeposit            RecordType = "DEPOSIT"
	RecordTypeWithdrawal         RecordType = "WITHDRAWAL"
	RecordTypeTransfer           RecordType = "TRANSFER"
	RecordTypeDepositReversal    RecordType = "DEPOSIT_REVERSAL"
	RecordTypeWithdrawalReversal RecordType = "WITHDRAWAL_REVERSAL"
	RecordTypeTransferReversal   RecordType = "TRANSFER_REVERSAL"
)

// IsReversal reports whether the type is a compensating record type.
func (t RecordType) IsReversal() bool {
	switch t {
	case RecordTypeDepositReversal, RecordTypeWithdrawalReversal, RecordTypeTransferReversal:
		return true
	}
	return false
}

// RecordStatus enumerates record lifecycle values.
type RecordStatus string

const (
	RecordStatusCompleted RecordStatus = "COMPLETED"
	RecordStatusReversed  RecordStatus = "REVERSED"
)

// Record is one entry in the hash-chained transaction log. Monetary fields
// are immutable once the record is hashed; only Status, Reversed and
// OriginalRecordID change afterwards, and only through a reversal.
type Record struct {
	ID                   int64
	Type                 RecordType
	Amount               decimal.Decimal
	Description          string
	SourceAccountID      *int64
	DestinationAccountID *int64
	TransactionDate      time.Time
	Hash                 string
	PreviousHash         string
	Status               RecordStatus
	Reversed             bool
	OriginalRecordID     *int64
}

// ChainPosition identifies a record's place in the global chain order.
// Records are totally ordered by (transaction_date, id).
type ChainPosition struct {
	Date time.Time
	ID   int64
}

// VerificationResult summarises an integrity scan over the chain prefix
// that was committed when the scan started.
type VerificationResult struct {
	Intact               bool
	CheckedRecords       int
	FirstInvalidRecordID int64
	Reason               string
}

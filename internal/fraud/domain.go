package fraud

import (
	"errors"
	"time"
)

// AlertType enumerates the rule that raised an alert.
type AlertType string

const (
	AlertLargeTransaction          AlertType = "LARGE_TRANSACTION"
	AlertMultipleLargeTransactions AlertType = "MULTIPLE_LARGE_TRANSACTIONS"
	AlertNewlyCreatedAccountTarget AlertType = "NEWLY_CREATED_ACCOUNT_TRANSFER"
)

// AlertStatus enumerates the review lifecycle. Alerts are created PENDING
// by the engine and only a reviewer moves them out of it.
type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "PENDING"
	AlertStatusReviewed  AlertStatus = "REVIEWED"
	AlertStatusDismissed AlertStatus = "DISMISSED"
	AlertStatusEscalated AlertStatus = "ESCALATED"
)

// Valid reports whether the status is a known value.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusPending, AlertStatusReviewed, AlertStatusDismissed, AlertStatusEscalated:
		return true
	}
	return false
}

// Alert links a ledger record to the rule it tripped. At most one alert
// exists per (record, type) pair.
type Alert struct {
	ID        int64       `json:"id"`
	RecordID  int64       `json:"record_id"`
	Type      AlertType   `json:"type"`
	Status    AlertStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

var (
	// ErrAlertNotFound indicates an unknown alert id.
	ErrAlertNotFound = errors.New("fraud: alert not found")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("fraud: invalid alert status")
	// ErrIllegalTransition indicates a review action on a non-pending alert.
	ErrIllegalTransition = errors.New("fraud: alert already reviewed")
)

package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-bank/meridian/internal/accounts"
)

type depositRequest struct {
	AccountID   int64  `json:"account_id" validate:"required,gt=0"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

type withdrawalRequest struct {
	AccountID   int64  `json:"account_id" validate:"required,gt=0"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

type transferRequest struct {
	SourceAccountID      int64  `json:"source_account_id" validate:"required,gt=0"`
	DestinationAccountID int64  `json:"destination_account_id" validate:"required,gt=0"`
	Amount               string `json:"amount" validate:"required"`
	Description          string `json:"description" validate:"max=255"`
}

type recordResponse struct {
	ID                   int64  `json:"id"`
	Type                 string `json:"type"`
	Amount               string `json:"amount"`
	Description          string `json:"description"`
	SourceAccountID      *int64 `json:"source_account_id,omitempty"`
	DestinationAccountID *int64 `json:"destination_account_id,omitempty"`
	TransactionDate      string `json:"transaction_date"`
	Hash                 string `json:"hash"`
	PreviousHash         string `json:"previous_hash"`
	Status               string `json:"status"`
	Reversed             bool   `json:"reversed"`
	OriginalRecordID     *int64 `json:"original_record_id,omitempty"`
}

type movementResponse struct {
	Record  recordResponse `json:"record"`
	Balance string         `json:"balance"`
}

type verifyResponse struct {
	Intact               bool   `json:"intact"`
	CheckedRecords       int    `json:"checked_records"`
	FirstInvalidRecordID *int64 `json:"first_invalid_record_id,omitempty"`
	Reason               string `json:"reason,omitempty"`
}

func toRecordResponse(r Record) recordResponse {
	return recordResponse{
		ID:                   r.ID,
		Type:                 string(r.Type),
		Amount:               r.Amount.StringFixed(AmountScale),
		Description:          r.Description,
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		TransactionDate:      CanonicalTime(r.TransactionDate),
		Hash:                 r.Hash,
		PreviousHash:         r.PreviousHash,
		Status:               string(r.Status),
		Reversed:             r.Reversed,
		OriginalRecordID:     r.OriginalRecordID,
	}
}

func toRecordResponses(records []Record) []recordResponse {
	out := make([]recordResponse, len(records))
	for i, r := range records {
		out[i] = toRecordResponse(r)
	}
	return out
}

func toMovementResponse(account accounts.Account, rec Record) movementResponse {
	return movementResponse{
		Record:  toRecordResponse(rec),
		Balance: account.Balance.StringFixed(AmountScale),
	}
}

func toVerifyResponse(result VerificationResult) verifyResponse {
	resp := verifyResponse{
		Intact:         result.Intact,
		CheckedRecords: result.CheckedRecords,
		Reason:         result.Reason,
	}
	if !result.Intact {
		id := result.FirstInvalidRecordID
		resp.FirstInvalidRecordID = &id
	}
	return resp
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if amount.Exponent() < -AmountScale {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amount, nil
}

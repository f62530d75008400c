package ledger

import (
	"context"
	"fmt"
	"time"
)

// reversalPlan describes the compensating action for one record type:
// which balance legs undo the original effect and how the reversal record
// is shaped. Adding a record type without a strategy entry makes Reverse
// fail loudly instead of guessing.
type reversalPlan struct {
	Type                 RecordType
	DebitAccountID       *int64
	CreditAccountID      *int64
	SourceAccountID      *int64
	DestinationAccountID *int64
}

type reversalStrategy func(original Record) reversalPlan

var reversalStrategies = map[RecordType]reversalStrategy{
	// Undo a transfer by moving the funds back: debit the original
	// destination, credit the original source.
	RecordTypeTransfer: func(original Record) reversalPlan {
		return reversalPlan{
			Type:                 RecordTypeTransferReversal,
			DebitAccountID:       original.DestinationAccountID,
			CreditAccountID:      original.SourceAccountID,
			SourceAccountID:      original.DestinationAccountID,
			DestinationAccountID: original.SourceAccountID,
		}
	},
	// Undo a deposit by debiting the account that was credited.
	RecordTypeDeposit: func(original Record) reversalPlan {
		return reversalPlan{
			Type:            RecordTypeDepositReversal,
			DebitAccountID:  original.DestinationAccountID,
			SourceAccountID: original.DestinationAccountID,
		}
	},
	// Undo a withdrawal by crediting the account that was debited.
	RecordTypeWithdrawal: func(original Record) reversalPlan {
		return reversalPlan{
			Type:                 RecordTypeWithdrawalReversal,
			CreditAccountID:      original.SourceAccountID,
			DestinationAccountID: original.SourceAccountID,
		}
	},
}

// Reverse appends a compensating record for a prior one. The original is
// never edited monetarily: its funds are moved back, it is marked REVERSED,
// and a new fully chained record referencing it is appended — all in one
// storage transaction under the append critical section.
func (s *Service) Reverse(ctx context.Context, recordID int64) (Record, error) {
	var reversal Record
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	at := s.now().UTC().Truncate(time.Second)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetRecordForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		if original.Reversed {
			return ErrAlreadyReversed
		}
		if original.Type.IsReversal() || original.OriginalRecordID != nil {
			return ErrReverseReversal
		}
		if original.Status != RecordStatusCompleted {
			return ErrRecordNotCompleted
		}
		strategy, ok := reversalStrategies[original.Type]
		if !ok {
			return fmt.Errorf("ledger: no reversal strategy for record type %s", original.Type)
		}
		plan := strategy(original)
		if plan.DebitAccountID != nil {
			if _, err := applyDebit(ctx, tx, *plan.DebitAccountID, original.Amount, at); err != nil {
				return err
			}
		}
		if plan.CreditAccountID != nil {
			if _, err := applyCredit(ctx, tx, *plan.CreditAccountID, original.Amount, at); err != nil {
				return err
			}
		}
		if err := tx.MarkReversed(ctx, original.ID); err != nil {
			return err
		}
		reversal, err = appendChained(ctx, tx, Record{
			Type:                 plan.Type,
			Amount:               original.Amount,
			Description:          fmt.Sprintf("Reversal of record %d", original.ID),
			SourceAccountID:      plan.SourceAccountID,
			DestinationAccountID: plan.DestinationAccountID,
			TransactionDate:      at,
		})
		if err != nil {
			return err
		}
		if err := tx.LinkOriginalRecord(ctx, reversal.ID, original.ID); err != nil {
			return err
		}
		originalID := original.ID
		reversal.OriginalRecordID = &originalID
		return nil
	})
	if err != nil {
		s.count("REVERSAL", "failed")
		return Record{}, err
	}
	s.count(reversal.Type, "completed")
	return reversal, nil
}

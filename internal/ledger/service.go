package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-bank/meridian/internal/accounts"
)

// FraudPort evaluates a freshly appended record. Implementations are
// advisory: errors are logged here and never surface to the caller.
type FraudPort interface {
	Evaluate(ctx context.Context, rec Record) error
}

// MetricsPort counts ledger operations by type and outcome.
type MetricsPort interface {
	LedgerOperation(recordType, outcome string)
}

// ServiceConfig holds ledger tunables.
type ServiceConfig struct {
	// VerifyPageSize bounds memory during integrity scans.
	VerifyPageSize int
}

const defaultVerifyPageSize = 500

// Service owns balance mutation and the hash-chained transaction log.
// The "read latest hash, then append" sequence is the chain's single
// ordering point: appendMu serializes it globally, independent of which
// accounts are involved. Reads never take the mutex.
type Service struct {
	repo    Repository
	fraud   FraudPort
	metrics MetricsPort
	logger  *slog.Logger
	cfg     ServiceConfig

	appendMu sync.Mutex
	now      func() time.Time
}

func NewService(repo Repository, fraud FraudPort, metrics MetricsPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.VerifyPageSize <= 0 {
		cfg.VerifyPageSize = defaultVerifyPageSize
	}
	return &Service{repo: repo, fraud: fraud, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Deposit credits the account and appends a DEPOSIT record.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (accounts.Account, Record, error) {
	if !amount.IsPositive() {
		return accounts.Account{}, Record{}, ErrInvalidAmount
	}
	var (
		account accounts.Account
		rec     Record
	)
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	at := s.now().UTC().Truncate(time.Second)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if account, err = applyCredit(ctx, tx, accountID, amount, at); err != nil {
			return err
		}
		rec, err = appendChained(ctx, tx, Record{
			Type:                 RecordTypeDeposit,
			Amount:               amount,
			Description:          description,
			DestinationAccountID: &accountID,
			TransactionDate:      at,
		})
		return err
	})
	if err != nil {
		s.count(RecordTypeDeposit, "failed")
		return accounts.Account{}, Record{}, err
	}
	s.count(RecordTypeDeposit, "completed")
	s.evaluateFraud(ctx, rec)
	return account, rec, nil
}

// Withdraw debits the account and appends a WITHDRAWAL record.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (accounts.Account, Record, error) {
	if !amount.IsPositive() {
		return accounts.Account{}, Record{}, ErrInvalidAmount
	}
	var (
		account accounts.Account
		rec     Record
	)
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	at := s.now().UTC().Truncate(time.Second)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if account, err = applyDebit(ctx, tx, accountID, amount, at); err != nil {
			return err
		}
		rec, err = appendChained(ctx, tx, Record{
			Type:            RecordTypeWithdrawal,
			Amount:          amount,
			Description:     description,
			SourceAccountID: &accountID,
			TransactionDate: at,
		})
		return err
	})
	if err != nil {
		s.count(RecordTypeWithdrawal, "failed")
		return accounts.Account{}, Record{}, err
	}
	s.count(RecordTypeWithdrawal, "completed")
	s.evaluateFraud(ctx, rec)
	return account, rec, nil
}

// Transfer moves funds between two accounts as one atomic unit: if either
// leg cannot be applied, neither balance changes and no record is appended.
func (s *Service) Transfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal, description string) (Record, error) {
	if !amount.IsPositive() {
		return Record{}, ErrInvalidAmount
	}
	if sourceID == destinationID {
		return Record{}, ErrSameAccount
	}
	var rec Record
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	at := s.now().UTC().Truncate(time.Second)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := applyDebit(ctx, tx, sourceID, amount, at); err != nil {
			return err
		}
		if _, err := applyCredit(ctx, tx, destinationID, amount, at); err != nil {
			return err
		}
		var err error
		rec, err = appendChained(ctx, tx, Record{
			Type:                 RecordTypeTransfer,
			Amount:               amount,
			Description:          description,
			SourceAccountID:      &sourceID,
			DestinationAccountID: &destinationID,
			TransactionDate:      at,
		})
		return err
	})
	if err != nil {
		s.count(RecordTypeTransfer, "failed")
		return Record{}, err
	}
	s.count(RecordTypeTransfer, "completed")
	s.evaluateFraud(ctx, rec)
	return rec, nil
}

// RecordsForAccount lists records touching the account, most recent first.
func (s *Service) RecordsForAccount(ctx context.Context, accountID int64) ([]Record, error) {
	return s.repo.RecordsForAccount(ctx, accountID)
}

// AllRecords lists the full log in chain order.
func (s *Service) AllRecords(ctx context.Context) ([]Record, error) {
	return s.repo.AllRecords(ctx)
}

// GetRecord fetches one record by id.
func (s *Service) GetRecord(ctx context.Context, id int64) (Record, error) {
	return s.repo.GetRecord(ctx, id)
}

// appendChained links, persists and hashes a record inside an open
// transaction. Two writes because the store-assigned id is part of the
// hash input.
func appendChained(ctx context.Context, tx TxRepository, draft Record) (Record, error) {
	prev, err := tx.LatestHash(ctx)
	if err != nil {
		return Record{}, err
	}
	draft.PreviousHash = prev
	draft.Status = RecordStatusCompleted
	inserted, err := tx.InsertRecord(ctx, draft)
	if err != nil {
		return Record{}, err
	}
	inserted.Hash = HashRecord(inserted)
	if err := tx.SetRecordHash(ctx, inserted.ID, inserted.Hash); err != nil {
		return Record{}, err
	}
	return inserted, nil
}

func applyCredit(ctx context.Context, tx TxRepository, accountID int64, amount decimal.Decimal, at time.Time) (accounts.Account, error) {
	account, err := tx.GetAccountForUpdate(ctx, accountID)
	if err != nil {
		return accounts.Account{}, err
	}
	account.Balance = account.Balance.Add(amount)
	account.UpdatedAt = at
	if err := tx.UpdateAccountBalance(ctx, accountID, account.Balance, at); err != nil {
		return accounts.Account{}, err
	}
	return account, nil
}

func applyDebit(ctx context.Context, tx TxRepository, accountID int64, amount decimal.Decimal, at time.Time) (accounts.Account, error) {
	account, err := tx.GetAccountForUpdate(ctx, accountID)
	if err != nil {
		return accounts.Account{}, err
	}
	if account.Balance.LessThan(amount) {
		return accounts.Account{}, ErrInsufficientFunds
	}
	account.Balance = account.Balance.Sub(amount)
	account.UpdatedAt = at
	if err := tx.UpdateAccountBalance(ctx, accountID, account.Balance, at); err != nil {
		return accounts.Account{}, err
	}
	return account, nil
}

// evaluateFraud runs after a successful append. Fraud detection is advisory:
// an error or panic here must never make a committed movement look failed.
func (s *Service) evaluateFraud(ctx context.Context, rec Record) {
	if s.fraud == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fraud evaluation panic",
				slog.Int64("record_id", rec.ID),
				slog.Any("panic", r),
			)
		}
	}()
	if err := s.fraud.Evaluate(ctx, rec); err != nil {
		s.logger.Error("fraud evaluation failed",
			slog.Int64("record_id", rec.ID),
			slog.String("record_type", string(rec.Type)),
			slog.Any("error", err),
		)
	}
}

func (s *Service) count(t RecordType, outcome string) {
	if s.metrics != nil {
		s.metrics.LedgerOperation(string(t), outcome)
	}
}

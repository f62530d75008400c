package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type tickingClock struct {
	current time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{current: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

type stubFraud struct {
	evaluated []Record
	err       error
	panics    bool
}

func (s *stubFraud) Evaluate(ctx context.Context, rec Record) error {
	if s.panics {
		panic("rule engine blew up")
	}
	s.evaluated = append(s.evaluated, rec)
	return s.err
}

type stubMetrics struct {
	counts map[string]int
}

func (s *stubMetrics) LedgerOperation(recordType, outcome string) {
	if s.counts == nil {
		s.counts = make(map[string]int)
	}
	s.counts[recordType+"/"+outcome]++
}

func newTestService(t *testing.T, repo *memoryLedgerRepo, fraud FraudPort, metrics MetricsPort) *Service {
	t.Helper()
	svc := NewService(repo, fraud, metrics, slog.Default(), ServiceConfig{})
	svc.WithNow(newTickingClock().Now)
	return svc
}

func TestDepositCreditsAccountAndAppendsRecord(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(100), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, repo, nil, nil)

	account, rec, err := svc.Deposit(context.Background(), accountID, decimal.NewFromInt(250), "payday")
	require.NoError(t, err)

	require.True(t, account.Balance.Equal(decimal.NewFromInt(350)))
	require.True(t, repo.accountBalance(accountID).Equal(decimal.NewFromInt(350)))
	require.Equal(t, RecordTypeDeposit, rec.Type)
	require.Equal(t, RecordStatusCompleted, rec.Status)
	require.Nil(t, rec.SourceAccountID)
	require.NotNil(t, rec.DestinationAccountID)
	require.Equal(t, accountID, *rec.DestinationAccountID)
	require.Equal(t, HashSentinel, rec.PreviousHash)
	require.Equal(t, HashRecord(rec), rec.Hash)

	stored, ok := repo.storedRecord(rec.ID)
	require.True(t, ok)
	require.Equal(t, rec.Hash, stored.Hash)
}

func TestDepositRejectsNonPositiveAmounts(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(100), time.Now())
	svc := newTestService(t, repo, nil, nil)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, _, err := svc.Deposit(context.Background(), accountID, amount, "")
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
	records, err := svc.AllRecords(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestDepositUnknownAccount(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := newTestService(t, repo, nil, nil)

	_, _, err := svc.Deposit(context.Background(), 999, decimal.NewFromInt(10), "")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestWithdrawInsufficientFundsLeavesNoTrace(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(50), time.Now())
	svc := newTestService(t, repo, nil, nil)

	_, _, err := svc.Withdraw(context.Background(), accountID, decimal.NewFromInt(80), "too much")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	require.True(t, repo.accountBalance(accountID).Equal(decimal.NewFromInt(50)))
	records, err := svc.AllRecords(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestWithdrawDebitsExactBalance(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(50), time.Now())
	svc := newTestService(t, repo, nil, nil)

	account, rec, err := svc.Withdraw(context.Background(), accountID, decimal.NewFromInt(50), "close out")
	require.NoError(t, err)
	require.True(t, account.Balance.IsZero())
	require.Equal(t, RecordTypeWithdrawal, rec.Type)
	require.NotNil(t, rec.SourceAccountID)
	require.Equal(t, accountID, *rec.SourceAccountID)
	require.Nil(t, rec.DestinationAccountID)
}

func TestTransferMovesFundsAtomically(t *testing.T) {
	repo := newMemoryLedgerRepo()
	source := repo.addAccount(decimal.NewFromInt(500), time.Now())
	dest := repo.addAccount(decimal.NewFromInt(100), time.Now())
	svc := newTestService(t, repo, nil, nil)

	rec, err := svc.Transfer(context.Background(), source, dest, decimal.NewFromInt(200), "rent")
	require.NoError(t, err)

	require.True(t, repo.accountBalance(source).Equal(decimal.NewFromInt(300)))
	require.True(t, repo.accountBalance(dest).Equal(decimal.NewFromInt(300)))
	require.Equal(t, RecordTypeTransfer, rec.Type)
	require.Equal(t, source, *rec.SourceAccountID)
	require.Equal(t, dest, *rec.DestinationAccountID)
}

func TestTransferInsufficientFundsTouchesNeitherBalance(t *testing.T) {
	repo := newMemoryLedgerRepo()
	source := repo.addAccount(decimal.NewFromInt(100), time.Now())
	dest := repo.addAccount(decimal.NewFromInt(100), time.Now())
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.Transfer(context.Background(), source, dest, decimal.NewFromInt(150), "")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	require.True(t, repo.accountBalance(source).Equal(decimal.NewFromInt(100)))
	require.True(t, repo.accountBalance(dest).Equal(decimal.NewFromInt(100)))
	records, err := svc.AllRecords(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestTransferSameAccountRejected(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(100), time.Now())
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.Transfer(context.Background(), accountID, accountID, decimal.NewFromInt(10), "")
	require.ErrorIs(t, err, ErrSameAccount)
}

func TestChainLinksEveryRecordToItsPredecessor(t *testing.T) {
	repo := newMemoryLedgerRepo()
	a := repo.addAccount(decimal.NewFromInt(1000), time.Now())
	b := repo.addAccount(decimal.NewFromInt(0), time.Now())
	svc := newTestService(t, repo, nil, nil)

	ctx := context.Background()
	_, _, err := svc.Deposit(ctx, a, decimal.NewFromInt(100), "one")
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, a, b, decimal.NewFromInt(300), "two")
	require.NoError(t, err)
	_, _, err = svc.Withdraw(ctx, b, decimal.NewFromInt(50), "three")
	require.NoError(t, err)

	records, err := svc.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, HashSentinel, records[0].PreviousHash)
	for i, rec := range records {
		require.Equal(t, HashRecord(rec), rec.Hash)
		if i > 0 {
			require.Equal(t, records[i-1].Hash, rec.PreviousHash)
		}
	}
}

func TestFraudFailureDoesNotFailTheMovement(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(0), time.Now())
	fraud := &stubFraud{err: errors.New("rule store down")}
	svc := newTestService(t, repo, fraud, nil)

	_, rec, err := svc.Deposit(context.Background(), accountID, decimal.NewFromInt(20000), "")
	require.NoError(t, err)
	require.Len(t, fraud.evaluated, 1)
	require.Equal(t, rec.ID, fraud.evaluated[0].ID)
}

func TestFraudPanicDoesNotFailTheMovement(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(0), time.Now())
	svc := newTestService(t, repo, &stubFraud{panics: true}, nil)

	_, _, err := svc.Deposit(context.Background(), accountID, decimal.NewFromInt(100), "")
	require.NoError(t, err)
	require.True(t, repo.accountBalance(accountID).Equal(decimal.NewFromInt(100)))
}

func TestFraudSkippedWhenMovementFails(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(10), time.Now())
	fraud := &stubFraud{}
	svc := newTestService(t, repo, fraud, nil)

	_, _, err := svc.Withdraw(context.Background(), accountID, decimal.NewFromInt(100), "")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Empty(t, fraud.evaluated)
}

func TestMetricsCountOutcomes(t *testing.T) {
	repo := newMemoryLedgerRepo()
	accountID := repo.addAccount(decimal.NewFromInt(100), time.Now())
	metrics := &stubMetrics{}
	svc := newTestService(t, repo, nil, metrics)

	ctx := context.Background()
	_, _, err := svc.Deposit(ctx, accountID, decimal.NewFromInt(10), "")
	require.NoError(t, err)
	_, _, err = svc.Withdraw(ctx, accountID, decimal.NewFromInt(5000), "")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	require.Equal(t, 1, metrics.counts["DEPOSIT/completed"])
	require.Equal(t, 1, metrics.counts["WITHDRAWAL/failed"])
}

func TestRecordsForAccountFiltersAndOrders(t *testing.T) {
	repo := newMemoryLedgerRepo()
	a := repo.addAccount(decimal.NewFromInt(1000), time.Now())
	b := repo.addAccount(decimal.NewFromInt(0), time.Now())
	c := repo.addAccount(decimal.NewFromInt(0), time.Now())
	svc := newTestService(t, repo, nil, nil)

	ctx := context.Background()
	_, _, err := svc.Deposit(ctx, c, decimal.NewFromInt(5), "unrelated")
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, a, b, decimal.NewFromInt(100), "first")
	require.NoError(t, err)
	_, _, err = svc.Withdraw(ctx, b, decimal.NewFromInt(10), "second")
	require.NoError(t, err)

	records, err := svc.RecordsForAccount(ctx, b)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Most recent first.
	require.Equal(t, RecordTypeWithdrawal, records[0].Type)
	require.Equal(t, RecordTypeTransfer, records[1].Type)
}

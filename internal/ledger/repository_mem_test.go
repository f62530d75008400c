package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-bank/meridian/internal/accounts"
)

// memoryLedgerRepo is an in-memory Repository for service tests. WithTx
// operates on a deep copy and swaps it in only when the closure succeeds,
// matching the all-or-nothing behaviour of the real transaction.
type memoryLedgerRepo struct {
	mu            sync.Mutex
	accounts      map[int64]accounts.Account
	records       []Record
	nextAccountID int64
	nextRecordID  int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		accounts:      make(map[int64]accounts.Account),
		nextAccountID: 1,
		nextRecordID:  1,
	}
}

func (m *memoryLedgerRepo) addAccount(balance decimal.Decimal, createdAt time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextAccountID
	m.nextAccountID++
	m.accounts[id] = accounts.Account{
		ID:         id,
		OwnerName:  "Test Owner",
		OwnerEmail: "owner@example.com",
		Balance:    balance,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	return id
}

func (m *memoryLedgerRepo) accountBalance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memoryLedgerRepo) storedRecord(id int64) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// tamper mutates a stored record in place, bypassing the append path.
func (m *memoryLedgerRepo) tamper(id int64, mutate func(*Record)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			mutate(&m.records[i])
			return
		}
	}
}

func (m *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryLedgerTx{
		accounts:     make(map[int64]accounts.Account, len(m.accounts)),
		records:      make([]Record, len(m.records)),
		nextRecordID: m.nextRecordID,
	}
	for id, a := range m.accounts {
		tx.accounts[id] = a
	}
	copy(tx.records, m.records)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.accounts = tx.accounts
	m.records = tx.records
	m.nextRecordID = tx.nextRecordID
	return nil
}

func (m *memoryLedgerRepo) AllRecords(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	sortChainOrder(out)
	return out, nil
}

func (m *memoryLedgerRepo) RecordsForAccount(ctx context.Context, accountID int64) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, rec := range m.records {
		if touches(rec, accountID) {
			out = append(out, rec)
		}
	}
	sortChainOrder(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *memoryLedgerRepo) GetRecord(ctx context.Context, id int64) (Record, error) {
	rec, ok := m.storedRecord(id)
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (m *memoryLedgerRepo) LatestChainPosition(ctx context.Context) (*ChainPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil, nil
	}
	sorted := make([]Record, len(m.records))
	copy(sorted, m.records)
	sortChainOrder(sorted)
	tail := sorted[len(sorted)-1]
	return &ChainPosition{Date: tail.TransactionDate, ID: tail.ID}, nil
}

func (m *memoryLedgerRepo) RecordPage(ctx context.Context, after *ChainPosition, upTo ChainPosition, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := make([]Record, len(m.records))
	copy(sorted, m.records)
	sortChainOrder(sorted)
	var out []Record
	for _, rec := range sorted {
		pos := ChainPosition{Date: rec.TransactionDate, ID: rec.ID}
		if after != nil && !positionAfter(pos, *after) {
			continue
		}
		if positionAfter(pos, upTo) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memoryLedgerTx struct {
	accounts     map[int64]accounts.Account
	records      []Record
	nextRecordID int64
}

func (t *memoryLedgerTx) GetAccountForUpdate(ctx context.Context, id int64) (accounts.Account, error) {
	account, ok := t.accounts[id]
	if !ok {
		return accounts.Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (t *memoryLedgerTx) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal, at time.Time) error {
	account, ok := t.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.Balance = balance
	account.UpdatedAt = at
	t.accounts[id] = account
	return nil
}

func (t *memoryLedgerTx) LatestHash(ctx context.Context) (string, error) {
	if len(t.records) == 0 {
		return HashSentinel, nil
	}
	sorted := make([]Record, len(t.records))
	copy(sorted, t.records)
	sortChainOrder(sorted)
	return sorted[len(sorted)-1].Hash, nil
}

func (t *memoryLedgerTx) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	rec.ID = t.nextRecordID
	t.nextRecordID++
	rec.Hash = ""
	t.records = append(t.records, rec)
	return rec, nil
}

func (t *memoryLedgerTx) SetRecordHash(ctx context.Context, id int64, hash string) error {
	for i := range t.records {
		if t.records[i].ID == id {
			t.records[i].Hash = hash
			return nil
		}
	}
	return ErrRecordNotFound
}

func (t *memoryLedgerTx) GetRecordForUpdate(ctx context.Context, id int64) (Record, error) {
	for _, rec := range t.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrRecordNotFound
}

func (t *memoryLedgerTx) MarkReversed(ctx context.Context, id int64) error {
	for i := range t.records {
		if t.records[i].ID == id {
			t.records[i].Status = RecordStatusReversed
			t.records[i].Reversed = true
			return nil
		}
	}
	return ErrRecordNotFound
}

func (t *memoryLedgerTx) LinkOriginalRecord(ctx context.Context, reversalID, originalID int64) error {
	for i := range t.records {
		if t.records[i].ID == reversalID {
			id := originalID
			t.records[i].OriginalRecordID = &id
			return nil
		}
	}
	return ErrRecordNotFound
}

func sortChainOrder(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].TransactionDate.Equal(records[j].TransactionDate) {
			return records[i].TransactionDate.Before(records[j].TransactionDate)
		}
		return records[i].ID < records[j].ID
	})
}

func positionAfter(a, b ChainPosition) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}

func touches(rec Record, accountID int64) bool {
	if rec.SourceAccountID != nil && *rec.SourceAccountID == accountID {
		return true
	}
	return rec.DestinationAccountID != nil && *rec.DestinationAccountID == accountID
}

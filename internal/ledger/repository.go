package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-bank/meridian/internal/accounts"
)

// Repository encapsulates DB operations for the transaction log. Reads run
// against the pool and are never blocked by the append critical section.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	AllRecords(ctx context.Context) ([]Record, error)
	RecordsForAccount(ctx context.Context, accountID int64) ([]Record, error)
	GetRecord(ctx context.Context, id int64) (Record, error)
	// LatestChainPosition returns the chain tail at call time, or nil on an
	// empty log. Used as the integrity-scan watermark.
	LatestChainPosition(ctx context.Context) (*ChainPosition, error)
	// RecordPage returns records strictly after the cursor and no later than
	// the watermark, in chain order.
	RecordPage(ctx context.Context, after *ChainPosition, upTo ChainPosition, limit int) ([]Record, error)
}

// TxRepository exposes the operations available inside an append transaction.
// It touches the accounts table directly so balance mutation and record
// insertion commit or roll back as one unit.
type TxRepository interface {
	GetAccountForUpdate(ctx context.Context, id int64) (accounts.Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal, at time.Time) error
	LatestHash(ctx context.Context) (string, error)
	InsertRecord(ctx context.Context, r Record) (Record, error)
	SetRecordHash(ctx context.Context, id int64, hash string) error
	GetRecordForUpdate(ctx context.Context, id int64) (Record, error)
	MarkReversed(ctx context.Context, id int64) error
	LinkOriginalRecord(ctx context.Context, reversalID, originalID int64) error
}

const recordColumns = `id, type, amount::text, description, source_account_id, destination_account_id, transaction_date, transaction_hash, previous_transaction_hash, status, reversed, original_record_id`

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) AllRecords(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM ledger_records ORDER BY transaction_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *repository) RecordsForAccount(ctx context.Context, accountID int64) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM ledger_records
WHERE source_account_id=$1 OR destination_account_id=$1
ORDER BY transaction_date DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *repository) GetRecord(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM ledger_records WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *repository) LatestChainPosition(ctx context.Context) (*ChainPosition, error) {
	var pos ChainPosition
	err := r.db.QueryRow(ctx, `SELECT transaction_date, id FROM ledger_records
ORDER BY transaction_date DESC, id DESC LIMIT 1`).Scan(&pos.Date, &pos.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pos, nil
}

func (r *repository) RecordPage(ctx context.Context, after *ChainPosition, upTo ChainPosition, limit int) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM ledger_records WHERE (transaction_date, id) <= ($1, $2)`
	args := []any{upTo.Date, upTo.ID}
	if after != nil {
		query += ` AND (transaction_date, id) > ($3, $4)`
		args = append(args, after.Date, after.ID)
	}
	query += fmt.Sprintf(` ORDER BY transaction_date ASC, id ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, id int64) (accounts.Account, error) {
	var (
		account accounts.Account
		balance string
	)
	err := r.tx.QueryRow(ctx, `SELECT id, owner_name, owner_email, balance::text, created_at, updated_at
FROM accounts WHERE id=$1 FOR UPDATE`, id).
		Scan(&account.ID, &account.OwnerName, &account.OwnerEmail, &balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, ErrAccountNotFound
		}
		return accounts.Account{}, err
	}
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return accounts.Account{}, err
	}
	return account, nil
}

func (r *txRepository) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance=$2, updated_at=$3 WHERE id=$1`, id, toNumeric(balance), at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) LatestHash(ctx context.Context) (string, error) {
	var hash string
	err := r.tx.QueryRow(ctx, `SELECT transaction_hash FROM ledger_records
ORDER BY transaction_date DESC, id DESC LIMIT 1`).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return HashSentinel, nil
		}
		return "", err
	}
	return hash, nil
}

// InsertRecord persists a provisional record without its hash. The id is
// assigned by the store and is part of the hash input, so the hash is set
// by a second write once known.
func (r *txRepository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ledger_records
(type, amount, description, source_account_id, destination_account_id, transaction_date, transaction_hash, previous_transaction_hash, status, reversed)
VALUES ($1,$2,$3,$4,$5,$6,'',$7,$8,false) RETURNING id`,
		rec.Type, toNumeric(rec.Amount), rec.Description, nullableID(rec.SourceAccountID), nullableID(rec.DestinationAccountID),
		rec.TransactionDate, rec.PreviousHash, rec.Status).Scan(&rec.ID)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *txRepository) SetRecordHash(ctx context.Context, id int64, hash string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_records SET transaction_hash=$2 WHERE id=$1`, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *txRepository) GetRecordForUpdate(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(r.tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM ledger_records WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *txRepository) MarkReversed(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_records SET status=$2, reversed=true WHERE id=$1`, id, RecordStatusReversed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *txRepository) LinkOriginalRecord(ctx context.Context, reversalID, originalID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_records SET original_record_id=$2 WHERE id=$1`, reversalID, originalID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec    Record
		amount string
	)
	err := row.Scan(&rec.ID, &rec.Type, &amount, &rec.Description, &rec.SourceAccountID, &rec.DestinationAccountID,
		&rec.TransactionDate, &rec.Hash, &rec.PreviousHash, &rec.Status, &rec.Reversed, &rec.OriginalRecordID)
	if err != nil {
		return Record{}, err
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Helpers
func nullableID(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}

func toNumeric(v decimal.Decimal) string {
	return v.StringFixed(AmountScale)
}

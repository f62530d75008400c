package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository encapsulates DB operations for accounts.
type Repository interface {
	Create(ctx context.Context, ownerName, ownerEmail string, openedAt time.Time) (Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	List(ctx context.Context) ([]Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ownerName, ownerEmail string, openedAt time.Time) (Account, error) {
	account := Account{
		OwnerName:  ownerName,
		OwnerEmail: ownerEmail,
		Balance:    decimal.Zero,
		CreatedAt:  openedAt,
		UpdatedAt:  openedAt,
	}
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (owner_name, owner_email, balance, created_at, updated_at)
VALUES ($1,$2,0,$3,$3) RETURNING id`, ownerName, ownerEmail, openedAt).Scan(&account.ID)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	var (
		account Account
		balance string
	)
	err := r.db.QueryRow(ctx, `SELECT id, owner_name, owner_email, balance::text, created_at, updated_at
FROM accounts WHERE id=$1`, id).
		Scan(&account.ID, &account.OwnerName, &account.OwnerEmail, &balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, owner_name, owner_email, balance::text, created_at, updated_at
FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var (
			account Account
			balance string
		)
		if err := rows.Scan(&account.ID, &account.OwnerName, &account.OwnerEmail, &balance, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, err
		}
		if account.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

package fraud

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository encapsulates DB operations for fraud alerts. The velocity
// count reads the ledger_records table directly; the unique index on
// (record_id, alert_type) backs idempotent alert creation.
type Repository interface {
	// UpsertAlert creates a PENDING alert for (recordID, alertType) or
	// returns the existing one unchanged. created reports which happened.
	UpsertAlert(ctx context.Context, recordID int64, alertType AlertType, at time.Time) (alert Alert, created bool, err error)
	GetAlert(ctx context.Context, id int64) (Alert, error)
	ListByStatus(ctx context.Context, status AlertStatus) ([]Alert, error)
	UpdateStatus(ctx context.Context, id int64, status AlertStatus, at time.Time) (Alert, error)
	CountLargeRecordsForAccount(ctx context.Context, accountID int64, threshold decimal.Decimal, since time.Time) (int, error)
}

const alertColumns = `id, record_id, alert_type, status, created_at, updated_at`

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) UpsertAlert(ctx context.Context, recordID int64, alertType AlertType, at time.Time) (Alert, bool, error) {
	var alert Alert
	err := r.db.QueryRow(ctx, `INSERT INTO fraud_alerts (record_id, alert_type, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (record_id, alert_type) DO NOTHING
RETURNING `+alertColumns, recordID, alertType, AlertStatusPending, at).
		Scan(&alert.ID, &alert.RecordID, &alert.Type, &alert.Status, &alert.CreatedAt, &alert.UpdatedAt)
	if err == nil {
		return alert, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, false, err
	}
	// Conflict: the (record, type) alert already exists.
	err = r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM fraud_alerts WHERE record_id=$1 AND alert_type=$2`, recordID, alertType).
		Scan(&alert.ID, &alert.RecordID, &alert.Type, &alert.Status, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		return Alert{}, false, err
	}
	return alert, false, nil
}

func (r *repository) GetAlert(ctx context.Context, id int64) (Alert, error) {
	var alert Alert
	err := r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM fraud_alerts WHERE id=$1`, id).
		Scan(&alert.ID, &alert.RecordID, &alert.Type, &alert.Status, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, ErrAlertNotFound
		}
		return Alert{}, err
	}
	return alert, nil
}

func (r *repository) ListByStatus(ctx context.Context, status AlertStatus) ([]Alert, error) {
	rows, err := r.db.Query(ctx, `SELECT `+alertColumns+` FROM fraud_alerts WHERE status=$1 ORDER BY created_at DESC, id DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Alert
	for rows.Next() {
		var alert Alert
		if err := rows.Scan(&alert.ID, &alert.RecordID, &alert.Type, &alert.Status, &alert.CreatedAt, &alert.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status AlertStatus, at time.Time) (Alert, error) {
	var alert Alert
	err := r.db.QueryRow(ctx, `UPDATE fraud_alerts SET status=$2, updated_at=$3 WHERE id=$1 RETURNING `+alertColumns,
		id, status, at).
		Scan(&alert.ID, &alert.RecordID, &alert.Type, &alert.Status, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, ErrAlertNotFound
		}
		return Alert{}, err
	}
	return alert, nil
}

func (r *repository) CountLargeRecordsForAccount(ctx context.Context, accountID int64, threshold decimal.Decimal, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_records
WHERE (source_account_id=$1 OR destination_account_id=$1)
  AND amount >= $2
  AND transaction_date >= $3`, accountID, threshold.StringFixed(4), since).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

package finance

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InsertTx appends a feed row inside a caller-owned transaction so the feed
// can never diverge from the wallet debit it mirrors.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, ft FinancialTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO financial_transactions (school_id, student_id, type, amount_kobo, reference, payment_method, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ft.SchoolID, ft.StudentID, ft.Type, ft.AmountKobo, ft.Reference, ft.PaymentMethod, ft.Description, ft.Status)
	return err
}

func (r *Repository) List(ctx context.Context, schoolID, limit, offset int) ([]FinancialTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	fts := []FinancialTransaction{}
	err := r.db.SelectContext(ctx, &fts, `
		SELECT id, school_id, student_id, type, amount_kobo, reference, payment_method, description, status, created_at
		FROM financial_transactions
		WHERE school_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, schoolID, limit, offset)
	if err != nil {
		return nil, err
	}

	return fts, nil
}

func (r *Repository) SummaryByDay(ctx context.Context, schoolID int, from, to time.Time) ([]DailySummary, error) {
	query := `
SELECT
  DATE(created_at)::text AS bucket,
  COUNT(*)               AS count,
  COALESCE(SUM(amount_kobo), 0) AS total_kobo
FROM financial_transactions
WHERE school_id = $1 AND created_at BETWEEN $2 AND $3
GROUP BY DATE(created_at)
ORDER BY bucket;
`
	var stats []DailySummary
	if err := r.db.SelectContext(ctx, &stats, query, schoolID, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *Repository) SummaryByMethod(ctx context.Context, schoolID int, from, to time.Time) ([]MethodSummary, error) {
	query := `
SELECT
  payment_method,
  COUNT(*)               AS count,
  COALESCE(SUM(amount_kobo), 0) AS total_kobo
FROM financial_transactions
WHERE school_id = $1 AND created_at BETWEEN $2 AND $3
GROUP BY payment_method
ORDER BY total_kobo DESC;
`
	var stats []MethodSummary
	if err := r.db.SelectContext(ctx, &stats, query, schoolID, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

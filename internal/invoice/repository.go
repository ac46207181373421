package invoice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, schoolID int, req CreateInvoiceRequest) (*Invoice, error) {
	inv := &Invoice{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO invoices (id, school_id, student_id, amount_kobo, description, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, school_id, student_id, amount_kobo, description, status, payment_method, transaction_ref, paid_date, created_at
	`, "INV-"+uuid.NewString(), schoolID, req.StudentID, req.AmountKobo, req.Description).StructScan(inv)

	return inv, err
}

func (r *Repository) GetByID(ctx context.Context, schoolID int, id string) (*Invoice, error) {
	inv := &Invoice{}
	err := r.db.GetContext(ctx, inv, `
		SELECT id, school_id, student_id, amount_kobo, description, status, payment_method, transaction_ref, paid_date, created_at
		FROM invoices
		WHERE id = $1 AND school_id = $2
	`, id, schoolID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}

	return inv, nil
}

func (r *Repository) ListBySchool(ctx context.Context, schoolID int, status string) ([]Invoice, error) {
	invs := []Invoice{}
	query := `
		SELECT id, school_id, student_id, amount_kobo, description, status, payment_method, transaction_ref, paid_date, created_at
		FROM invoices
		WHERE school_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &invs, query, schoolID, status); err != nil {
		return nil, err
	}

	return invs, nil
}

func (r *Repository) ListByStudent(ctx context.Context, schoolID, studentID int) ([]Invoice, error) {
	invs := []Invoice{}
	err := r.db.SelectContext(ctx, &invs, `
		SELECT id, school_id, student_id, amount_kobo, description, status, payment_method, transaction_ref, paid_date, created_at
		FROM invoices
		WHERE school_id = $1 AND student_id = $2
		ORDER BY created_at DESC
	`, schoolID, studentID)
	if err != nil {
		return nil, err
	}

	return invs, nil
}

// MarkPaidTx settles an invoice inside a caller-owned transaction so the
// status flip commits or rolls back together with the wallet debit.
func (r *Repository) MarkPaidTx(ctx context.Context, tx *sqlx.Tx, schoolID int, id, paymentMethod, transactionRef string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'paid', payment_method = $1, transaction_ref = $2, paid_date = NOW()
		WHERE id = $3 AND school_id = $4 AND status = 'pending'
	`, paymentMethod, transactionRef, id, schoolID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Zero rows means either no such invoice or one already settled.
		var status Status
		err := tx.GetContext(ctx, &status, `
			SELECT status FROM invoices WHERE id = $1 AND school_id = $2
		`, id, schoolID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvoiceNotFound
		}
		if err != nil {
			return err
		}
		if status == StatusPaid {
			return ErrInvoiceAlreadyPaid
		}
		return ErrInvoiceNotFound
	}

	return nil
}

package invoice

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

type Invoice struct {
	ID             string         `db:"id" json:"id"`
	SchoolID       int            `db:"school_id" json:"school_id"`
	StudentID      int            `db:"student_id" json:"student_id"`
	AmountKobo     int64          `db:"amount_kobo" json:"amount_kobo"`
	Description    string         `db:"description" json:"description"`
	Status         Status         `db:"status" json:"status"`
	PaymentMethod  sql.NullString `db:"payment_method" json:"payment_method,omitempty" swaggertype:"string"`
	TransactionRef sql.NullString `db:"transaction_ref" json:"transaction_ref,omitempty" swaggertype:"string"`
	PaidDate       sql.NullTime   `db:"paid_date" json:"paid_date,omitempty" swaggertype:"string"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

type CreateInvoiceRequest struct {
	StudentID   int    `json:"student_id" binding:"required"`
	AmountKobo  int64  `json:"amount_kobo" binding:"required,gt=0"`
	Description string `json:"description" binding:"required"`
}

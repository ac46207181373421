package finance

import "time"

// FinancialTransaction is the school-wide fee ledger row the reporting
// dashboards read. The wallet appends to it; this package never mutates
// wallet state.
type FinancialTransaction struct {
	ID            int       `db:"id" json:"id"`
	SchoolID      int       `db:"school_id" json:"school_id"`
	StudentID     int       `db:"student_id" json:"student_id"`
	Type          string    `db:"type" json:"type"` // fee_payment
	AmountKobo    int64     `db:"amount_kobo" json:"amount_kobo"`
	Reference     string    `db:"reference" json:"reference"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Description   string    `db:"description" json:"description"`
	Status        string    `db:"status" json:"status"` // completed
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type DailySummary struct {
	Bucket    string `db:"bucket" json:"bucket"`
	Count     int    `db:"count" json:"count"`
	TotalKobo int64  `db:"total_kobo" json:"total_kobo"`
}

type MethodSummary struct {
	PaymentMethod string `db:"payment_method" json:"payment_method"`
	Count         int    `db:"count" json:"count"`
	TotalKobo     int64  `db:"total_kobo" json:"total_kobo"`
}

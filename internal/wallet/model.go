package wallet

import "time"

const (
	TypeCredit   = "credit"
	TypeDebit    = "debit"
	TypeTransfer = "transfer"

	DirectionIn  = "in"
	DirectionOut = "out"
)

// Wallet is a parent's prepaid balance, one per (school, parent) pair.
// Amounts are kobo.
type Wallet struct {
	ID              int       `db:"id" json:"id"`
	SchoolID        int       `db:"school_id" json:"school_id"`
	ParentID        int       `db:"parent_id" json:"parent_id"`
	BalanceKobo     int64     `db:"balance_kobo" json:"balance_kobo"`
	TotalFundedKobo int64     `db:"total_funded_kobo" json:"total_funded_kobo"`
	TotalSpentKobo  int64     `db:"total_spent_kobo" json:"total_spent_kobo"`
	Currency        string    `db:"currency" json:"currency"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only ledger entry. WalletID points at the row the
// entry mutated; balance snapshots are written in the same database
// transaction as the balance change so the two cannot diverge.
type Transaction struct {
	ID                int       `db:"id" json:"id"`
	WalletID          int       `db:"wallet_id" json:"wallet_id"`
	SchoolID          int       `db:"school_id" json:"school_id"`
	UserID            int       `db:"user_id" json:"user_id"`
	Type              string    `db:"type" json:"type"`
	Direction         string    `db:"direction" json:"direction"`
	AmountKobo        int64     `db:"amount_kobo" json:"amount_kobo"`
	Description       string    `db:"description" json:"description"`
	Reference         string    `db:"reference" json:"reference"`
	BalanceBeforeKobo int64     `db:"balance_before_kobo" json:"balance_before_kobo"`
	BalanceAfterKobo  int64     `db:"balance_after_kobo" json:"balance_after_kobo"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type SpendParams struct {
	SchoolID    int
	ParentID    int
	StudentID   int
	AmountKobo  int64
	Description string
	InvoiceID   string
}

type FundIntentRequest struct {
	AmountKobo int64  `json:"amount_kobo" binding:"required,gt=0"`
	Method     string `json:"method" binding:"required,oneof=card bank_transfer ussd"`
}

type FundRequest struct {
	AmountKobo int64  `json:"amount_kobo" binding:"required,gt=0"`
	Reference  string `json:"reference" binding:"required"`
}

type SpendRequest struct {
	StudentID   int    `json:"student_id" binding:"required"`
	AmountKobo  int64  `json:"amount_kobo" binding:"required,gt=0"`
	Description string `json:"description" binding:"required"`
	InvoiceID   string `json:"invoice_id"`
}

type TransferRequest struct {
	ToParentID int    `json:"to_parent_id" binding:"required"`
	AmountKobo int64  `json:"amount_kobo" binding:"required,gt=0"`
	Reason     string `json:"reason"`
}

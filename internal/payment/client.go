package payment

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var ErrIntentNotFound = errors.New("payment intent not found")

// Intent is the payment authority's record of one charge. The wallet trusts
// a succeeded intent as proof of funds; the intent id doubles as the ledger
// reference so a given charge can fund a wallet at most once.
type Intent struct {
	ID         string    `json:"id"`
	SchoolID   int       `json:"school_id"`
	ParentID   int       `json:"parent_id"`
	AmountKobo int64     `json:"amount_kobo"`
	Method     string    `json:"method"` // card, bank_transfer, ussd
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateIntentRequest struct {
	SchoolID   int
	ParentID   int
	AmountKobo int64
	Method     string
}

type Client interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	VerifyIntent(ctx context.Context, id string) (*Intent, error)
}

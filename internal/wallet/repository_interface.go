package wallet

import "context"

type Repository interface {
	GetOrCreate(ctx context.Context, schoolID, parentID int) (*Wallet, error)
	Fund(ctx context.Context, schoolID, parentID int, amountKobo int64, reference, description string) (*Wallet, error)
	Spend(ctx context.Context, p SpendParams) (*Wallet, error)
	Transfer(ctx context.Context, schoolID, fromParentID, toParentID int, amountKobo int64, reason string) (string, error)
	ListTransactions(ctx context.Context, schoolID, userID, limit int) ([]Transaction, error)
}

package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"educore/internal/finance"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// invoiceMarker and feedWriter are the two downstream tables a spend touches.
// Both writes happen inside the wallet's own database transaction so a debit
// can never commit without its feed row or invoice flip.
type invoiceMarker interface {
	MarkPaidTx(ctx context.Context, tx *sqlx.Tx, schoolID int, id, paymentMethod, transactionRef string) error
}

type feedWriter interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, ft finance.FinancialTransaction) error
}

type repository struct {
	db       *sqlx.DB
	invoices invoiceMarker
	feed     feedWriter
}

func NewRepository(db *sqlx.DB, invoices invoiceMarker, feed feedWriter) Repository {
	return &repository{db: db, invoices: invoices, feed: feed}
}

func (r *repository) GetOrCreate(ctx context.Context, schoolID, parentID int) (*Wallet, error) {
	// Upsert first so concurrent first-access cannot create two wallets.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (school_id, parent_id)
		VALUES ($1, $2)
		ON CONFLICT (school_id, parent_id) DO NOTHING
	`, schoolID, parentID)
	if err != nil {
		return nil, err
	}

	w := &Wallet{}
	err = r.db.GetContext(ctx, w, `
		SELECT id, school_id, parent_id, balance_kobo, total_funded_kobo, total_spent_kobo, currency, created_at, updated_at
		FROM wallets
		WHERE school_id = $1 AND parent_id = $2
	`, schoolID, parentID)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// lockWallet takes the row lock that serialises all balance mutations for one
// wallet. Concurrent funds and spends queue behind it instead of clobbering
// each other's balance.
func lockWallet(ctx context.Context, tx *sqlx.Tx, schoolID, parentID int) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx, `
		SELECT id, school_id, parent_id, balance_kobo, total_funded_kobo, total_spent_kobo, currency, created_at, updated_at
		FROM wallets
		WHERE school_id = $1 AND parent_id = $2
		FOR UPDATE
	`, schoolID, parentID).StructScan(w)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	return w, nil
}

func updateBalances(ctx context.Context, tx *sqlx.Tx, w *Wallet) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance_kobo = $1, total_funded_kobo = $2, total_spent_kobo = $3, updated_at = NOW()
		WHERE id = $4
	`, w.BalanceKobo, w.TotalFundedKobo, w.TotalSpentKobo, w.ID)
	return err
}

func appendEntry(ctx context.Context, tx *sqlx.Tx, t Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (wallet_id, school_id, user_id, type, direction, amount_kobo, description, reference, balance_before_kobo, balance_after_kobo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.WalletID, t.SchoolID, t.UserID, t.Type, t.Direction, t.AmountKobo, t.Description, t.Reference, t.BalanceBeforeKobo, t.BalanceAfterKobo)
	if isUniqueViolation(err) {
		return ErrDuplicateReference
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) Fund(ctx context.Context, schoolID, parentID int, amountKobo int64, reference, description string) (*Wallet, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockWallet(ctx, tx, schoolID, parentID)
	if errors.Is(err, ErrWalletNotFound) {
		// First credit creates the wallet. A concurrent first credit may win
		// the creation race while this tx is inside the upsert; either way
		// both converge on the committed row and queue on its lock.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallets (school_id, parent_id)
			VALUES ($1, $2)
			ON CONFLICT (school_id, parent_id) DO NOTHING
		`, schoolID, parentID)
		if err != nil {
			return nil, err
		}
		w, err = lockWallet(ctx, tx, schoolID, parentID)
	}
	if err != nil {
		return nil, err
	}

	before := w.BalanceKobo
	w.BalanceKobo += amountKobo
	w.TotalFundedKobo += amountKobo

	if err := updateBalances(ctx, tx, w); err != nil {
		return nil, err
	}

	if err := appendEntry(ctx, tx, Transaction{
		WalletID:          w.ID,
		SchoolID:          schoolID,
		UserID:            parentID,
		Type:              TypeCredit,
		Direction:         DirectionIn,
		AmountKobo:        amountKobo,
		Description:       description,
		Reference:         reference,
		BalanceBeforeKobo: before,
		BalanceAfterKobo:  w.BalanceKobo,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return w, nil
}

func (r *repository) Spend(ctx context.Context, p SpendParams) (*Wallet, error) {
	if p.AmountKobo <= 0 {
		return nil, ErrInvalidAmount
	}

	reference := "WALLET-" + p.InvoiceID
	if p.InvoiceID == "" {
		reference = "WALLET-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := lockWallet(ctx, tx, p.SchoolID, p.ParentID)
	if err != nil {
		return nil, err
	}

	if w.BalanceKobo < p.AmountKobo {
		return nil, &InsufficientFundsError{
			AvailableKobo: w.BalanceKobo,
			RequestedKobo: p.AmountKobo,
		}
	}

	before := w.BalanceKobo
	w.BalanceKobo -= p.AmountKobo
	w.TotalSpentKobo += p.AmountKobo

	if err := updateBalances(ctx, tx, w); err != nil {
		return nil, err
	}

	if err := appendEntry(ctx, tx, Transaction{
		WalletID:          w.ID,
		SchoolID:          p.SchoolID,
		UserID:            p.ParentID,
		Type:              TypeDebit,
		Direction:         DirectionOut,
		AmountKobo:        p.AmountKobo,
		Description:       p.Description,
		Reference:         reference,
		BalanceBeforeKobo: before,
		BalanceAfterKobo:  w.BalanceKobo,
	}); err != nil {
		return nil, err
	}

	if err := r.feed.InsertTx(ctx, tx, finance.FinancialTransaction{
		SchoolID:      p.SchoolID,
		StudentID:     p.StudentID,
		Type:          "fee_payment",
		AmountKobo:    p.AmountKobo,
		Reference:     reference,
		PaymentMethod: "wallet",
		Description:   p.Description,
		Status:        "completed",
	}); err != nil {
		return nil, err
	}

	if p.InvoiceID != "" {
		if err := r.invoices.MarkPaidTx(ctx, tx, p.SchoolID, p.InvoiceID, "wallet", reference); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return w, nil
}

func (r *repository) Transfer(ctx context.Context, schoolID, fromParentID, toParentID int, amountKobo int64, reason string) (string, error) {
	if amountKobo <= 0 {
		return "", ErrInvalidAmount
	}
	if fromParentID == toParentID {
		return "", ErrSameWallet
	}

	reference := "TRF-" + uuid.NewString()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	// Lock in parent id order so two opposing transfers cannot deadlock.
	firstID, secondID := fromParentID, toParentID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := lockWallet(ctx, tx, schoolID, firstID)
	if err != nil {
		return "", err
	}
	second, err := lockWallet(ctx, tx, schoolID, secondID)
	if err != nil {
		return "", err
	}

	from, to := first, second
	if first.ParentID != fromParentID {
		from, to = second, first
	}

	if from.BalanceKobo < amountKobo {
		return "", &InsufficientFundsError{
			AvailableKobo: from.BalanceKobo,
			RequestedKobo: amountKobo,
		}
	}

	fromBefore := from.BalanceKobo
	toBefore := to.BalanceKobo
	from.BalanceKobo -= amountKobo
	to.BalanceKobo += amountKobo

	if err := updateBalances(ctx, tx, from); err != nil {
		return "", err
	}
	if err := updateBalances(ctx, tx, to); err != nil {
		return "", err
	}

	outDesc := fmt.Sprintf("Transfer to parent %d", toParentID)
	inDesc := fmt.Sprintf("Transfer from parent %d", fromParentID)
	if reason != "" {
		outDesc += ": " + reason
		inDesc += ": " + reason
	}

	if err := appendEntry(ctx, tx, Transaction{
		WalletID:          from.ID,
		SchoolID:          schoolID,
		UserID:            fromParentID,
		Type:              TypeTransfer,
		Direction:         DirectionOut,
		AmountKobo:        amountKobo,
		Description:       outDesc,
		Reference:         reference,
		BalanceBeforeKobo: fromBefore,
		BalanceAfterKobo:  from.BalanceKobo,
	}); err != nil {
		return "", err
	}

	if err := appendEntry(ctx, tx, Transaction{
		WalletID:          to.ID,
		SchoolID:          schoolID,
		UserID:            toParentID,
		Type:              TypeTransfer,
		Direction:         DirectionIn,
		AmountKobo:        amountKobo,
		Description:       inDesc,
		Reference:         reference,
		BalanceBeforeKobo: toBefore,
		BalanceAfterKobo:  to.BalanceKobo,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return reference, nil
}

func (r *repository) ListTransactions(ctx context.Context, schoolID, userID, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, school_id, user_id, type, direction, amount_kobo, description, reference, balance_before_kobo, balance_after_kobo, created_at
		FROM wallet_transactions
		WHERE school_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, schoolID, userID, limit)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

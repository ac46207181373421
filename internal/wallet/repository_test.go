package wallet

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"educore/internal/finance"
	"educore/internal/invoice"
	"educore/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

var walletColumns = []string{"id", "school_id", "parent_id", "balance_kobo", "total_funded_kobo", "total_spent_kobo", "currency", "created_at", "updated_at"}

func walletRow(id, schoolID, parentID int, balance, funded, spent int64) *sqlmock.Rows {
	return sqlmock.NewRows(walletColumns).
		AddRow(id, schoolID, parentID, balance, funded, spent, "NGN", time.Now(), time.Now())
}

func setupRepoMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB, invoice.NewRepository(sqlxDB), finance.NewRepository(sqlxDB))

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

const (
	selectWalletSQL = "SELECT id, school_id, parent_id, balance_kobo, total_funded_kobo, total_spent_kobo, currency, created_at, updated_at FROM wallets WHERE school_id = $1 AND parent_id = $2"
	lockWalletSQL   = selectWalletSQL + " FOR UPDATE"
	updateWalletSQL = "UPDATE wallets SET balance_kobo = $1, total_funded_kobo = $2, total_spent_kobo = $3, updated_at = NOW() WHERE id = $4"
	insertEntrySQL  = "INSERT INTO wallet_transactions (wallet_id, school_id, user_id, type, direction, amount_kobo, description, reference, balance_before_kobo, balance_after_kobo) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
)

func TestGetOrCreate_CreatesOnFirstAccess(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (school_id, parent_id) VALUES ($1, $2) ON CONFLICT (school_id, parent_id) DO NOTHING")).
		WithArgs(42, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(regexp.QuoteMeta(selectWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 0, 0, 0))

	w, err := repo.GetOrCreate(context.Background(), 42, 3)
	require.NoError(t, err)
	require.Equal(t, 7, w.ID)
	require.Equal(t, int64(0), w.BalanceKobo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFund_CreditsAndAppendsLedger(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 2000, 2000, 0))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(7000, 7000, 0, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(7, 42, 3, TypeCredit, DirectionIn, 5000, "Wallet funding via card", "pay_1", 2000, 7000).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectCommit()

	w, err := repo.Fund(context.Background(), 42, 3, 5000, "pay_1", "Wallet funding via card")
	require.NoError(t, err)
	require.Equal(t, int64(7000), w.BalanceKobo)
	require.Equal(t, int64(7000), w.TotalFundedKobo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFund_FirstCreditCreatesWallet(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (school_id, parent_id) VALUES ($1, $2) ON CONFLICT (school_id, parent_id) DO NOTHING")).
		WithArgs(42, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 0, 0, 0))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(5000, 5000, 0, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(7, 42, 3, TypeCredit, DirectionIn, 5000, "Wallet funding via card", "pay_1", 0, 5000).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectCommit()

	w, err := repo.Fund(context.Background(), 42, 3, 5000, "pay_1", "Wallet funding via card")
	require.NoError(t, err)
	require.Equal(t, int64(5000), w.BalanceKobo)
	require.Equal(t, int64(5000), w.TotalFundedKobo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFund_LosingCreationRaceConverges(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	// The lock sees no row because a concurrent first credit has not
	// committed its wallet yet.
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnError(sql.ErrNoRows)

	// The upsert waits out the winner and inserts nothing.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets (school_id, parent_id) VALUES ($1, $2) ON CONFLICT (school_id, parent_id) DO NOTHING")).
		WithArgs(42, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Re-locking finds the winner's committed wallet, already credited.
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 1000, 1000, 0))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(6000, 6000, 0, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(7, 42, 3, TypeCredit, DirectionIn, 5000, "Wallet funding via card", "pay_2", 1000, 6000).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectCommit()

	w, err := repo.Fund(context.Background(), 42, 3, 5000, "pay_2", "Wallet funding via card")
	require.NoError(t, err)
	require.Equal(t, int64(6000), w.BalanceKobo)
	require.Equal(t, int64(6000), w.TotalFundedKobo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFund_DuplicateReferenceRejected(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 2000, 2000, 0))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(7000, 7000, 0, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(7, 42, 3, TypeCredit, DirectionIn, 5000, "Wallet funding via card", "pay_1", 2000, 7000).
		WillReturnError(&pq.Error{Code: "23505"})

	mock.ExpectRollback()

	_, err := repo.Fund(context.Background(), 42, 3, 5000, "pay_1", "Wallet funding via card")
	require.ErrorIs(t, err, ErrDuplicateReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpend_InsufficientFundsLeavesBalanceUntouched(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 2000, 2000, 0))

	mock.ExpectRollback()

	_, err := repo.Spend(context.Background(), SpendParams{
		SchoolID:    42,
		ParentID:    3,
		StudentID:   11,
		AmountKobo:  5000,
		Description: "School Fees",
	})

	var insufficient *InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(2000), insufficient.AvailableKobo)
	assert.Equal(t, int64(5000), insufficient.RequestedKobo)
	assert.Contains(t, insufficient.Error(), "NGN 20.00")
	assert.Contains(t, insufficient.Error(), "NGN 50.00")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpend_SettlesInvoiceInOneTransaction(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 5000, 5000, 0))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(2000, 5000, 3000, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(7, 42, 3, TypeDebit, DirectionOut, 3000, "School Fees", "WALLET-INV1", 5000, 2000).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO financial_transactions (school_id, student_id, type, amount_kobo, reference, payment_method, description, status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)")).
		WithArgs(42, 11, "fee_payment", 3000, "WALLET-INV1", "wallet", "School Fees", "completed").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET status = 'paid', payment_method = $1, transaction_ref = $2, paid_date = NOW() WHERE id = $3 AND school_id = $4 AND status = 'pending'")).
		WithArgs("wallet", "WALLET-INV1", "INV1", 42).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	w, err := repo.Spend(context.Background(), SpendParams{
		SchoolID:    42,
		ParentID:    3,
		StudentID:   11,
		AmountKobo:  3000,
		Description: "School Fees",
		InvoiceID:   "INV1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), w.BalanceKobo)
	assert.Equal(t, int64(3000), w.TotalSpentKobo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpend_MissingInvoiceRollsEverythingBack(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(7, 42, 3, 5000, 5000, 0))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(2000, 5000, 3000, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(7, 42, 3, TypeDebit, DirectionOut, 3000, "School Fees", "WALLET-INV9", 5000, 2000).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO financial_transactions (school_id, student_id, type, amount_kobo, reference, payment_method, description, status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)")).
		WithArgs(42, 11, "fee_payment", 3000, "WALLET-INV9", "wallet", "School Fees", "completed").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// No pending invoice with that id: zero rows flipped, the whole spend aborts.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET status = 'paid', payment_method = $1, transaction_ref = $2, paid_date = NOW() WHERE id = $3 AND school_id = $4 AND status = 'pending'")).
		WithArgs("wallet", "WALLET-INV9", "INV9", 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM invoices WHERE id = $1 AND school_id = $2")).
		WithArgs("INV9", 42).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectRollback()

	_, err := repo.Spend(context.Background(), SpendParams{
		SchoolID:    42,
		ParentID:    3,
		StudentID:   11,
		AmountKobo:  3000,
		Description: "School Fees",
		InvoiceID:   "INV9",
	})
	require.ErrorIs(t, err, invoice.ErrInvoiceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_MovesBothBalancesAtomically(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	// Lock order follows parent ids: 3 before 9.
	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(1, 42, 3, 100000, 100000, 0))

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 9).
		WillReturnRows(walletRow(2, 42, 9, 0, 0, 0))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(0, 100000, 0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(updateWalletSQL)).
		WithArgs(100000, 0, 0, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(1, 42, 3, TypeTransfer, DirectionOut, 100000, "Transfer to parent 9: textbooks", sqlmock.AnyArg(), 100000, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta(insertEntrySQL)).
		WithArgs(2, 42, 9, TypeTransfer, DirectionIn, 100000, "Transfer from parent 3: textbooks", sqlmock.AnyArg(), 0, 100000).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectCommit()

	reference, err := repo.Transfer(context.Background(), 42, 3, 9, 100000, "textbooks")
	require.NoError(t, err)
	assert.Contains(t, reference, "TRF-")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_InsufficientFundsChangesNothing(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	mock.ExpectBegin()

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 3).
		WillReturnRows(walletRow(1, 42, 3, 0, 100000, 0))

	mock.ExpectQuery(regexp.QuoteMeta(lockWalletSQL)).
		WithArgs(42, 9).
		WillReturnRows(walletRow(2, 42, 9, 100000, 0, 0))

	mock.ExpectRollback()

	_, err := repo.Transfer(context.Background(), 42, 3, 9, 100000, "")

	var insufficient *InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(0), insufficient.AvailableKobo)
	assert.Equal(t, int64(100000), insufficient.RequestedKobo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_SameWalletRejected(t *testing.T) {
	repo, _, close := setupRepoMock(t)
	defer close()

	_, err := repo.Transfer(context.Background(), 42, 3, 3, 1000, "")
	require.ErrorIs(t, err, ErrSameWallet)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	repo, mock, close := setupRepoMock(t)
	defer close()

	columns := []string{"id", "wallet_id", "school_id", "user_id", "type", "direction", "amount_kobo", "description", "reference", "balance_before_kobo", "balance_after_kobo", "created_at"}
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, wallet_id, school_id, user_id, type, direction, amount_kobo, description, reference, balance_before_kobo, balance_after_kobo, created_at FROM wallet_transactions WHERE school_id = $1 AND user_id = $2 ORDER BY created_at DESC, id DESC LIMIT $3")).
		WithArgs(42, 3, 50).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(9, 7, 42, 3, TypeDebit, DirectionOut, 3000, "School Fees", "WALLET-INV1", 5000, 2000, now).
			AddRow(8, 7, 42, 3, TypeCredit, DirectionIn, 5000, "Wallet funding via card", "pay_1", 0, 5000, now.Add(-time.Minute)))

	txs, err := repo.ListTransactions(context.Background(), 42, 3, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, TypeDebit, txs[0].Type)
	assert.Equal(t, int64(2000), txs[0].BalanceAfterKobo)
	assert.Equal(t, txs[0].BalanceAfterKobo-txs[0].BalanceBeforeKobo, -txs[0].AmountKobo)
	assert.Equal(t, txs[1].BalanceAfterKobo-txs[1].BalanceBeforeKobo, txs[1].AmountKobo)
	require.NoError(t, mock.ExpectationsWereMet())
}

package wallet

import (
	"context"
	"errors"

	"educore/internal/logger"
	"educore/internal/metrics"
	"educore/internal/payment"
	"educore/internal/user"
)

// Notifier delivers receipts. Delivery is best effort: a queue failure is
// logged, never surfaced to the caller, and never rolls back a committed
// ledger entry.
type Notifier interface {
	SendFundingReceipt(ctx context.Context, to, name string, amountKobo, balanceKobo int64, reference string) error
	SendPaymentReceipt(ctx context.Context, to, name string, amountKobo, balanceKobo int64, description string) error
	SendTransferNotice(ctx context.Context, to, name string, amountKobo int64, direction, reference string) error
}

type Service interface {
	GetWallet(ctx context.Context, schoolID, parentID int) (*Wallet, error)
	CreateFundingIntent(ctx context.Context, schoolID, parentID int, amountKobo int64, method string) (*payment.Intent, error)
	Fund(ctx context.Context, schoolID, parentID int, amountKobo int64, reference string) (*Wallet, error)
	Spend(ctx context.Context, p SpendParams) (*Wallet, error)
	Transfer(ctx context.Context, schoolID, fromParentID, toParentID int, amountKobo int64, reason string) (string, error)
	ListTransactions(ctx context.Context, schoolID, userID, limit int) ([]Transaction, error)
}

type service struct {
	repo     Repository
	payments payment.Client
	users    user.Repository
	notifier Notifier
}

func NewService(repo Repository, payments payment.Client, users user.Repository, notifier Notifier) Service {
	return &service{
		repo:     repo,
		payments: payments,
		users:    users,
		notifier: notifier,
	}
}

func (s *service) GetWallet(ctx context.Context, schoolID, parentID int) (*Wallet, error) {
	return s.repo.GetOrCreate(ctx, schoolID, parentID)
}

func (s *service) CreateFundingIntent(ctx context.Context, schoolID, parentID int, amountKobo int64, method string) (*payment.Intent, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.payments.CreateIntent(ctx, payment.CreateIntentRequest{
		SchoolID:   schoolID,
		ParentID:   parentID,
		AmountKobo: amountKobo,
		Method:     method,
	})
}

func (s *service) Fund(ctx context.Context, schoolID, parentID int, amountKobo int64, reference string) (*Wallet, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}

	// The wallet only trusts the payment authority: the reference must name a
	// completed charge for this parent and this exact amount.
	intent, err := s.payments.VerifyIntent(ctx, reference)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrPaymentNotCompleted
		}
		return nil, err
	}
	if intent.Status != payment.StatusSucceeded {
		return nil, ErrPaymentNotCompleted
	}
	if intent.AmountKobo != amountKobo || intent.SchoolID != schoolID || intent.ParentID != parentID {
		return nil, ErrPaymentMismatch
	}

	w, err := s.repo.Fund(ctx, schoolID, parentID, amountKobo, reference, "Wallet funding via "+intent.Method)
	if err != nil {
		logger.Error("wallet fund failed",
			"school_id", schoolID,
			"parent_id", parentID,
			"amount_kobo", amountKobo,
			"reference", reference,
			"error", err,
		)
		return nil, err
	}

	metrics.RecordFund(intent.Method, amountKobo)
	logger.Info("wallet funded",
		"wallet_id", w.ID,
		"amount_kobo", amountKobo,
		"reference", reference,
	)

	s.sendFundingReceipt(ctx, parentID, amountKobo, w.BalanceKobo, reference)

	return w, nil
}

func (s *service) Spend(ctx context.Context, p SpendParams) (*Wallet, error) {
	if p.AmountKobo <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := s.repo.Spend(ctx, p)
	if err != nil {
		var insufficient *InsufficientFundsError
		if errors.As(err, &insufficient) {
			metrics.RecordInsufficientFunds()
		}
		logger.Error("wallet spend failed",
			"school_id", p.SchoolID,
			"parent_id", p.ParentID,
			"amount_kobo", p.AmountKobo,
			"invoice_id", p.InvoiceID,
			"error", err,
		)
		return nil, err
	}

	metrics.RecordSpend(p.AmountKobo)
	if p.InvoiceID != "" {
		metrics.RecordInvoicePaid()
	}
	logger.Info("wallet spend",
		"wallet_id", w.ID,
		"amount_kobo", p.AmountKobo,
		"invoice_id", p.InvoiceID,
	)

	s.sendPaymentReceipt(ctx, p.ParentID, p.AmountKobo, w.BalanceKobo, p.Description)

	return w, nil
}

func (s *service) Transfer(ctx context.Context, schoolID, fromParentID, toParentID int, amountKobo int64, reason string) (string, error) {
	if amountKobo <= 0 {
		return "", ErrInvalidAmount
	}
	if fromParentID == toParentID {
		return "", ErrSameWallet
	}

	reference, err := s.repo.Transfer(ctx, schoolID, fromParentID, toParentID, amountKobo, reason)
	if err != nil {
		logger.Error("wallet transfer failed",
			"school_id", schoolID,
			"from_parent_id", fromParentID,
			"to_parent_id", toParentID,
			"amount_kobo", amountKobo,
			"error", err,
		)
		return "", err
	}

	metrics.RecordTransfer()
	logger.Info("wallet transfer",
		"from_parent_id", fromParentID,
		"to_parent_id", toParentID,
		"amount_kobo", amountKobo,
		"reference", reference,
	)

	s.sendTransferNotice(ctx, fromParentID, amountKobo, DirectionOut, reference)
	s.sendTransferNotice(ctx, toParentID, amountKobo, DirectionIn, reference)

	return reference, nil
}

func (s *service) ListTransactions(ctx context.Context, schoolID, userID, limit int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, schoolID, userID, limit)
}

func (s *service) sendFundingReceipt(ctx context.Context, parentID int, amountKobo, balanceKobo int64, reference string) {
	u, err := s.users.FindByID(ctx, parentID)
	if err != nil {
		logger.Warn("funding receipt skipped, parent lookup failed", "parent_id", parentID, "error", err)
		return
	}
	if err := s.notifier.SendFundingReceipt(ctx, u.Email, u.Name, amountKobo, balanceKobo, reference); err != nil {
		logger.Warn("funding receipt not queued", "parent_id", parentID, "error", err)
	}
}

func (s *service) sendPaymentReceipt(ctx context.Context, parentID int, amountKobo, balanceKobo int64, description string) {
	u, err := s.users.FindByID(ctx, parentID)
	if err != nil {
		logger.Warn("payment receipt skipped, parent lookup failed", "parent_id", parentID, "error", err)
		return
	}
	if err := s.notifier.SendPaymentReceipt(ctx, u.Email, u.Name, amountKobo, balanceKobo, description); err != nil {
		logger.Warn("payment receipt not queued", "parent_id", parentID, "error", err)
	}
}

func (s *service) sendTransferNotice(ctx context.Context, parentID int, amountKobo int64, direction, reference string) {
	u, err := s.users.FindByID(ctx, parentID)
	if err != nil {
		logger.Warn("transfer notice skipped, parent lookup failed", "parent_id", parentID, "error", err)
		return
	}
	if err := s.notifier.SendTransferNotice(ctx, u.Email, u.Name, amountKobo, direction, reference); err != nil {
		logger.Warn("transfer notice not queued", "parent_id", parentID, "error", err)
	}
}

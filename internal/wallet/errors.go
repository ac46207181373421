package wallet

import (
	"errors"
	"fmt"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrDuplicateReference  = errors.New("payment reference already applied to a wallet")
	ErrSameWallet          = errors.New("cannot transfer to the same wallet")
	ErrPaymentNotCompleted = errors.New("payment has not completed")
	ErrPaymentMismatch     = errors.New("payment does not match the funding request")
)

// InsufficientFundsError carries both figures so the portal can show the
// parent exactly how short the wallet is.
type InsufficientFundsError struct {
	AvailableKobo int64
	RequestedKobo int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: available %s, requested %s",
		FormatKobo(e.AvailableKobo), FormatKobo(e.RequestedKobo))
}

// FormatKobo renders a kobo amount as naira for user-facing messages.
func FormatKobo(k int64) string {
	return fmt.Sprintf("NGN %d.%02d", k/100, k%100)
}

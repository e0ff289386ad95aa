// Package lifecycle services an active loan: scheduled payments, the
// negotiated early-repayment sub-protocol, and lender default. Every
// mutation re-checks its ledger guard immediately before submission, and
// local state is only trusted after a post-confirmation re-fetch.
package lifecycle

import (
	"context"
	"math/big"
	"time"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/internal/domain/loan"
	"peerlend-backend/internal/infrastructure/event"
	"peerlend-backend/pkg/retry"
)

// Cache is the slice of the snapshot cache this usecase needs. A nil
// Cache disables caching entirely.
type Cache interface {
	GetLoan(ctx context.Context, address string) (*loan.Loan, bool)
	SetLoan(ctx context.Context, address string, l *loan.Loan)
	InvalidateLoan(ctx context.Context, address string)
}

type Usecase struct {
	gw       ledger.Gateway
	cache    Cache
	events   event.Notifier
	attempts int
	backoff  time.Duration
}

func NewUsecase(gw ledger.Gateway, cache Cache, events event.Notifier) *Usecase {
	if events == nil {
		events = event.Nop{}
	}
	return &Usecase{
		gw:       gw,
		cache:    cache,
		events:   events,
		attempts: retry.DefaultAttempts,
		backoff:  retry.DefaultBackoff,
	}
}

// Guards holds the four independent precondition reads. They are not
// derivable from a cached snapshot: ledger-side timing (e.g. the default
// deadline) moves without any field changing.
type Guards struct {
	CanDoPayment             bool `json:"can_do_payment"`
	CanDefault               bool `json:"can_default"`
	CanRequestEarlyRepayment bool `json:"can_request_early_repayment"`
	CanDoEarlyRepayment      bool `json:"can_do_early_repayment"`
}

// Detail returns the loan snapshot, served from cache when present.
func (u *Usecase) Detail(ctx context.Context, address string) (*loan.Loan, error) {
	if u.cache != nil {
		if l, ok := u.cache.GetLoan(ctx, address); ok {
			return l, nil
		}
	}
	return u.fresh(ctx, address)
}

// Loans lists accepted loans filtered by party.
func (u *Usecase) Loans(ctx context.Context, borrower, lender string) ([]ledger.LoanRef, error) {
	var refs []ledger.LoanRef
	err := u.read(ctx, func() error {
		var err error
		refs, err = u.gw.ListLoans(ctx, borrower, lender)
		return err
	})
	return refs, err
}

// Guards re-reads all four action preconditions.
func (u *Usecase) Guards(ctx context.Context, address string) (Guards, error) {
	var g Guards
	reads := []struct {
		dst  *bool
		call func(context.Context, string) (bool, error)
	}{
		{&g.CanDoPayment, u.gw.CanDoPayment},
		{&g.CanDefault, u.gw.CanDefault},
		{&g.CanRequestEarlyRepayment, u.gw.CanRequestEarlyRepayment},
		{&g.CanDoEarlyRepayment, u.gw.CanDoEarlyRepayment},
	}
	for _, r := range reads {
		if err := u.read(ctx, func() error {
			v, err := r.call(ctx, address)
			*r.dst = v
			return err
		}); err != nil {
			return Guards{}, err
		}
	}
	return g, nil
}

// Payment performs one scheduled payment as the borrower. Token-funded
// loans approve the single-payment amount on the funding token for the
// loan contract first, and that approval is confirmed before the payment
// call; native loans attach the payment as payable value.
func (u *Usecase) Payment(ctx context.Context, address string) (*loan.Loan, error) {
	if err := u.checkGuard(ctx, "payment", address, u.gw.CanDoPayment); err != nil {
		return nil, err
	}
	l, err := u.fresh(ctx, address)
	if err != nil {
		return nil, err
	}

	var tx ledger.PendingTx
	if l.AssetIsNative {
		tx, err = u.gw.DoPayment(ctx, address, l.SinglePayment)
	} else {
		if err := u.approveConfirmed(ctx, l.AssetToken, address, l.SinglePayment); err != nil {
			return nil, err
		}
		tx, err = u.gw.DoPayment(ctx, address, nil)
	}
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, address, "payment", tx)
}

// RequestEarlyRepayment opens the negotiation as the borrower. For a
// native-asset loan the offered amount rides as payable value; for a token
// loan it is passed as an argument.
func (u *Usecase) RequestEarlyRepayment(ctx context.Context, address string, amount *big.Int) (*loan.Loan, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ledger.Invalid("early-repayment amount must be a positive integer")
	}
	if err := u.checkGuard(ctx, "request_early_repayment", address, u.gw.CanRequestEarlyRepayment); err != nil {
		return nil, err
	}
	l, err := u.fresh(ctx, address)
	if err != nil {
		return nil, err
	}

	var tx ledger.PendingTx
	if l.AssetIsNative {
		tx, err = u.gw.RequestEarlyRepayment(ctx, address, amount, amount)
	} else {
		tx, err = u.gw.RequestEarlyRepayment(ctx, address, amount, nil)
	}
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, address, "early_repayment_requested", tx)
}

// ApproveEarlyRepayment settles the loan early as the lender; terminal.
func (u *Usecase) ApproveEarlyRepayment(ctx context.Context, address string) (*loan.Loan, error) {
	if err := u.checkGuard(ctx, "approve_early_repayment", address, u.gw.CanDoEarlyRepayment); err != nil {
		return nil, err
	}
	tx, err := u.gw.ApproveEarlyRepayment(ctx, address)
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, address, "early_repayment_approved", tx)
}

// RejectEarlyRepayment clears the request; the loan returns to InProgress.
func (u *Usecase) RejectEarlyRepayment(ctx context.Context, address string) (*loan.Loan, error) {
	if err := u.checkGuard(ctx, "reject_early_repayment", address, u.gw.CanDoEarlyRepayment); err != nil {
		return nil, err
	}
	tx, err := u.gw.RejectEarlyRepayment(ctx, address)
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, address, "early_repayment_rejected", tx)
}

// Default declares the loan defaulted as the lender once the time since
// the last payment exceeds the default limit; collateral moves to the
// lender. Terminal.
func (u *Usecase) Default(ctx context.Context, address string) (*loan.Loan, error) {
	if err := u.checkGuard(ctx, "default", address, u.gw.CanDefault); err != nil {
		return nil, err
	}
	tx, err := u.gw.DefaultOnLoan(ctx, address)
	if err != nil {
		return nil, err
	}
	return u.settle(ctx, address, "defaulted", tx)
}

// settle waits for confirmation, then invalidates the snapshot, announces
// the confirmation, and returns the re-fetched loan. Until Confirm
// returns, nothing local changes.
func (u *Usecase) settle(ctx context.Context, address, kind string, tx ledger.PendingTx) (*loan.Loan, error) {
	if err := tx.Confirm(ctx); err != nil {
		return nil, err
	}
	if u.cache != nil {
		u.cache.InvalidateLoan(ctx, address)
	}
	u.events.Confirmed(ctx, event.Confirmation{Kind: kind, Subject: address, TxID: tx.ID()})
	return u.fresh(ctx, address)
}

func (u *Usecase) approveConfirmed(ctx context.Context, token, spender string, amount *big.Int) error {
	tx, err := u.gw.ApproveToken(ctx, token, spender, amount)
	if err != nil {
		return err
	}
	return tx.Confirm(ctx)
}

func (u *Usecase) checkGuard(ctx context.Context, action, address string, guard func(context.Context, string) (bool, error)) error {
	var ok bool
	if err := u.read(ctx, func() error {
		var err error
		ok, err = guard(ctx, address)
		return err
	}); err != nil {
		return err
	}
	if !ok {
		return &ledger.GuardViolation{Action: action}
	}
	return nil
}

func (u *Usecase) fresh(ctx context.Context, address string) (*loan.Loan, error) {
	var raw ledger.RawLoan
	if err := u.read(ctx, func() error {
		var err error
		raw, err = u.gw.LoanDetails(ctx, address)
		return err
	}); err != nil {
		return nil, err
	}
	l := loan.FromRaw(address, raw)
	if u.cache != nil {
		u.cache.SetLoan(ctx, address, l)
	}
	return l, nil
}

func (u *Usecase) read(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, u.attempts, u.backoff, ledger.IsTransient, fn)
}

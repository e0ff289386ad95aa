// Package issuance creates, accepts and removes loan offers across the
// four (funding, collateral) asset variants, sequencing the token
// approvals each variant requires. A token approval is always confirmed
// before the call that depends on it; submitting out of order reverts on
// the ledger.
package issuance

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/internal/domain/offer"
	"peerlend-backend/internal/infrastructure/event"
	"peerlend-backend/pkg/retry"
)

type Cache interface {
	InvalidateOffers(ctx context.Context)
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

// Offer submits a new loan offer. Token-funded variants first approve the
// funding amount on the token for the platform contract and await that
// confirmation; native funding attaches the amount as payable value on the
// single issuance call.
func (u *Usecase) Offer(ctx context.Context, iss offer.Issuance) (string, error) {
	if err := iss.Validate(); err != nil {
		return "", err
	}
	li := iss.Ledger()

	var payable *big.Int
	if token, ok := iss.FundingToken(); ok {
		if err := u.approveConfirmed(ctx, token, u.gw.PlatformAddress(), li.Amount); err != nil {
			return "", err
		}
	} else {
		payable = li.Amount
	}

	tx, err := u.gw.OfferLoan(ctx, li, payable)
	if err != nil {
		return "", err
	}
	return u.settle(ctx, "offer_created", string(li.Variant), tx)
}

// Accept takes the other side of an offer, posting its collateral. Token
// collateral is approved (and confirmed) before the accept call; native
// collateral rides as payable value. Acceptance atomically creates the
// loan and deletes the offer slot on the ledger.
func (u *Usecase) Accept(ctx context.Context, offerID uint64) (string, error) {
	o, err := u.find(ctx, offerID)
	if err != nil {
		return "", err
	}
	if o.From == u.gw.Self() {
		return "", &ledger.GuardViolation{Action: "accept_offer", Reason: "cannot accept own offer"}
	}

	var tx ledger.PendingTx
	if o.CollateralIsNative {
		tx, err = u.gw.AcceptLoan(ctx, o.ID, o.Collateral)
	} else {
		if err := u.approveConfirmed(ctx, o.CollateralToken, u.gw.PlatformAddress(), o.Collateral); err != nil {
			return "", err
		}
		tx, err = u.gw.AcceptLoan(ctx, o.ID, nil)
	}
	if err != nil {
		return "", err
	}
	return u.settle(ctx, "offer_accepted", strconv.FormatUint(o.ID, 10), tx)
}

// Remove withdraws the caller's own offer. The proposer comparison here is
// presentation-level only; the ledger re-validates ownership.
func (u *Usecase) Remove(ctx context.Context, offerID uint64) (string, error) {
	o, err := u.find(ctx, offerID)
	if err != nil {
		return "", err
	}
	if o.From != u.gw.Self() {
		return "", &ledger.GuardViolation{Action: "remove_offer", Reason: "only the proposer may remove an offer"}
	}
	tx, err := u.gw.RemoveLoan(ctx, o.ID)
	if err != nil {
		return "", err
	}
	return u.settle(ctx, "offer_removed", strconv.FormatUint(o.ID, 10), tx)
}

func (u *Usecase) find(ctx context.Context, offerID uint64) (offer.LoanOffer, error) {
	if offerID == 0 {
		return offer.LoanOffer{}, ledger.Invalid("offer id must be non-zero")
	}
	var raw ledger.RawOffer
	if err := retry.Do(ctx, u.attempts, u.backoff, ledger.IsTransient, func() error {
		var err error
		raw, err = u.gw.FindOffer(ctx, offerID)
		return err
	}); err != nil {
		return offer.LoanOffer{}, err
	}
	o := offer.FromRaw(raw)
	if o.Empty() {
		return offer.LoanOffer{}, ledger.ErrNotFound
	}
	return o, nil
}

func (u *Usecase) settle(ctx context.Context, kind, subject string, tx ledger.PendingTx) (string, error) {
	if err := tx.Confirm(ctx); err != nil {
		return "", err
	}
	if u.cache != nil {
		u.cache.InvalidateOffers(ctx)
	}
	u.events.Confirmed(ctx, event.Confirmation{Kind: kind, Subject: subject, TxID: tx.ID()})
	return tx.ID(), nil
}

func (u *Usecase) approveConfirmed(ctx context.Context, token, spender string, amount *big.Int) error {
	tx, err := u.gw.ApproveToken(ctx, token, spender, amount)
	if err != nil {
		return err
	}
	return tx.Confirm(ctx)
}

package issuance

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/internal/domain/offer"
	"peerlend-backend/internal/testutil/gatewaymock"
)

const (
	fundingToken    = "0xe000000000000000000000000000000000000001"
	collateralToken = "0xe000000000000000000000000000000000000002"
	otherParty      = "0xb000000000000000000000000000000000000099"
)

func terms() offer.Terms {
	return offer.Terms{
		Amount:           big.NewInt(1000),
		ToBePaid:         big.NewInt(1200),
		IntervalDays:     7,
		DefaultLimitDays: 30,
		SinglePayment:    big.NewInt(100),
		Collateral:       big.NewInt(500),
	}
}

func fastUsecase(gw ledger.Gateway) *Usecase {
	u := NewUsecase(gw, nil, nil)
	u.backoff = time.Millisecond
	return u
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}

func TestOffer_TokenFunded_ApprovalConfirmedBeforeIssue(t *testing.T) {
	for _, iss := range []offer.Issuance{
		offer.TokenNative{Terms: terms(), Token: fundingToken},
		offer.TokenToken{Terms: terms(), Token: fundingToken, CollateralToken: collateralToken},
	} {
		gw := &gatewaymock.Gateway{}
		gw.ApproveTokenFn = func(_ context.Context, token, spender string, amount *big.Int) (ledger.PendingTx, error) {
			if token != fundingToken {
				t.Fatalf("%s: approved token %q", iss.Variant(), token)
			}
			if spender != gw.PlatformAddress() {
				t.Fatalf("%s: spender %q, want the platform contract", iss.Variant(), spender)
			}
			if amount.Int64() != 1000 {
				t.Fatalf("%s: approval amount %v, want the funding amount", iss.Variant(), amount)
			}
			return gw.ConfirmedTx("tx-approve", "approve"), nil
		}
		gw.OfferLoanFn = func(_ context.Context, li ledger.Issuance, payable *big.Int) (ledger.PendingTx, error) {
			if payable != nil {
				t.Fatalf("%s: token-funded offer must not attach payable, got %v", iss.Variant(), payable)
			}
			if li.Interval != 604800 || li.DefaultLimit != 2592000 {
				t.Fatalf("%s: wire durations %d/%d", iss.Variant(), li.Interval, li.DefaultLimit)
			}
			return gw.ConfirmedTx("tx-offer", "offer"), nil
		}
		u := fastUsecase(gw)

		if _, err := u.Offer(context.Background(), iss); err != nil {
			t.Fatalf("%s: Offer: %v", iss.Variant(), err)
		}
		if indexOf(gw.Calls, "confirm:approve") > indexOf(gw.Calls, "offerLoan") {
			t.Fatalf("%s: offer submitted before approval confirmed: %v", iss.Variant(), gw.Calls)
		}
	}
}

func TestOffer_NativeFunded_PayableNoApproval(t *testing.T) {
	gw := &gatewaymock.Gateway{}
	gw.OfferLoanFn = func(_ context.Context, _ ledger.Issuance, payable *big.Int) (ledger.PendingTx, error) {
		if payable == nil || payable.Int64() != 1000 {
			t.Fatalf("payable = %v, want the funding amount", payable)
		}
		return gw.ConfirmedTx("tx-offer", "offer"), nil
	}
	u := fastUsecase(gw)

	if _, err := u.Offer(context.Background(), offer.NativeNative{Terms: terms()}); err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if indexOf(gw.Calls, "approveToken") != -1 {
		t.Fatalf("native funding must not approve a token: %v", gw.Calls)
	}
}

func TestOffer_InvalidTermsRejectedBeforeNetwork(t *testing.T) {
	gw := &gatewaymock.Gateway{}
	u := fastUsecase(gw)

	bad := terms()
	bad.Amount = nil
	if _, err := u.Offer(context.Background(), offer.NativeNative{Terms: bad}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(gw.Calls) != 0 {
		t.Fatalf("gateway touched for invalid terms: %v", gw.Calls)
	}
}

func offerSlot(from string, collateralNative bool) ledger.RawOffer {
	raw := ledger.RawOffer{
		ID:                 7,
		From:               from,
		AssetIsNative:      true,
		Amount:             big.NewInt(1000),
		ToBePaid:           big.NewInt(1200),
		SinglePayment:      big.NewInt(100),
		Interval:           604800,
		DefaultLimit:       2592000,
		Collateral:         big.NewInt(500),
		CollateralIsNative: collateralNative,
	}
	if !collateralNative {
		raw.CollateralToken = collateralToken
	}
	return raw
}

func TestAccept_NativeCollateral_Payable(t *testing.T) {
	gw := &gatewaymock.Gateway{}
	gw.FindOfferFn = func(context.Context, uint64) (ledger.RawOffer, error) {
		return offerSlot(otherParty, true), nil
	}
	gw.AcceptLoanFn = func(_ context.Context, offerID uint64, payable *big.Int) (ledger.PendingTx, error) {
		if offerID != 7 {
			t.Fatalf("offerID = %d", offerID)
		}
		if payable == nil || payable.Int64() != 500 {
			t.Fatalf("payable = %v, want the collateral", payable)
		}
		return gw.ConfirmedTx("tx-accept", "accept"), nil
	}
	u := fastUsecase(gw)

	if _, err := u.Accept(context.Background(), 7); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if indexOf(gw.Calls, "approveToken") != -1 {
		t.Fatalf("native collateral must not approve a token: %v", gw.Calls)
	}
}

func TestAccept_TokenCollateral_ApprovalConfirmedFirst(t *testing.T) {
	gw := &gatewaymock.Gateway{}
	gw.FindOfferFn = func(context.Context, uint64) (ledger.RawOffer, error) {
		return offerSlot(otherParty, false), nil
	}
	gw.ApproveTokenFn = func(_ context.Context, token, spender string, amount *big.Int) (ledger.PendingTx, error) {
		if token != collateralToken || amount.Int64() != 500 {
			t.Fatalf("approval %q/%v", token, amount)
		}
		return gw.ConfirmedTx("tx-approve", "approve"), nil
	}
	gw.AcceptLoanFn = func(_ context.Context, _ uint64, payable *big.Int) (ledger.PendingTx, error) {
		if payable != nil {
			t.Fatalf("token collateral must not attach payable, got %v", payable)
		}
		return gw.ConfirmedTx("tx-accept", "accept"), nil
	}
	u := fastUsecase(gw)

	if _, err := u.Accept(context.Background(), 7); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if indexOf(gw.Calls, "confirm:approve") > indexOf(gw.Calls, "acceptLoan") {
		t.Fatalf("accept submitted before approval confirmed: %v", gw.Calls)
	}
}

func TestAccept_OwnOffer(t *testing.T) {
	gw := &gatewaymock.Gateway{}
	gw.FindOfferFn = func(context.Context, uint64) (ledger.RawOffer, error) {
		return offerSlot(gw.Self(), true), nil
	}
	u := fastUsecase(gw)

	_, err := u.Accept(context.Background(), 7)
	var gv *ledger.GuardViolation
	if !errors.As(err, &gv) {
		t.Fatalf("err = %v, want GuardViolation", err)
	}
	if indexOf(gw.Calls, "acceptLoan") != -1 {
		t.Fatalf("accept submitted for own offer: %v", gw.Calls)
	}
}

func TestRemove_NonProposer(t *testing.T) {
	gw := &gatewaymock.Gateway{}
	gw.FindOfferFn = func(context.Context, uint64) (ledger.RawOffer, error) {
		return offerSlot(otherParty, true), nil
	}
	u := fastUsecase(gw)

	_, err := u.Remove(context.Background(), 7)
	var gv *ledger.GuardViolation
	if !errors.As(err, &gv) {
		t.Fatalf("err = %v, want GuardViolation", err)
	}
	if indexOf(gw.Calls, "removeLoan") != -1 {
		t.Fatalf("remove submitted by non-proposer: %v", gw.Calls)
	}
}

func TestAccept_EmptySlotIsNotFound(t *testing.T) {
	gw := &gatewaymock.Gateway{}
	gw.FindOfferFn = func(context.Context, uint64) (ledger.RawOffer, error) {
		return ledger.RawOffer{}, nil
	}
	u := fastUsecase(gw)

	if _, err := u.Accept(context.Background(), 99); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

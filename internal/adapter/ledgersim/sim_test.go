package ledgersim

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"peerlend-backend/internal/domain/ledger"
)

const (
	lenderAddr   = "0xa000000000000000000000000000000000000001"
	borrowerAddr = "0xb000000000000000000000000000000000000001"
	ownerAddr    = "0xd000000000000000000000000000000000000001"
	platformAddr = "0x9000000000000000000000000000000000000001"
	tokenAddr    = "0xe000000000000000000000000000000000000001"
)

func openSim(t *testing.T, self string) *Sim {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := New(db, self, platformAddr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Seed(ownerAddr, big.NewInt(10)); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return s
}

func as(t *testing.T, s *Sim, self string) *Sim {
	t.Helper()
	out, err := s.WithAccount(self)
	if err != nil {
		t.Fatalf("WithAccount: %v", err)
	}
	return out
}

func nativeIssuance() ledger.Issuance {
	return ledger.Issuance{
		Variant:       ledger.NativeNative,
		Amount:        big.NewInt(1000),
		ToBePaid:      big.NewInt(1200),
		SinglePayment: big.NewInt(400),
		Interval:      604800,
		DefaultLimit:  2592000,
		Collateral:    big.NewInt(500),
	}
}

func mustConfirm(t *testing.T, tx ledger.PendingTx, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := tx.Confirm(context.Background()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
}

func isGuard(err error) bool {
	var gv *ledger.GuardViolation
	return errors.As(err, &gv)
}

func TestNew_RequiresAccount(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := New(db, "", platformAddr); !errors.Is(err, ledger.ErrWalletUnavailable) {
		t.Fatalf("err = %v, want ErrWalletUnavailable", err)
	}
}

func TestSubmit_TxHandleIs32Hex(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	tx, err := lender.OfferLoan(ctx, nativeIssuance(), big.NewInt(1000))
	if err != nil {
		t.Fatalf("OfferLoan: %v", err)
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(tx.ID()) {
		t.Fatalf("tx id = %q, want 32 hex characters", tx.ID())
	}
}

func TestLifecycle_OfferToEarlyRepayment(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	borrower := as(t, lender, borrowerAddr)

	tx, err := lender.OfferLoan(ctx, nativeIssuance(), big.NewInt(1000))
	mustConfirm(t, tx, err)

	offers, err := lender.ListOffers(ctx, 0, 10, ledger.OfferFilter{})
	if err != nil || len(offers) != 1 {
		t.Fatalf("offers = %v, %v", offers, err)
	}
	offerID := offers[0].ID

	tx, err = borrower.AcceptLoan(ctx, offerID, big.NewInt(500))
	mustConfirm(t, tx, err)

	// the offer slot is consumed atomically
	if _, err := lender.FindOffer(ctx, offerID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("consumed offer: err = %v, want ErrNotFound", err)
	}

	refs, err := lender.ListLoans(ctx, borrowerAddr, lenderAddr)
	if err != nil || len(refs) != 1 {
		t.Fatalf("loans = %v, %v", refs, err)
	}
	addr := refs[0].Address

	tx, err = borrower.DoPayment(ctx, addr, big.NewInt(400))
	mustConfirm(t, tx, err)
	raw, err := lender.LoanDetails(ctx, addr)
	if err != nil {
		t.Fatalf("LoanDetails: %v", err)
	}
	if raw.Remaining.Int64() != 800 {
		t.Fatalf("remaining = %v, want 800", raw.Remaining)
	}

	tx, err = borrower.RequestEarlyRepayment(ctx, addr, big.NewInt(600), big.NewInt(600))
	mustConfirm(t, tx, err)

	// only the lender may settle the request
	if _, err := borrower.ApproveEarlyRepayment(ctx, addr); !isGuard(err) {
		t.Fatalf("borrower settle: err = %v, want guard violation", err)
	}
	// payments pause while a request is open
	if ok, _ := borrower.CanDoPayment(ctx, addr); ok {
		t.Fatal("payment allowed during open early-repayment request")
	}

	tx, err = lender.ApproveEarlyRepayment(ctx, addr)
	mustConfirm(t, tx, err)
	raw, err = lender.LoanDetails(ctx, addr)
	if err != nil {
		t.Fatalf("LoanDetails: %v", err)
	}
	if !raw.PaidEarly || raw.RequestPaidEarly || raw.Remaining.Sign() != 0 {
		t.Fatalf("settled loan = %+v", raw)
	}
	// terminal: nothing more is legal
	for name, ok := range map[string]bool{
		"payment": func() bool { ok, _ := borrower.CanDoPayment(ctx, addr); return ok }(),
		"default": func() bool { ok, _ := lender.CanDefault(ctx, addr); return ok }(),
		"request": func() bool { ok, _ := borrower.CanRequestEarlyRepayment(ctx, addr); return ok }(),
	} {
		if ok {
			t.Fatalf("%s still allowed on settled loan", name)
		}
	}
}

func TestRejectEarlyRepayment_ReturnsToServicing(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	borrower := as(t, lender, borrowerAddr)

	tx, err := lender.OfferLoan(ctx, nativeIssuance(), big.NewInt(1000))
	mustConfirm(t, tx, err)
	tx, err = borrower.AcceptLoan(ctx, 1, big.NewInt(500))
	mustConfirm(t, tx, err)
	refs, _ := lender.ListLoans(ctx, "", "")
	addr := refs[0].Address

	tx, err = borrower.RequestEarlyRepayment(ctx, addr, big.NewInt(600), big.NewInt(600))
	mustConfirm(t, tx, err)
	tx, err = lender.RejectEarlyRepayment(ctx, addr)
	mustConfirm(t, tx, err)

	raw, err := lender.LoanDetails(ctx, addr)
	if err != nil {
		t.Fatalf("LoanDetails: %v", err)
	}
	if raw.RequestPaidEarly || raw.PaidEarly {
		t.Fatalf("after reject = %+v", raw)
	}
	if ok, _ := borrower.CanDoPayment(ctx, addr); !ok {
		t.Fatal("payment must resume after reject")
	}
}

func TestDefault_OnlyAfterDeadline(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	borrower := as(t, lender, borrowerAddr)

	tx, err := lender.OfferLoan(ctx, nativeIssuance(), big.NewInt(1000))
	mustConfirm(t, tx, err)
	tx, err = borrower.AcceptLoan(ctx, 1, big.NewInt(500))
	mustConfirm(t, tx, err)
	refs, _ := lender.ListLoans(ctx, "", "")
	addr := refs[0].Address

	if _, err := lender.DefaultOnLoan(ctx, addr); !isGuard(err) {
		t.Fatalf("default before deadline: err = %v, want guard violation", err)
	}

	late := lender.WithClock(func() time.Time {
		return time.Now().UTC().Add(2592001 * time.Second)
	})
	tx, err = late.DefaultOnLoan(ctx, addr)
	mustConfirm(t, tx, err)

	raw, err := lender.LoanDetails(ctx, addr)
	if err != nil {
		t.Fatalf("LoanDetails: %v", err)
	}
	if !raw.InDefault {
		t.Fatal("loan not marked defaulted")
	}
}

func TestOfferLoan_NativePayableMustMatch(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	if _, err := lender.OfferLoan(ctx, nativeIssuance(), big.NewInt(999)); !isGuard(err) {
		t.Fatalf("short payable: err = %v, want guard violation", err)
	}
	if _, err := lender.OfferLoan(ctx, nativeIssuance(), nil); !isGuard(err) {
		t.Fatalf("missing payable: err = %v, want guard violation", err)
	}
}

func TestOfferLoan_TokenFundedNeedsAllowance(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	iss := nativeIssuance()
	iss.Variant = ledger.TokenNative
	iss.FundingToken = tokenAddr

	if _, err := lender.OfferLoan(ctx, iss, nil); !isGuard(err) {
		t.Fatalf("no allowance: err = %v, want guard violation", err)
	}

	tx, err := lender.ApproveToken(ctx, tokenAddr, platformAddr, big.NewInt(1000))
	mustConfirm(t, tx, err)
	tx, err = lender.OfferLoan(ctx, iss, nil)
	mustConfirm(t, tx, err)

	// the allowance was consumed; a second identical offer reverts
	if _, err := lender.OfferLoan(ctx, iss, nil); !isGuard(err) {
		t.Fatalf("spent allowance: err = %v, want guard violation", err)
	}
}

func TestAcceptLoan_OwnOfferReverts(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	tx, err := lender.OfferLoan(ctx, nativeIssuance(), big.NewInt(1000))
	mustConfirm(t, tx, err)
	if _, err := lender.AcceptLoan(ctx, 1, big.NewInt(500)); !isGuard(err) {
		t.Fatalf("self-accept: err = %v, want guard violation", err)
	}
}

func TestRemoveLoan_ProposerOnly(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	borrower := as(t, lender, borrowerAddr)
	tx, err := lender.OfferLoan(ctx, nativeIssuance(), big.NewInt(1000))
	mustConfirm(t, tx, err)

	if _, err := borrower.RemoveLoan(ctx, 1); !isGuard(err) {
		t.Fatalf("non-proposer remove: err = %v, want guard violation", err)
	}
	tx, err = lender.RemoveLoan(ctx, 1)
	mustConfirm(t, tx, err)
	if _, err := lender.FindOffer(ctx, 1); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("removed offer: err = %v, want ErrNotFound", err)
	}
}

func TestListOffers_FilterAndPaging(t *testing.T) {
	ctx := context.Background()
	lender := openSim(t, lenderAddr)
	for _, amount := range []int64{100, 500, 2500} {
		iss := nativeIssuance()
		iss.Amount = big.NewInt(amount)
		tx, err := lender.OfferLoan(ctx, iss, big.NewInt(amount))
		mustConfirm(t, tx, err)
	}

	got, err := lender.ListOffers(ctx, 0, 10, ledger.OfferFilter{
		MinAmount: big.NewInt(200),
		MaxAmount: big.NewInt(2000),
	})
	if err != nil {
		t.Fatalf("ListOffers: %v", err)
	}
	if len(got) != 1 || got[0].Amount.Int64() != 500 {
		t.Fatalf("range filter = %+v", got)
	}

	page, err := lender.ListOffers(ctx, 2, 2, ledger.OfferFilter{})
	if err != nil {
		t.Fatalf("ListOffers page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("page = %d rows, want the short final page", len(page))
	}
}

func TestLimitRequests(t *testing.T) {
	ctx := context.Background()
	sim := openSim(t, borrowerAddr)
	owner := as(t, sim, ownerAddr)
	payload := []byte(`{"ciphertext":"...","key":"..."}`)

	// short fee reverts
	if _, err := sim.SetLoanLimitRequest(ctx, payload, big.NewInt(9)); !isGuard(err) {
		t.Fatalf("short fee: err = %v, want guard violation", err)
	}
	tx, err := sim.SetLoanLimitRequest(ctx, payload, big.NewInt(10))
	mustConfirm(t, tx, err)

	// only the owner may read the envelope
	if _, err := sim.LoanLimitRequest(ctx, borrowerAddr); !isGuard(err) {
		t.Fatalf("non-owner read: err = %v, want guard violation", err)
	}
	got, err := owner.LoanLimitRequest(ctx, borrowerAddr)
	if err != nil || string(got) != string(payload) {
		t.Fatalf("owner read = %q, %v", got, err)
	}

	reqs, err := sim.ListActiveRequests(ctx, 0, 10)
	if err != nil || len(reqs) != 1 {
		t.Fatalf("active = %v, %v", reqs, err)
	}

	// granting a limit closes the request
	if _, err := sim.SetLoanLimit(ctx, borrowerAddr, big.NewInt(5000), "", reqs[0].UniqueID); !isGuard(err) {
		t.Fatalf("non-owner grant: err = %v, want guard violation", err)
	}
	tx, err = owner.SetLoanLimit(ctx, borrowerAddr, big.NewInt(5000), "", reqs[0].UniqueID)
	mustConfirm(t, tx, err)
	reqs, err = sim.ListActiveRequests(ctx, 0, 10)
	if err != nil || len(reqs) != 0 {
		t.Fatalf("after grant = %v, %v", reqs, err)
	}
}

func TestSetLoanFee_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	sim := openSim(t, borrowerAddr)
	owner := as(t, sim, ownerAddr)

	if _, err := sim.SetLoanFee(ctx, big.NewInt(20)); !isGuard(err) {
		t.Fatalf("non-owner: err = %v, want guard violation", err)
	}
	tx, err := owner.SetLoanFee(ctx, big.NewInt(20))
	mustConfirm(t, tx, err)
	fee, err := sim.LoanFee(ctx)
	if err != nil || fee.Int64() != 20 {
		t.Fatalf("fee = %v, %v", fee, err)
	}
}

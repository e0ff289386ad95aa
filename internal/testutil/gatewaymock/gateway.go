// Package gatewaymock is a function-backed ledger.Gateway for tests. Only
// the methods a test needs get a func; the rest fail loudly. Every call
// (including tx confirmations) is appended to Calls so tests can assert
// sequencing, e.g. that a token approval is confirmed before the call that
// depends on it.
package gatewaymock

import (
	"context"
	"errors"
	"math/big"

	"peerlend-backend/internal/domain/ledger"
)

// Tx is a recordable PendingTx.
type Tx struct {
	TxID      string
	ConfirmFn func(ctx context.Context) error
	OnConfirm func()
}

func (t *Tx) ID() string { return t.TxID }

func (t *Tx) Confirm(ctx context.Context) error {
	if t.OnConfirm != nil {
		t.OnConfirm()
	}
	if t.ConfirmFn != nil {
		return t.ConfirmFn(ctx)
	}
	return nil
}

type Gateway struct {
	Calls []string

	SelfAddr     string
	PlatformAddr string

	OwnerFn     func(ctx context.Context) (string, error)
	TokenNameFn func(ctx context.Context, token string) (string, error)

	ListOffersFn         func(ctx context.Context, offset, limit int, f ledger.OfferFilter) ([]ledger.RawOffer, error)
	FindOfferFn          func(ctx context.Context, offerID uint64) (ledger.RawOffer, error)
	ListActiveRequestsFn func(ctx context.Context, offset, limit int) ([]ledger.RawRequest, error)
	ListLoansFn          func(ctx context.Context, borrower, lender string) ([]ledger.LoanRef, error)
	LoanDetailsFn        func(ctx context.Context, loan string) (ledger.RawLoan, error)

	OfferLoanFn  func(ctx context.Context, iss ledger.Issuance, payable *big.Int) (ledger.PendingTx, error)
	AcceptLoanFn func(ctx context.Context, offerID uint64, payable *big.Int) (ledger.PendingTx, error)
	RemoveLoanFn func(ctx context.Context, offerID uint64) (ledger.PendingTx, error)

	DoPaymentFn             func(ctx context.Context, loan string, payable *big.Int) (ledger.PendingTx, error)
	RequestEarlyRepaymentFn func(ctx context.Context, loan string, amount, payable *big.Int) (ledger.PendingTx, error)
	ApproveEarlyRepaymentFn func(ctx context.Context, loan string) (ledger.PendingTx, error)
	RejectEarlyRepaymentFn  func(ctx context.Context, loan string) (ledger.PendingTx, error)
	DefaultOnLoanFn         func(ctx context.Context, loan string) (ledger.PendingTx, error)

	ApproveTokenFn func(ctx context.Context, token, spender string, amount *big.Int) (ledger.PendingTx, error)

	CanDoPaymentFn             func(ctx context.Context, loan string) (bool, error)
	CanDefaultFn               func(ctx context.Context, loan string) (bool, error)
	CanRequestEarlyRepaymentFn func(ctx context.Context, loan string) (bool, error)
	CanDoEarlyRepaymentFn      func(ctx context.Context, loan string) (bool, error)

	SetLoanLimitRequestFn func(ctx context.Context, envelope []byte, payable *big.Int) (ledger.PendingTx, error)
	LoanLimitRequestFn    func(ctx context.Context, borrower string) ([]byte, error)
	SetLoanLimitFn        func(ctx context.Context, borrower string, amount *big.Int, assetToken string, requestID uint64) (ledger.PendingTx, error)

	LoanFeeFn    func(ctx context.Context) (*big.Int, error)
	SetLoanFeeFn func(ctx context.Context, amount *big.Int) (ledger.PendingTx, error)
}

var errNotImplemented = errors.New("gatewaymock: not implemented")

func (g *Gateway) record(name string) { g.Calls = append(g.Calls, name) }

// ConfirmedTx returns a Tx that records its confirmation under name.
func (g *Gateway) ConfirmedTx(id, name string) *Tx {
	return &Tx{TxID: id, OnConfirm: func() { g.record("confirm:" + name) }}
}

func (g *Gateway) Self() string {
	if g.SelfAddr != "" {
		return g.SelfAddr
	}
	return "0x00000000000000000000000000000000000000ff"
}

func (g *Gateway) PlatformAddress() string {
	if g.PlatformAddr != "" {
		return g.PlatformAddr
	}
	return "0x0000000000000000000000000000000000000001"
}

func (g *Gateway) Owner(ctx context.Context) (string, error) {
	g.record("owner")
	if g.OwnerFn != nil {
		return g.OwnerFn(ctx)
	}
	return "", errNotImplemented
}

func (g *Gateway) TokenName(ctx context.Context, token string) (string, error) {
	g.record("tokenName")
	if g.TokenNameFn != nil {
		return g.TokenNameFn(ctx, token)
	}
	return "", errNotImplemented
}

func (g *Gateway) ListOffers(ctx context.Context, offset, limit int, f ledger.OfferFilter) ([]ledger.RawOffer, error) {
	g.record("listOffers")
	if g.ListOffersFn != nil {
		return g.ListOffersFn(ctx, offset, limit, f)
	}
	return nil, errNotImplemented
}

func (g *Gateway) FindOffer(ctx context.Context, offerID uint64) (ledger.RawOffer, error) {
	g.record("findOffer")
	if g.FindOfferFn != nil {
		return g.FindOfferFn(ctx, offerID)
	}
	return ledger.RawOffer{}, errNotImplemented
}

func (g *Gateway) ListActiveRequests(ctx context.Context, offset, limit int) ([]ledger.RawRequest, error) {
	g.record("listActiveRequests")
	if g.ListActiveRequestsFn != nil {
		return g.ListActiveRequestsFn(ctx, offset, limit)
	}
	return nil, errNotImplemented
}

func (g *Gateway) ListLoans(ctx context.Context, borrower, lender string) ([]ledger.LoanRef, error) {
	g.record("listLoans")
	if g.ListLoansFn != nil {
		return g.ListLoansFn(ctx, borrower, lender)
	}
	return nil, errNotImplemented
}

func (g *Gateway) LoanDetails(ctx context.Context, loan string) (ledger.RawLoan, error) {
	g.record("loanDetails")
	if g.LoanDetailsFn != nil {
		return g.LoanDetailsFn(ctx, loan)
	}
	return ledger.RawLoan{}, errNotImplemented
}

func (g *Gateway) OfferLoan(ctx context.Context, iss ledger.Issuance, payable *big.Int) (ledger.PendingTx, error) {
	g.record("offerLoan")
	if g.OfferLoanFn != nil {
		return g.OfferLoanFn(ctx, iss, payable)
	}
	return nil, errNotImplemented
}

func (g *Gateway) AcceptLoan(ctx context.Context, offerID uint64, payable *big.Int) (ledger.PendingTx, error) {
	g.record("acceptLoan")
	if g.AcceptLoanFn != nil {
		return g.AcceptLoanFn(ctx, offerID, payable)
	}
	return nil, errNotImplemented
}

func (g *Gateway) RemoveLoan(ctx context.Context, offerID uint64) (ledger.PendingTx, error) {
	g.record("removeLoan")
	if g.RemoveLoanFn != nil {
		return g.RemoveLoanFn(ctx, offerID)
	}
	return nil, errNotImplemented
}

func (g *Gateway) DoPayment(ctx context.Context, loan string, payable *big.Int) (ledger.PendingTx, error) {
	g.record("doPayment")
	if g.DoPaymentFn != nil {
		return g.DoPaymentFn(ctx, loan, payable)
	}
	return nil, errNotImplemented
}

func (g *Gateway) RequestEarlyRepayment(ctx context.Context, loan string, amount, payable *big.Int) (ledger.PendingTx, error) {
	g.record("requestEarlyRepayment")
	if g.RequestEarlyRepaymentFn != nil {
		return g.RequestEarlyRepaymentFn(ctx, loan, amount, payable)
	}
	return nil, errNotImplemented
}

func (g *Gateway) ApproveEarlyRepayment(ctx context.Context, loan string) (ledger.PendingTx, error) {
	g.record("approveEarlyRepayment")
	if g.ApproveEarlyRepaymentFn != nil {
		return g.ApproveEarlyRepaymentFn(ctx, loan)
	}
	return nil, errNotImplemented
}

func (g *Gateway) RejectEarlyRepayment(ctx context.Context, loan string) (ledger.PendingTx, error) {
	g.record("rejectEarlyRepayment")
	if g.RejectEarlyRepaymentFn != nil {
		return g.RejectEarlyRepaymentFn(ctx, loan)
	}
	return nil, errNotImplemented
}

func (g *Gateway) DefaultOnLoan(ctx context.Context, loan string) (ledger.PendingTx, error) {
	g.record("defaultOnLoan")
	if g.DefaultOnLoanFn != nil {
		return g.DefaultOnLoanFn(ctx, loan)
	}
	return nil, errNotImplemented
}

func (g *Gateway) ApproveToken(ctx context.Context, token, spender string, amount *big.Int) (ledger.PendingTx, error) {
	g.record("approveToken")
	if g.ApproveTokenFn != nil {
		return g.ApproveTokenFn(ctx, token, spender, amount)
	}
	return nil, errNotImplemented
}

func (g *Gateway) CanDoPayment(ctx context.Context, loan string) (bool, error) {
	g.record("canDoPayment")
	if g.CanDoPaymentFn != nil {
		return g.CanDoPaymentFn(ctx, loan)
	}
	return false, errNotImplemented
}

func (g *Gateway) CanDefault(ctx context.Context, loan string) (bool, error) {
	g.record("canDefault")
	if g.CanDefaultFn != nil {
		return g.CanDefaultFn(ctx, loan)
	}
	return false, errNotImplemented
}

func (g *Gateway) CanRequestEarlyRepayment(ctx context.Context, loan string) (bool, error) {
	g.record("canRequestEarlyRepayment")
	if g.CanRequestEarlyRepaymentFn != nil {
		return g.CanRequestEarlyRepaymentFn(ctx, loan)
	}
	return false, errNotImplemented
}

func (g *Gateway) CanDoEarlyRepayment(ctx context.Context, loan string) (bool, error) {
	g.record("canDoEarlyRepayment")
	if g.CanDoEarlyRepaymentFn != nil {
		return g.CanDoEarlyRepaymentFn(ctx, loan)
	}
	return false, errNotImplemented
}

func (g *Gateway) SetLoanLimitRequest(ctx context.Context, envelope []byte, payable *big.Int) (ledger.PendingTx, error) {
	g.record("setLoanLimitRequest")
	if g.SetLoanLimitRequestFn != nil {
		return g.SetLoanLimitRequestFn(ctx, envelope, payable)
	}
	return nil, errNotImplemented
}

func (g *Gateway) LoanLimitRequest(ctx context.Context, borrower string) ([]byte, error) {
	g.record("loanLimitRequest")
	if g.LoanLimitRequestFn != nil {
		return g.LoanLimitRequestFn(ctx, borrower)
	}
	return nil, errNotImplemented
}

func (g *Gateway) SetLoanLimit(ctx context.Context, borrower string, amount *big.Int, assetToken string, requestID uint64) (ledger.PendingTx, error) {
	g.record("setLoanLimit")
	if g.SetLoanLimitFn != nil {
		return g.SetLoanLimitFn(ctx, borrower, amount, assetToken, requestID)
	}
	return nil, errNotImplemented
}

func (g *Gateway) LoanFee(ctx context.Context) (*big.Int, error) {
	g.record("loanFee")
	if g.LoanFeeFn != nil {
		return g.LoanFeeFn(ctx)
	}
	return nil, errNotImplemented
}

func (g *Gateway) SetLoanFee(ctx context.Context, amount *big.Int) (ledger.PendingTx, error) {
	g.record("setLoanFee")
	if g.SetLoanFeeFn != nil {
		return g.SetLoanFeeFn(ctx, amount)
	}
	return nil, errNotImplemented
}

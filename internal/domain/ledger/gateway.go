package ledger

import (
	"context"
	"math/big"
)

// Variant names the (funding asset, collateral asset) pair of a loan offer.
type Variant string

const (
	NativeNative Variant = "NativeNative"
	NativeToken  Variant = "NativeToken"
	TokenNative  Variant = "TokenNative"
	TokenToken   Variant = "TokenToken"
)

// Issuance carries offer-creation parameters in ledger units: amounts as
// integers, durations in seconds.
type Issuance struct {
	Variant         Variant
	Amount          *big.Int
	ToBePaid        *big.Int
	Interval        int64 // seconds
	DefaultLimit    int64 // seconds
	SinglePayment   *big.Int
	Collateral      *big.Int
	FundingToken    string // token-funded variants only
	CollateralToken string // token-collateral variants only
}

// RawLoan mirrors the ledger's loan-detail tuple.
type RawLoan struct {
	Lender                 string
	Borrower               string
	Remaining              *big.Int
	SinglePayment          *big.Int
	Interval               int64 // seconds
	DefaultLimit           int64 // seconds
	LastPayment            int64 // unix seconds
	Collateral             *big.Int
	CollateralIsNative     bool
	CollateralToken        string
	AssetToken             string
	AssetIsNative          bool
	InDefault              bool
	PaidEarly              bool
	RequestPaidEarly       bool
	RequestPaidEarlyAmount *big.Int
}

// RawOffer mirrors one slot of the ledger's offer listing. ID == 0 marks an
// empty slot.
type RawOffer struct {
	ID                 uint64
	From               string
	AssetIsNative      bool
	AssetToken         string
	Amount             *big.Int
	ToBePaid           *big.Int
	SinglePayment      *big.Int
	Interval           int64 // seconds
	DefaultLimit       int64 // seconds
	Collateral         *big.Int
	CollateralIsNative bool
	CollateralToken    string
}

// RawRequest mirrors one slot of the active lending-limit-request listing.
// UniqueID == 0 marks an empty slot.
type RawRequest struct {
	Borrower string
	UniqueID uint64
}

// LoanRef identifies an accepted loan and its parties.
type LoanRef struct {
	Address  string `json:"address"`
	Lender   string `json:"lender"`
	Borrower string `json:"borrower"`
}

// OfferFilter narrows an offer listing. Nil/zero fields match everything.
type OfferFilter struct {
	From               string
	AssetIsNative      *bool
	AssetToken         string
	CollateralIsNative *bool
	CollateralToken    string
	MinAmount          *big.Int
	MaxAmount          *big.Int
	MaxSinglePayment   *big.Int
}

// PendingTx is a submitted but not yet finalized write. Confirm blocks until
// the ledger acknowledges the transaction; a write must never be treated as
// complete before Confirm returns.
type PendingTx interface {
	ID() string
	Confirm(ctx context.Context) error
}

// Gateway is the typed surface of the remote ledger contract, bound to one
// signing account for the session. Reads return raw tuples; writes return a
// PendingTx. The ledger itself is the authority on every precondition: the
// client checks guards first, but a revert of the same kind must still be
// tolerated.
type Gateway interface {
	// Self returns the session's signing account.
	Self() string
	// PlatformAddress returns the lending-platform contract address, used
	// as the spender of token approvals.
	PlatformAddress() string

	Owner(ctx context.Context) (string, error)
	TokenName(ctx context.Context, token string) (string, error)

	ListOffers(ctx context.Context, offset, limit int, f OfferFilter) ([]RawOffer, error)
	FindOffer(ctx context.Context, offerID uint64) (RawOffer, error)
	ListActiveRequests(ctx context.Context, offset, limit int) ([]RawRequest, error)
	ListLoans(ctx context.Context, borrower, lender string) ([]LoanRef, error)
	LoanDetails(ctx context.Context, loan string) (RawLoan, error)

	OfferLoan(ctx context.Context, iss Issuance, payable *big.Int) (PendingTx, error)
	AcceptLoan(ctx context.Context, offerID uint64, payable *big.Int) (PendingTx, error)
	RemoveLoan(ctx context.Context, offerID uint64) (PendingTx, error)

	DoPayment(ctx context.Context, loan string, payable *big.Int) (PendingTx, error)
	RequestEarlyRepayment(ctx context.Context, loan string, amount, payable *big.Int) (PendingTx, error)
	ApproveEarlyRepayment(ctx context.Context, loan string) (PendingTx, error)
	RejectEarlyRepayment(ctx context.Context, loan string) (PendingTx, error)
	DefaultOnLoan(ctx context.Context, loan string) (PendingTx, error)

	ApproveToken(ctx context.Context, token, spender string, amount *big.Int) (PendingTx, error)

	CanDoPayment(ctx context.Context, loan string) (bool, error)
	CanDefault(ctx context.Context, loan string) (bool, error)
	CanRequestEarlyRepayment(ctx context.Context, loan string) (bool, error)
	CanDoEarlyRepayment(ctx context.Context, loan string) (bool, error)

	SetLoanLimitRequest(ctx context.Context, envelope []byte, payable *big.Int) (PendingTx, error)
	LoanLimitRequest(ctx context.Context, borrower string) ([]byte, error)
	SetLoanLimit(ctx context.Context, borrower string, amount *big.Int, assetToken string, requestID uint64) (PendingTx, error)

	LoanFee(ctx context.Context) (*big.Int, error)
	SetLoanFee(ctx context.Context, amount *big.Int) (PendingTx, error)
}

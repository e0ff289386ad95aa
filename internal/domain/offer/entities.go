package offer

import (
	"math/big"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/internal/domain/loan"
)

// Action is what an account may do with a listed offer: the proposer may
// remove it, anyone else may accept it. The ledger re-validates the branch
// regardless of what the client shows.
type Action string

const (
	ActionAccept Action = "accept"
	ActionRemove Action = "remove"
)

// LoanOffer is a unilateral, unaccepted proposal translated from a ledger
// slot. Durations are day-denominated for display.
type LoanOffer struct {
	ID                 uint64   `json:"id"`
	From               string   `json:"from"`
	AssetIsNative      bool     `json:"asset_is_native"`
	AssetToken         string   `json:"asset_token,omitempty"`
	Amount             *big.Int `json:"amount"`
	ToBePaid           *big.Int `json:"to_be_paid"`
	SinglePayment      *big.Int `json:"single_payment"`
	IntervalDays       int64    `json:"interval_days"`
	DefaultLimitDays   int64    `json:"default_limit_days"`
	Collateral         *big.Int `json:"collateral"`
	CollateralIsNative bool     `json:"collateral_is_native"`
	CollateralToken    string   `json:"collateral_token,omitempty"`
}

// Empty reports whether the underlying ledger slot is unused
// (the zero-sentinel id). Empty rows never reach callers.
func (o LoanOffer) Empty() bool { return o.ID == 0 }

func (o LoanOffer) ActionFor(self string) Action {
	if self == o.From {
		return ActionRemove
	}
	return ActionAccept
}

// FromRaw translates one ledger offer slot.
func FromRaw(raw ledger.RawOffer) LoanOffer {
	return LoanOffer{
		ID:                 raw.ID,
		From:               raw.From,
		AssetIsNative:      raw.AssetIsNative,
		AssetToken:         raw.AssetToken,
		Amount:             raw.Amount,
		ToBePaid:           raw.ToBePaid,
		SinglePayment:      raw.SinglePayment,
		IntervalDays:       loan.SecondsToDays(raw.Interval),
		DefaultLimitDays:   loan.SecondsToDays(raw.DefaultLimit),
		Collateral:         raw.Collateral,
		CollateralIsNative: raw.CollateralIsNative,
		CollateralToken:    raw.CollateralToken,
	}
}

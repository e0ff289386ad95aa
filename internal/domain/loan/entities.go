package loan

import (
	"math/big"
	"time"
)

// State is the single display state derived from a freshly fetched loan.
type State string

const (
	StateDefaulted               State = "defaulted"
	StatePaidEarly               State = "paid_early"
	StateInProgress              State = "in_progress"
	StateEarlyRepaymentRequested State = "early_repayment_requested"
	StatePaidOff                 State = "paid_off"
)

// Action is a mutating operation a party may currently invoke. Actions are
// provisional: the matching ledger guard must be re-read immediately before
// submission.
type Action string

const (
	ActionPayment               Action = "payment"
	ActionRequestEarlyRepayment Action = "request_early_repayment"
	ActionApproveEarlyRepayment Action = "approve_early_repayment"
	ActionRejectEarlyRepayment  Action = "reject_early_repayment"
	ActionDefault               Action = "default"
)

// Loan is an active bilateral credit agreement, reconstructed from ledger
// state on every fetch. Durations are day-denominated for display; amounts
// are arbitrary-precision integers in the loan's funding asset.
type Loan struct {
	Address                string    `json:"address"`
	Lender                 string    `json:"lender"`
	Borrower               string    `json:"borrower"`
	Remaining              *big.Int  `json:"remaining"`
	SinglePayment          *big.Int  `json:"single_payment"`
	IntervalDays           int64     `json:"interval_days"`
	DefaultLimitDays       int64     `json:"default_limit_days"`
	LastPayment            time.Time `json:"last_payment"`
	Collateral             *big.Int  `json:"collateral"`
	CollateralIsNative     bool      `json:"collateral_is_native"`
	CollateralToken        string    `json:"collateral_token,omitempty"`
	AssetIsNative          bool      `json:"asset_is_native"`
	AssetToken             string    `json:"asset_token,omitempty"`
	InDefault              bool      `json:"in_default"`
	PaidEarly              bool      `json:"paid_early"`
	RequestPaidEarly       bool      `json:"request_paid_early"`
	RequestPaidEarlyAmount *big.Int  `json:"request_paid_early_amount"`
}

// State derives the display state. Evaluation order is fixed; the first
// match wins. Defaulted and PaidEarly are terminal and shadow everything
// else. An open early-repayment request shadows InProgress, since a request
// is only legal while principal is still outstanding.
func (l *Loan) State() State {
	switch {
	case l.InDefault:
		return StateDefaulted
	case l.PaidEarly:
		return StatePaidEarly
	case l.RequestPaidEarly:
		return StateEarlyRepaymentRequested
	case l.Remaining != nil && l.Remaining.Sign() != 0:
		return StateInProgress
	default:
		return StatePaidOff
	}
}

// Terminal reports whether no further mutation is legal on the loan.
func (l *Loan) Terminal() bool {
	s := l.State()
	return s == StateDefaulted || s == StatePaidEarly || s == StatePaidOff
}

// ActionsFor returns the actions the given account may invoke in the
// derived state. Terminal states offer nothing to either party.
func (l *Loan) ActionsFor(self string) []Action {
	switch l.State() {
	case StateInProgress:
		if self == l.Borrower {
			return []Action{ActionPayment, ActionRequestEarlyRepayment}
		}
		if self == l.Lender {
			return []Action{ActionDefault}
		}
	case StateEarlyRepaymentRequested:
		if self == l.Lender {
			return []Action{ActionApproveEarlyRepayment, ActionRejectEarlyRepayment}
		}
	}
	return nil
}

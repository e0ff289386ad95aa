package loan

import (
	"math/big"
	"testing"
)

const (
	borrower = "0xb000000000000000000000000000000000000001"
	lender   = "0xa000000000000000000000000000000000000001"
	stranger = "0xc000000000000000000000000000000000000001"
)

func mkLoan(remaining int64, inDefault, paidEarly, requestPaidEarly bool) *Loan {
	return &Loan{
		Address:                "0xd000000000000000000000000000000000000001",
		Lender:                 lender,
		Borrower:               borrower,
		Remaining:              big.NewInt(remaining),
		SinglePayment:          big.NewInt(20),
		RequestPaidEarlyAmount: big.NewInt(0),
		InDefault:              inDefault,
		PaidEarly:              paidEarly,
		RequestPaidEarly:       requestPaidEarly,
	}
}

// Every flag combination must land on exactly one state, following the
// fixed priority order.
func TestState_PriorityOrder(t *testing.T) {
	for _, remaining := range []int64{0, 40} {
		for _, inDefault := range []bool{false, true} {
			for _, paidEarly := range []bool{false, true} {
				for _, requested := range []bool{false, true} {
					l := mkLoan(remaining, inDefault, paidEarly, requested)

					var want State
					switch {
					case inDefault:
						want = StateDefaulted
					case paidEarly:
						want = StatePaidEarly
					case requested:
						want = StateEarlyRepaymentRequested
					case remaining != 0:
						want = StateInProgress
					default:
						want = StatePaidOff
					}

					if got := l.State(); got != want {
						t.Errorf("remaining=%d inDefault=%v paidEarly=%v requested=%v: state = %q, want %q",
							remaining, inDefault, paidEarly, requested, got, want)
					}
				}
			}
		}
	}
}

func TestState_PaidOffOffersNoActions(t *testing.T) {
	l := mkLoan(0, false, false, false)
	if got := l.State(); got != StatePaidOff {
		t.Fatalf("state = %q, want %q", got, StatePaidOff)
	}
	if actions := l.ActionsFor(borrower); len(actions) != 0 {
		t.Fatalf("borrower actions = %v, want none", actions)
	}
	if actions := l.ActionsFor(lender); len(actions) != 0 {
		t.Fatalf("lender actions = %v, want none", actions)
	}
}

func TestState_EarlyRepaymentRequestedActions(t *testing.T) {
	l := mkLoan(40, false, false, true)
	l.RequestPaidEarlyAmount = big.NewInt(40)

	if got := l.State(); got != StateEarlyRepaymentRequested {
		t.Fatalf("state = %q, want %q", got, StateEarlyRepaymentRequested)
	}

	lenderActions := l.ActionsFor(lender)
	if len(lenderActions) != 2 ||
		lenderActions[0] != ActionApproveEarlyRepayment ||
		lenderActions[1] != ActionRejectEarlyRepayment {
		t.Fatalf("lender actions = %v, want approve+reject", lenderActions)
	}
	if actions := l.ActionsFor(borrower); len(actions) != 0 {
		t.Fatalf("borrower actions = %v, want none while request is open", actions)
	}
}

func TestState_InProgressActions(t *testing.T) {
	l := mkLoan(100, false, false, false)

	borrowerActions := l.ActionsFor(borrower)
	if len(borrowerActions) != 2 ||
		borrowerActions[0] != ActionPayment ||
		borrowerActions[1] != ActionRequestEarlyRepayment {
		t.Fatalf("borrower actions = %v", borrowerActions)
	}
	lenderActions := l.ActionsFor(lender)
	if len(lenderActions) != 1 || lenderActions[0] != ActionDefault {
		t.Fatalf("lender actions = %v", lenderActions)
	}
	if actions := l.ActionsFor(stranger); len(actions) != 0 {
		t.Fatalf("third-party actions = %v, want none", actions)
	}
}

func TestTerminal(t *testing.T) {
	cases := []struct {
		name string
		l    *Loan
		want bool
	}{
		{"defaulted", mkLoan(40, true, false, false), true},
		{"paid early", mkLoan(0, false, true, false), true},
		{"paid off", mkLoan(0, false, false, false), true},
		{"in progress", mkLoan(40, false, false, false), false},
		{"request open", mkLoan(40, false, false, true), false},
	}
	for _, tc := range cases {
		if got := tc.l.Terminal(); got != tc.want {
			t.Errorf("%s: Terminal() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

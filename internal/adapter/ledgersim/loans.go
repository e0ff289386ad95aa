package ledgersim

import (
	"context"
	"errors"
	"math/big"

	"gorm.io/gorm"

	"peerlend-backend/internal/domain/ledger"
)

// findLoan reads one loan row through db, which must be the transaction
// handle when called inside a transaction: with the sqlite dialect a
// second pooled connection sees a different database.
func findLoan(db *gorm.DB, address string) (loanRow, error) {
	var row loanRow
	if err := db.First(&row, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, ledger.ErrNotFound
		}
		return row, &ledger.TransportError{Op: "loanDetails", Err: err}
	}
	return row, nil
}

func (s *Sim) loan(address string) (loanRow, error) {
	return findLoan(s.db, address)
}

func (s *Sim) LoanDetails(ctx context.Context, address string) (ledger.RawLoan, error) {
	row, err := s.loan(address)
	if err != nil {
		return ledger.RawLoan{}, err
	}
	return ledger.RawLoan{
		Lender:                 row.Lender,
		Borrower:               row.Borrower,
		Remaining:              parseAmount(row.Remaining),
		SinglePayment:          parseAmount(row.SinglePayment),
		Interval:               row.Interval,
		DefaultLimit:           row.DefaultLimit,
		LastPayment:            row.LastPayment,
		Collateral:             parseAmount(row.Collateral),
		CollateralIsNative:     row.CollateralIsNative,
		CollateralToken:        row.CollateralToken,
		AssetIsNative:          row.AssetIsNative,
		AssetToken:             row.AssetToken,
		InDefault:              row.InDefault,
		PaidEarly:              row.PaidEarly,
		RequestPaidEarly:       row.RequestPaidEarly,
		RequestPaidEarlyAmount: parseAmount(row.RequestPaidEarlyAmount),
	}, nil
}

func (s *Sim) ListLoans(ctx context.Context, borrower, lender string) ([]ledger.LoanRef, error) {
	q := s.db.Model(&loanRow{}).Order("created_at")
	if borrower != "" {
		q = q.Where("borrower = ?", borrower)
	}
	if lender != "" {
		q = q.Where("lender = ?", lender)
	}
	var rows []loanRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, &ledger.TransportError{Op: "listLoans", Err: err}
	}
	refs := make([]ledger.LoanRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, ledger.LoanRef{Address: row.Address, Lender: row.Lender, Borrower: row.Borrower})
	}
	return refs, nil
}

// ---- guards ----

func terminal(row loanRow) bool {
	return row.InDefault || row.PaidEarly ||
		(parseAmount(row.Remaining).Sign() == 0 && !row.RequestPaidEarly)
}

// Row predicates shared by the Can* reads and the mutation transactions,
// so a mutation checks the row it already holds instead of re-reading.

func canPay(row loanRow) bool {
	return !terminal(row) && !row.RequestPaidEarly && parseAmount(row.Remaining).Sign() > 0
}

func canDefault(row loanRow, now int64) bool {
	if terminal(row) || parseAmount(row.Remaining).Sign() == 0 {
		return false
	}
	return now-row.LastPayment > row.DefaultLimit
}

func canSettleEarly(row loanRow) bool {
	return !row.InDefault && !row.PaidEarly && row.RequestPaidEarly
}

func (s *Sim) CanDoPayment(ctx context.Context, address string) (bool, error) {
	row, err := s.loan(address)
	if err != nil {
		return false, err
	}
	return canPay(row), nil
}

func (s *Sim) CanDefault(ctx context.Context, address string) (bool, error) {
	row, err := s.loan(address)
	if err != nil {
		return false, err
	}
	return canDefault(row, s.now().Unix()), nil
}

func (s *Sim) CanRequestEarlyRepayment(ctx context.Context, address string) (bool, error) {
	row, err := s.loan(address)
	if err != nil {
		return false, err
	}
	return canPay(row), nil
}

func (s *Sim) CanDoEarlyRepayment(ctx context.Context, address string) (bool, error) {
	row, err := s.loan(address)
	if err != nil {
		return false, err
	}
	return canSettleEarly(row), nil
}

// ---- mutations ----

func (s *Sim) DoPayment(ctx context.Context, address string, payable *big.Int) (ledger.PendingTx, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := findLoan(tx, address)
		if err != nil {
			return err
		}
		if row.Borrower != s.self {
			return &ledger.GuardViolation{Action: "doPayment", Reason: "caller is not the borrower"}
		}
		if !canPay(row) {
			return &ledger.GuardViolation{Action: "doPayment"}
		}
		single := parseAmount(row.SinglePayment)
		if row.AssetIsNative {
			if cmpPayable(payable, single) != 0 {
				return &ledger.GuardViolation{Action: "doPayment", Reason: "payable value must equal the single payment"}
			}
		} else {
			if err := spendAllowance(tx, "doPayment", row.AssetToken, s.self, address, single); err != nil {
				return err
			}
		}
		remaining := new(big.Int).Sub(parseAmount(row.Remaining), single)
		if remaining.Sign() < 0 {
			remaining.SetInt64(0)
		}
		row.Remaining = padAmount(remaining)
		row.LastPayment = s.now().Unix()
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return newTx(), nil
}

func (s *Sim) RequestEarlyRepayment(ctx context.Context, address string, amount, payable *big.Int) (ledger.PendingTx, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := findLoan(tx, address)
		if err != nil {
			return err
		}
		if row.Borrower != s.self {
			return &ledger.GuardViolation{Action: "requestEarlyRepayment", Reason: "caller is not the borrower"}
		}
		if !canPay(row) {
			return &ledger.GuardViolation{Action: "requestEarlyRepayment"}
		}
		if row.AssetIsNative && cmpPayable(payable, amount) != 0 {
			return &ledger.GuardViolation{Action: "requestEarlyRepayment", Reason: "payable value must equal the offered amount"}
		}
		row.RequestPaidEarly = true
		row.RequestPaidEarlyAmount = padAmount(amount)
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return newTx(), nil
}

func (s *Sim) ApproveEarlyRepayment(ctx context.Context, address string) (ledger.PendingTx, error) {
	return s.lenderSettle(ctx, address, "acceptEarlyRepayment", func(row *loanRow) {
		row.PaidEarly = true
		row.RequestPaidEarly = false
		row.Remaining = padAmount(nil)
	})
}

func (s *Sim) RejectEarlyRepayment(ctx context.Context, address string) (ledger.PendingTx, error) {
	return s.lenderSettle(ctx, address, "rejectEarlyRepayment", func(row *loanRow) {
		row.RequestPaidEarly = false
		row.RequestPaidEarlyAmount = padAmount(nil)
	})
}

func (s *Sim) lenderSettle(ctx context.Context, address, action string, apply func(*loanRow)) (ledger.PendingTx, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := findLoan(tx, address)
		if err != nil {
			return err
		}
		if row.Lender != s.self {
			return &ledger.GuardViolation{Action: action, Reason: "caller is not the lender"}
		}
		if !canSettleEarly(row) {
			return &ledger.GuardViolation{Action: action}
		}
		apply(&row)
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return newTx(), nil
}

// DefaultOnLoan marks the loan defaulted; the contract would transfer the
// collateral to the lender at this point.
func (s *Sim) DefaultOnLoan(ctx context.Context, address string) (ledger.PendingTx, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := findLoan(tx, address)
		if err != nil {
			return err
		}
		if row.Lender != s.self {
			return &ledger.GuardViolation{Action: "defaultOnLoan", Reason: "caller is not the lender"}
		}
		if !canDefault(row, s.now().Unix()) {
			return &ledger.GuardViolation{Action: "defaultOnLoan"}
		}
		row.InDefault = true
		row.RequestPaidEarly = false
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return newTx(), nil
}

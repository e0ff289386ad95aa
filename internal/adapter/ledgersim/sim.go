// Package ledgersim is a gorm-backed stand-in for the remote lending
// ledger, used for development and integration tests. It enforces the same
// preconditions the contract would, so client-side guard handling and
// revert tolerance can be exercised without a chain.
package ledgersim

import (
	"context"
	"errors"
	"math/big"
	"time"

	"gorm.io/gorm"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/pkg/id"
)

type Sim struct {
	db       *gorm.DB
	self     string
	platform string
	now      func() time.Time
}

// New binds a simulator session to one signing account. An empty account
// is the wallet-unavailable condition and fatal for the session.
func New(db *gorm.DB, self, platform string) (*Sim, error) {
	if self == "" {
		return nil, ledger.ErrWalletUnavailable
	}
	if err := db.AutoMigrate(
		&offerRow{}, &loanRow{}, &requestRow{}, &limitRow{},
		&allowanceRow{}, &settingRow{},
	); err != nil {
		return nil, err
	}
	return &Sim{db: db, self: self, platform: platform, now: func() time.Time { return time.Now().UTC() }}, nil
}

// WithAccount returns a session bound to a different account over the same
// ledger state. Used by tests to act as both parties.
func (s *Sim) WithAccount(self string) (*Sim, error) {
	if self == "" {
		return nil, ledger.ErrWalletUnavailable
	}
	return &Sim{db: s.db, self: self, platform: s.platform, now: s.now}, nil
}

// WithClock overrides the simulator clock; default-deadline tests move it.
func (s *Sim) WithClock(now func() time.Time) *Sim {
	return &Sim{db: s.db, self: s.self, platform: s.platform, now: now}
}

// Seed sets the ledger owner and initial application fee on a fresh store.
func (s *Sim) Seed(owner string, fee *big.Int) error {
	for _, kv := range []settingRow{
		{Key: "owner", Value: owner},
		{Key: "fee", Value: padAmount(fee)},
	} {
		if err := s.db.Where(settingRow{Key: kv.Key}).
			Assign(settingRow{Value: kv.Value}).
			FirstOrCreate(&settingRow{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Sim) Self() string            { return s.self }
func (s *Sim) PlatformAddress() string { return s.platform }

type simTx struct{ id string }

func (t simTx) ID() string                      { return t.id }
func (t simTx) Confirm(_ context.Context) error { return nil }

// Transaction handles look like the 32-hex ids the real ledger returns.
func newTx() simTx { return simTx{id: id.NewID32()} }

func (s *Sim) setting(key string) (string, error) {
	var row settingRow
	if err := s.db.First(&row, "`key` = ?", key).Error; err != nil {
		return "", &ledger.TransportError{Op: "setting " + key, Err: err}
	}
	return row.Value, nil
}

func (s *Sim) Owner(ctx context.Context) (string, error) {
	return s.setting("owner")
}

func (s *Sim) TokenName(ctx context.Context, token string) (string, error) {
	if len(token) < 10 {
		return "", ledger.ErrNotFound
	}
	// No token registry in the simulator; derive a stable display name.
	return "token-" + token[2:8], nil
}

func (s *Sim) LoanFee(ctx context.Context) (*big.Int, error) {
	v, err := s.setting("fee")
	if err != nil {
		return nil, err
	}
	return parseAmount(v), nil
}

func (s *Sim) SetLoanFee(ctx context.Context, amount *big.Int) (ledger.PendingTx, error) {
	if err := s.requireOwner("setLoanFee"); err != nil {
		return nil, err
	}
	if err := s.db.Model(&settingRow{}).Where("`key` = ?", "fee").
		Update("value", padAmount(amount)).Error; err != nil {
		return nil, &ledger.TransportError{Op: "setLoanFee", Err: err}
	}
	return newTx(), nil
}

func (s *Sim) requireOwner(action string) error {
	owner, err := s.setting("owner")
	if err != nil {
		return err
	}
	if owner != s.self {
		return &ledger.GuardViolation{Action: action, Reason: "caller is not the ledger owner"}
	}
	return nil
}

// ---- token approvals ----

func (s *Sim) ApproveToken(ctx context.Context, token, spender string, amount *big.Int) (ledger.PendingTx, error) {
	row := allowanceRow{Token: token, Owner: s.self, Spender: spender}
	err := s.db.Where(row).Assign(allowanceRow{Amount: padAmount(amount)}).
		FirstOrCreate(&allowanceRow{}).Error
	if err != nil {
		return nil, &ledger.TransportError{Op: "approveToken", Err: err}
	}
	return newTx(), nil
}

// spendAllowance consumes amount from owner's approval for spender inside
// tx, reverting when the approval is missing or short.
func spendAllowance(tx *gorm.DB, action, token, owner, spender string, amount *big.Int) error {
	var row allowanceRow
	err := tx.Where("token = ? AND owner = ? AND spender = ?", token, owner, spender).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ledger.GuardViolation{Action: action, Reason: "token allowance not approved"}
	}
	if err != nil {
		return &ledger.TransportError{Op: action, Err: err}
	}
	have := parseAmount(row.Amount)
	if have.Cmp(amount) < 0 {
		return &ledger.GuardViolation{Action: action, Reason: "token allowance too low"}
	}
	row.Amount = padAmount(new(big.Int).Sub(have, amount))
	return tx.Save(&row).Error
}

// ---- offers ----

func (s *Sim) OfferLoan(ctx context.Context, iss ledger.Issuance, payable *big.Int) (ledger.PendingTx, error) {
	row := offerRow{
		FromAddr:      s.self,
		Amount:        padAmount(iss.Amount),
		ToBePaid:      padAmount(iss.ToBePaid),
		SinglePayment: padAmount(iss.SinglePayment),
		Interval:      iss.Interval,
		DefaultLimit:  iss.DefaultLimit,
		Collateral:    padAmount(iss.Collateral),
		CreatedAt:     s.now(),
	}
	switch iss.Variant {
	case ledger.NativeNative, ledger.NativeToken:
		row.AssetIsNative = true
	case ledger.TokenNative, ledger.TokenToken:
		row.AssetToken = iss.FundingToken
	default:
		return nil, ledger.Invalid("unknown issuance variant %q", iss.Variant)
	}
	switch iss.Variant {
	case ledger.NativeNative, ledger.TokenNative:
		row.CollateralIsNative = true
	default:
		row.CollateralToken = iss.CollateralToken
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if row.AssetIsNative {
			if cmpPayable(payable, iss.Amount) != 0 {
				return &ledger.GuardViolation{Action: "offerLoan", Reason: "payable value must equal the funding amount"}
			}
		} else {
			if err := spendAllowance(tx, "offerLoan", row.AssetToken, s.self, s.platform, iss.Amount); err != nil {
				return err
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return newTx(), nil
}

func (s *Sim) RemoveLoan(ctx context.Context, offerID uint64) (ledger.PendingTx, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row offerRow
		if err := tx.First(&row, offerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.ErrNotFound
			}
			return &ledger.TransportError{Op: "removeLoan", Err: err}
		}
		if row.FromAddr != s.self {
			return &ledger.GuardViolation{Action: "removeLoan", Reason: "caller is not the offer proposer"}
		}
		return tx.Delete(&offerRow{}, offerID).Error
	})
	if err != nil {
		return nil, err
	}
	return newTx(), nil
}

// AcceptLoan atomically creates the loan and deletes the offer slot.
func (s *Sim) AcceptLoan(ctx context.Context, offerID uint64, payable *big.Int) (ledger.PendingTx, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row offerRow
		if err := tx.First(&row, offerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.ErrNotFound
			}
			return &ledger.TransportError{Op: "acceptLoan", Err: err}
		}
		if row.FromAddr == s.self {
			return &ledger.GuardViolation{Action: "acceptLoan", Reason: "proposer cannot accept own offer"}
		}
		collateral := parseAmount(row.Collateral)
		if row.CollateralIsNative {
			if cmpPayable(payable, collateral) != 0 {
				return &ledger.GuardViolation{Action: "acceptLoan", Reason: "payable value must equal the collateral"}
			}
		} else {
			if err := spendAllowance(tx, "acceptLoan", row.CollateralToken, s.self, s.platform, collateral); err != nil {
				return err
			}
		}

		l := loanRow{
			Address:                id.NewAddress(),
			Lender:                 row.FromAddr,
			Borrower:               s.self,
			Remaining:              row.ToBePaid,
			SinglePayment:          row.SinglePayment,
			Interval:               row.Interval,
			DefaultLimit:           row.DefaultLimit,
			LastPayment:            s.now().Unix(),
			Collateral:             row.Collateral,
			CollateralIsNative:     row.CollateralIsNative,
			CollateralToken:        row.CollateralToken,
			AssetIsNative:          row.AssetIsNative,
			AssetToken:             row.AssetToken,
			RequestPaidEarlyAmount: padAmount(nil),
		}
		if err := tx.Create(&l).Error; err != nil {
			return err
		}
		return tx.Delete(&offerRow{}, offerID).Error
	})
	if err != nil {
		return nil, err
	}
	return newTx(), nil
}

func (s *Sim) FindOffer(ctx context.Context, offerID uint64) (ledger.RawOffer, error) {
	var row offerRow
	if err := s.db.First(&row, offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.RawOffer{}, ledger.ErrNotFound
		}
		return ledger.RawOffer{}, &ledger.TransportError{Op: "findOffer", Err: err}
	}
	return rawOffer(row), nil
}

func (s *Sim) ListOffers(ctx context.Context, offset, limit int, f ledger.OfferFilter) ([]ledger.RawOffer, error) {
	q := s.db.Model(&offerRow{}).Order("id")
	if f.From != "" {
		q = q.Where("from_addr = ?", f.From)
	}
	if f.AssetIsNative != nil {
		q = q.Where("asset_is_native = ?", *f.AssetIsNative)
	}
	if f.AssetToken != "" {
		q = q.Where("asset_token = ?", f.AssetToken)
	}
	if f.CollateralIsNative != nil {
		q = q.Where("collateral_is_native = ?", *f.CollateralIsNative)
	}
	if f.CollateralToken != "" {
		q = q.Where("collateral_token = ?", f.CollateralToken)
	}
	// Padded decimals compare numerically as strings.
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", padAmount(f.MinAmount))
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", padAmount(f.MaxAmount))
	}
	if f.MaxSinglePayment != nil {
		q = q.Where("single_payment <= ?", padAmount(f.MaxSinglePayment))
	}

	var rows []offerRow
	if err := q.Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, &ledger.TransportError{Op: "listOffers", Err: err}
	}
	out := make([]ledger.RawOffer, 0, len(rows))
	for _, row := range rows {
		out = append(out, rawOffer(row))
	}
	return out, nil
}

func rawOffer(row offerRow) ledger.RawOffer {
	return ledger.RawOffer{
		ID:                 row.ID,
		From:               row.FromAddr,
		AssetIsNative:      row.AssetIsNative,
		AssetToken:         row.AssetToken,
		Amount:             parseAmount(row.Amount),
		ToBePaid:           parseAmount(row.ToBePaid),
		SinglePayment:      parseAmount(row.SinglePayment),
		Interval:           row.Interval,
		DefaultLimit:       row.DefaultLimit,
		Collateral:         parseAmount(row.Collateral),
		CollateralIsNative: row.CollateralIsNative,
		CollateralToken:    row.CollateralToken,
	}
}

func cmpPayable(payable, want *big.Int) int {
	if payable == nil {
		payable = big.NewInt(0)
	}
	return payable.Cmp(want)
}

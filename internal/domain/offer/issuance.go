package offer

import (
	"math/big"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/internal/domain/loan"
)

// Terms are the fields every issuance variant shares. Durations are in
// days; the gateway boundary converts to seconds.
type Terms struct {
	Amount           *big.Int
	ToBePaid         *big.Int
	IntervalDays     int64
	DefaultLimitDays int64
	SinglePayment    *big.Int
	Collateral       *big.Int
}

// Issuance is one of the four (funding asset, collateral asset) offer
// variants. FundingToken reports the token to approve for the platform
// before the offer call; ok is false for native funding, where the amount
// rides on the issuance call as payable value instead.
type Issuance interface {
	Variant() ledger.Variant
	FundingToken() (token string, ok bool)
	Ledger() ledger.Issuance
	Validate() error
}

type NativeNative struct{ Terms }

type NativeToken struct {
	Terms
	CollateralToken string
}

type TokenNative struct {
	Terms
	Token string // funding token
}

type TokenToken struct {
	Terms
	Token           string // funding token
	CollateralToken string
}

func (NativeNative) Variant() ledger.Variant { return ledger.NativeNative }
func (NativeToken) Variant() ledger.Variant  { return ledger.NativeToken }
func (TokenNative) Variant() ledger.Variant  { return ledger.TokenNative }
func (TokenToken) Variant() ledger.Variant   { return ledger.TokenToken }

func (NativeNative) FundingToken() (string, bool)  { return "", false }
func (NativeToken) FundingToken() (string, bool)   { return "", false }
func (i TokenNative) FundingToken() (string, bool) { return i.Token, true }
func (i TokenToken) FundingToken() (string, bool)  { return i.Token, true }

func (t Terms) ledger(v ledger.Variant, fundingToken, collateralToken string) ledger.Issuance {
	return ledger.Issuance{
		Variant:         v,
		Amount:          t.Amount,
		ToBePaid:        t.ToBePaid,
		Interval:        loan.DaysToSeconds(t.IntervalDays),
		DefaultLimit:    loan.DaysToSeconds(t.DefaultLimitDays),
		SinglePayment:   t.SinglePayment,
		Collateral:      t.Collateral,
		FundingToken:    fundingToken,
		CollateralToken: collateralToken,
	}
}

func (i NativeNative) Ledger() ledger.Issuance {
	return i.Terms.ledger(ledger.NativeNative, "", "")
}
func (i NativeToken) Ledger() ledger.Issuance {
	return i.Terms.ledger(ledger.NativeToken, "", i.CollateralToken)
}
func (i TokenNative) Ledger() ledger.Issuance {
	return i.Terms.ledger(ledger.TokenNative, i.Token, "")
}
func (i TokenToken) Ledger() ledger.Issuance {
	return i.Terms.ledger(ledger.TokenToken, i.Token, i.CollateralToken)
}

func (t Terms) validate() error {
	if t.Amount == nil || t.Amount.Sign() <= 0 {
		return ledger.Invalid("amount must be a positive integer")
	}
	if t.ToBePaid == nil || t.ToBePaid.Sign() <= 0 {
		return ledger.Invalid("toBePaid must be a positive integer")
	}
	if t.SinglePayment == nil || t.SinglePayment.Sign() <= 0 {
		return ledger.Invalid("singlePayment must be a positive integer")
	}
	if t.Collateral == nil || t.Collateral.Sign() <= 0 {
		return ledger.Invalid("collateral must be a positive integer")
	}
	if t.IntervalDays <= 0 {
		return ledger.Invalid("interval must be at least one day")
	}
	if t.DefaultLimitDays <= 0 {
		return ledger.Invalid("defaultLimit must be at least one day")
	}
	return nil
}

func (i NativeNative) Validate() error { return i.Terms.validate() }

func (i NativeToken) Validate() error {
	if err := i.Terms.validate(); err != nil {
		return err
	}
	if i.CollateralToken == "" {
		return ledger.Invalid("collateral token address required")
	}
	return nil
}

func (i TokenNative) Validate() error {
	if err := i.Terms.validate(); err != nil {
		return err
	}
	if i.Token == "" {
		return ledger.Invalid("funding token address required")
	}
	return nil
}

func (i TokenToken) Validate() error {
	if err := i.Terms.validate(); err != nil {
		return err
	}
	if i.Token == "" {
		return ledger.Invalid("funding token address required")
	}
	if i.CollateralToken == "" {
		return ledger.Invalid("collateral token address required")
	}
	return nil
}

package loan

import (
	"math/big"
	"time"

	"peerlend-backend/internal/domain/ledger"
)

// SecondsPerDay is the fixed conversion constant between the ledger's
// second-denominated durations and day-denominated display values.
const SecondsPerDay int64 = 86400

// DaysToSeconds converts an integer day count exactly.
func DaysToSeconds(days int64) int64 { return days * SecondsPerDay }

// SecondsToDays rounds to the nearest whole day, so that integer day counts
// round-trip exactly through DaysToSeconds.
func SecondsToDays(seconds int64) int64 {
	return (seconds + SecondsPerDay/2) / SecondsPerDay
}

// FromRaw translates the ledger's loan-detail tuple into the canonical
// entity. Amounts are copied so later ledger reads cannot alias the
// snapshot.
func FromRaw(address string, raw ledger.RawLoan) *Loan {
	return &Loan{
		Address:                address,
		Lender:                 raw.Lender,
		Borrower:               raw.Borrower,
		Remaining:              cloneInt(raw.Remaining),
		SinglePayment:          cloneInt(raw.SinglePayment),
		IntervalDays:           SecondsToDays(raw.Interval),
		DefaultLimitDays:       SecondsToDays(raw.DefaultLimit),
		LastPayment:            time.Unix(raw.LastPayment, 0).UTC(),
		Collateral:             cloneInt(raw.Collateral),
		CollateralIsNative:     raw.CollateralIsNative,
		CollateralToken:        raw.CollateralToken,
		AssetIsNative:          raw.AssetIsNative,
		AssetToken:             raw.AssetToken,
		InDefault:              raw.InDefault,
		PaidEarly:              raw.PaidEarly,
		RequestPaidEarly:       raw.RequestPaidEarly,
		RequestPaidEarlyAmount: cloneInt(raw.RequestPaidEarlyAmount),
	}
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

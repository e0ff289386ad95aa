package ledgersim

import (
	"fmt"
	"math/big"
	"time"
)

// Amount columns hold zero-padded 78-digit decimals (enough for uint256)
// so plain string comparison orders them numerically.
const amountWidth = 78

func padAmount(v *big.Int) string {
	if v == nil {
		v = big.NewInt(0)
	}
	return fmt.Sprintf("%0*s", amountWidth, v.String())
}

func parseAmount(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

type offerRow struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	FromAddr           string `gorm:"size:42;index"`
	AssetIsNative      bool
	AssetToken         string `gorm:"size:42"`
	Amount             string `gorm:"size:80"`
	ToBePaid           string `gorm:"size:80"`
	SinglePayment      string `gorm:"size:80"`
	Interval           int64
	DefaultLimit       int64
	Collateral         string `gorm:"size:80"`
	CollateralIsNative bool
	CollateralToken    string `gorm:"size:42"`
	CreatedAt          time.Time
}

func (offerRow) TableName() string { return "offers" }

type loanRow struct {
	Address                string `gorm:"primaryKey;size:42"`
	Lender                 string `gorm:"size:42;index"`
	Borrower               string `gorm:"size:42;index"`
	Remaining              string `gorm:"size:80"`
	SinglePayment          string `gorm:"size:80"`
	Interval               int64
	DefaultLimit           int64
	LastPayment            int64
	Collateral             string `gorm:"size:80"`
	CollateralIsNative     bool
	CollateralToken        string `gorm:"size:42"`
	AssetIsNative          bool
	AssetToken             string `gorm:"size:42"`
	InDefault              bool
	PaidEarly              bool
	RequestPaidEarly       bool
	RequestPaidEarlyAmount string `gorm:"size:80"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (loanRow) TableName() string { return "loans" }

type requestRow struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"` // doubles as uniqueId
	Borrower  string `gorm:"size:42;index"`
	Envelope  []byte `gorm:"type:blob"`
	Closed    bool
	CreatedAt time.Time
}

func (requestRow) TableName() string { return "limit_requests" }

type limitRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Borrower   string `gorm:"size:42;uniqueIndex:ux_limits_borrower_asset"`
	AssetToken string `gorm:"size:42;uniqueIndex:ux_limits_borrower_asset"` // empty = native
	Amount     string `gorm:"size:80"`
	UpdatedAt  time.Time
}

func (limitRow) TableName() string { return "limits" }

type allowanceRow struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Token   string `gorm:"size:42;uniqueIndex:ux_allowance"`
	Owner   string `gorm:"size:42;uniqueIndex:ux_allowance"`
	Spender string `gorm:"size:42;uniqueIndex:ux_allowance"`
	Amount  string `gorm:"size:80"`
}

func (allowanceRow) TableName() string { return "allowances" }

type settingRow struct {
	Key   string `gorm:"primaryKey;size:32"`
	Value string `gorm:"size:128"`
}

func (settingRow) TableName() string { return "settings" }

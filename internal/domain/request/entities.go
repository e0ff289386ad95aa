package request

import "peerlend-backend/internal/domain/ledger"

// LendingLimitRequest is a borrower's open application for an increased
// credit ceiling. The encrypted document itself is fetched separately and
// only readable by the ledger owner.
type LendingLimitRequest struct {
	Borrower string `json:"borrower"`
	UniqueID uint64 `json:"unique_id"`
}

// Empty reports whether the listing slot is unused (zero-sentinel).
func (r LendingLimitRequest) Empty() bool { return r.UniqueID == 0 }

func FromRaw(raw ledger.RawRequest) LendingLimitRequest {
	return LendingLimitRequest{Borrower: raw.Borrower, UniqueID: raw.UniqueID}
}

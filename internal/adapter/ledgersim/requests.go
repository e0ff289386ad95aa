package ledgersim

import (
	"context"
	"errors"
	"math/big"

	"gorm.io/gorm"

	"peerlend-backend/internal/domain/ledger"
)

// SetLoanLimitRequest stores a borrower's encrypted application. The
// prevailing fee must ride as payable value; short payment reverts.
func (s *Sim) SetLoanLimitRequest(ctx context.Context, envelope []byte, payable *big.Int) (ledger.PendingTx, error) {
	fee, err := s.LoanFee(ctx)
	if err != nil {
		return nil, err
	}
	if cmpPayable(payable, fee) < 0 {
		return nil, &ledger.GuardViolation{Action: "setLoanLimitRequest", Reason: "application fee not covered"}
	}
	if len(envelope) == 0 {
		return nil, &ledger.GuardViolation{Action: "setLoanLimitRequest", Reason: "empty request"}
	}
	row := requestRow{Borrower: s.self, Envelope: envelope, CreatedAt: s.now()}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, &ledger.TransportError{Op: "setLoanLimitRequest", Err: err}
	}
	return newTx(), nil
}

// LoanLimitRequest returns the raw envelope for a borrower's most recent
// open application. Only the ledger owner may read it.
func (s *Sim) LoanLimitRequest(ctx context.Context, borrower string) ([]byte, error) {
	if err := s.requireOwner("getLoanLimitRequest"); err != nil {
		return nil, err
	}
	var row requestRow
	err := s.db.Where("borrower = ? AND closed = ?", borrower, false).
		Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, &ledger.TransportError{Op: "getLoanLimitRequest", Err: err}
	}
	return row.Envelope, nil
}

// SetLoanLimit grants (or, with amount zero, denies) a lending limit and
// closes the referenced request. Owner-only.
func (s *Sim) SetLoanLimit(ctx context.Context, borrower string, amount *big.Int, assetToken string, requestID uint64) (ledger.PendingTx, error) {
	if err := s.requireOwner("setLoanLimit"); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		limit := limitRow{Borrower: borrower, AssetToken: assetToken}
		if err := tx.Where(limit).
			Assign(limitRow{Amount: padAmount(amount)}).
			FirstOrCreate(&limitRow{}).Error; err != nil {
			return err
		}
		q := tx.Model(&requestRow{}).Where("borrower = ?", borrower)
		if requestID != 0 {
			q = q.Where("id = ?", requestID)
		}
		return q.Update("closed", true).Error
	})
	if err != nil {
		return nil, &ledger.TransportError{Op: "setLoanLimit", Err: err}
	}
	return newTx(), nil
}

func (s *Sim) ListActiveRequests(ctx context.Context, offset, limit int) ([]ledger.RawRequest, error) {
	var rows []requestRow
	err := s.db.Where("closed = ?", false).Order("id").
		Offset(offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, &ledger.TransportError{Op: "listActiveRequests", Err: err}
	}
	out := make([]ledger.RawRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledger.RawRequest{Borrower: row.Borrower, UniqueID: row.ID})
	}
	return out, nil
}

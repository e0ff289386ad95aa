// Package document exchanges the confidential lending-limit application:
// the borrower submits it sealed in a hybrid encryption envelope with the
// prevailing fee attached, and only the ledger owner, supplying the bank's
// private key interactively, can ever recover the plaintext. Key material
// is generated or supplied fresh per operation and never retained.
package document

import (
	"context"
	"crypto/rsa"
	"math/big"
	"time"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/internal/infrastructure/event"
	"peerlend-backend/pkg/envelope"
	"peerlend-backend/pkg/retry"
)

// MaxApplicationLength caps the free-form application document, in
// characters, checked before any network call.
const MaxApplicationLength = 5000

type Usecase struct {
	gw       ledger.Gateway
	bankKey  *rsa.PublicKey
	events   event.Notifier
	attempts int
	backoff  time.Duration
}

func NewUsecase(gw ledger.Gateway, bankKey *rsa.PublicKey, events event.Notifier) *Usecase {
	if events == nil {
		events = event.Nop{}
	}
	return &Usecase{
		gw:       gw,
		bankKey:  bankKey,
		events:   events,
		attempts: retry.DefaultAttempts,
		backoff:  retry.DefaultBackoff,
	}
}

// Submit seals the application under the bank's public key and sends it
// with the current application fee as payable value.
func (u *Usecase) Submit(ctx context.Context, application string) (string, error) {
	if application == "" {
		return "", ledger.Invalid("application must not be empty")
	}
	if len(application) > MaxApplicationLength {
		return "", ledger.Invalid("application cannot be longer than %d characters", MaxApplicationLength)
	}

	fee, err := u.Fee(ctx)
	if err != nil {
		return "", err
	}
	env, err := envelope.Seal([]byte(application), u.bankKey)
	if err != nil {
		return "", err
	}
	payload, err := env.Marshal()
	if err != nil {
		return "", err
	}

	tx, err := u.gw.SetLoanLimitRequest(ctx, payload, fee)
	if err != nil {
		return "", err
	}
	if err := tx.Confirm(ctx); err != nil {
		return "", err
	}
	u.events.Confirmed(ctx, event.Confirmation{Kind: "limit_requested", Subject: u.gw.Self(), TxID: tx.ID()})
	return tx.ID(), nil
}

// Retrieve fetches and decrypts a borrower's application. privateKeyPEM is
// supplied at time of use and discarded with the call frame; the decrypted
// bytes exist only in the returned slice. Any failure along the decryption
// path surfaces as the generic envelope failure.
func (u *Usecase) Retrieve(ctx context.Context, borrower, privateKeyPEM string) ([]byte, error) {
	var raw []byte
	if err := u.read(ctx, func() error {
		var err error
		raw, err = u.gw.LoanLimitRequest(ctx, borrower)
		return err
	}); err != nil {
		return nil, err
	}

	env, err := envelope.Parse(raw)
	if err != nil {
		return nil, err
	}
	priv, err := envelope.ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return env.Open(priv)
}

// Approve closes a request by granting a limit, optionally scoped to a
// token asset. Owner-only; the ledger enforces it.
func (u *Usecase) Approve(ctx context.Context, borrower string, amount *big.Int, assetToken string, requestID uint64) (string, error) {
	if amount == nil || amount.Sign() < 0 {
		return "", ledger.Invalid("approved amount must be a non-negative integer")
	}
	return u.setLimit(ctx, "limit_approved", borrower, amount, assetToken, requestID)
}

// Reject closes a request by setting its limit to zero.
func (u *Usecase) Reject(ctx context.Context, borrower string, requestID uint64) (string, error) {
	return u.setLimit(ctx, "limit_rejected", borrower, big.NewInt(0), "", requestID)
}

func (u *Usecase) setLimit(ctx context.Context, kind, borrower string, amount *big.Int, assetToken string, requestID uint64) (string, error) {
	tx, err := u.gw.SetLoanLimit(ctx, borrower, amount, assetToken, requestID)
	if err != nil {
		return "", err
	}
	if err := tx.Confirm(ctx); err != nil {
		return "", err
	}
	u.events.Confirmed(ctx, event.Confirmation{Kind: kind, Subject: borrower, TxID: tx.ID()})
	return tx.ID(), nil
}

// Fee returns the prevailing application fee.
func (u *Usecase) Fee(ctx context.Context) (*big.Int, error) {
	var fee *big.Int
	err := u.read(ctx, func() error {
		var err error
		fee, err = u.gw.LoanFee(ctx)
		return err
	})
	return fee, err
}

// SetFee updates the application fee. Owner-only.
func (u *Usecase) SetFee(ctx context.Context, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() < 0 {
		return "", ledger.Invalid("fee must be a non-negative integer")
	}
	tx, err := u.gw.SetLoanFee(ctx, amount)
	if err != nil {
		return "", err
	}
	if err := tx.Confirm(ctx); err != nil {
		return "", err
	}
	u.events.Confirmed(ctx, event.Confirmation{Kind: "fee_changed", Subject: amount.String(), TxID: tx.ID()})
	return tx.ID(), nil
}

// IsOwner reports whether the session account is the ledger owner.
func (u *Usecase) IsOwner(ctx context.Context) (bool, error) {
	var owner string
	if err := u.read(ctx, func() error {
		var err error
		owner, err = u.gw.Owner(ctx)
		return err
	}); err != nil {
		return false, err
	}
	return owner == u.gw.Self(), nil
}

func (u *Usecase) read(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, u.attempts, u.backoff, ledger.IsTransient, fn)
}

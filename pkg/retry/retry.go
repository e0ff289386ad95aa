// Package retry runs read queries against the ledger with a bounded number
// of attempts and fixed backoff. Mutating calls must never go through it:
// blind retry of a financial write risks duplicate effect.
package retry

import (
	"context"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = 500 * time.Millisecond
)

// Do invokes fn up to attempts times, sleeping backoff between tries, but
// only while transient(err) holds. Non-transient errors and context
// cancellation return immediately.
func Do(ctx context.Context, attempts int, backoff time.Duration, transient func(error) bool, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !transient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

// Package listing implements the cursor-style page protocol over the
// ledger's fixed-size offset listings: 1-based pages, a short page signals
// exhaustion, and zero-sentinel slots are filtered before results reach
// callers. Changing the filter changes every cache key, which restarts
// paging from page 1.
package listing

import (
	"context"
	"time"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/internal/domain/offer"
	"peerlend-backend/internal/domain/request"
	"peerlend-backend/pkg/retry"
)

const DefaultPageSize = 10

// Cache stores a page together with the exhaustion flag judged at fetch
// time. The flag cannot be recomputed from the cached offers: sentinel
// filtering may have thinned a full raw page to nothing, and a short
// final page may still hold entries.
type Cache interface {
	GetOfferPage(ctx context.Context, filterKey string, page int) (offers []offer.LoanOffer, more, ok bool)
	SetOfferPage(ctx context.Context, filterKey string, page int, offers []offer.LoanOffer, more bool)
}

type Usecase struct {
	gw       ledger.Gateway
	cache    Cache
	size     int
	attempts int
	backoff  time.Duration
}

func NewUsecase(gw ledger.Gateway, cache Cache, pageSize int) *Usecase {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Usecase{
		gw:       gw,
		cache:    cache,
		size:     pageSize,
		attempts: retry.DefaultAttempts,
		backoff:  retry.DefaultBackoff,
	}
}

// OffersPage fetches one page of the filtered offer listing. more is false
// once the ledger returns fewer slots than requested.
func (u *Usecase) OffersPage(ctx context.Context, page int, f offer.Filter) (offers []offer.LoanOffer, more bool, err error) {
	if page < 1 {
		return nil, false, ledger.Invalid("page must be >= 1")
	}
	if u.cache != nil {
		if cached, cachedMore, ok := u.cache.GetOfferPage(ctx, f.Key(), page); ok {
			return cached, cachedMore, nil
		}
	}

	var raws []ledger.RawOffer
	if err := u.read(ctx, func() error {
		var err error
		raws, err = u.gw.ListOffers(ctx, (page-1)*u.size, u.size, f.Sanitize())
		return err
	}); err != nil {
		return nil, false, err
	}

	// Exhaustion is judged on the raw slot count, before sentinel
	// filtering: a full page of slots may still thin out.
	more = len(raws) == u.size
	offers = make([]offer.LoanOffer, 0, len(raws))
	for _, raw := range raws {
		o := offer.FromRaw(raw)
		if o.Empty() {
			continue
		}
		offers = append(offers, o)
	}
	if u.cache != nil {
		u.cache.SetOfferPage(ctx, f.Key(), page, offers, more)
	}
	return offers, more, nil
}

// RequestsPage fetches one page of open lending-limit requests. The
// listing itself is public; only the document retrieval is owner-gated.
func (u *Usecase) RequestsPage(ctx context.Context, page int) (reqs []request.LendingLimitRequest, more bool, err error) {
	if page < 1 {
		return nil, false, ledger.Invalid("page must be >= 1")
	}
	var raws []ledger.RawRequest
	if err := u.read(ctx, func() error {
		var err error
		raws, err = u.gw.ListActiveRequests(ctx, (page-1)*u.size, u.size)
		return err
	}); err != nil {
		return nil, false, err
	}

	more = len(raws) == u.size
	reqs = make([]request.LendingLimitRequest, 0, len(raws))
	for _, raw := range raws {
		r := request.FromRaw(raw)
		if r.Empty() {
			continue
		}
		reqs = append(reqs, r)
	}
	return reqs, more, nil
}

func (u *Usecase) read(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, u.attempts, u.backoff, ledger.IsTransient, fn)
}

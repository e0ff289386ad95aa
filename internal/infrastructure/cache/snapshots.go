package cache

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"peerlend-backend/internal/domain/loan"
	"peerlend-backend/internal/domain/offer"
)

const (
	loanKeyPrefix  = "snap:loan:"
	offerKeyPrefix = "snap:offers:"
)

// Snapshots is the read-side cache for ledger-derived entities. Entries
// are only ever trusted until the next confirmed write touching them; the
// usecases invalidate explicitly after each confirmation, the TTL is just
// a backstop. Cache failures degrade to ledger reads, never to errors.
type Snapshots struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshots(rdb *redis.Client, ttl time.Duration) *Snapshots {
	return &Snapshots{rdb: rdb, ttl: ttl}
}

func (s *Snapshots) GetLoan(ctx context.Context, address string) (*loan.Loan, bool) {
	b, err := s.rdb.Get(ctx, loanKeyPrefix+address).Bytes()
	if err != nil {
		return nil, false
	}
	var l loan.Loan
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, false
	}
	return &l, true
}

func (s *Snapshots) SetLoan(ctx context.Context, address string, l *loan.Loan) {
	b, err := json.Marshal(l)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, loanKeyPrefix+address, b, s.ttl).Err(); err != nil {
		log.Printf("cache: set loan %s: %v", address, err)
	}
}

func (s *Snapshots) InvalidateLoan(ctx context.Context, address string) {
	if err := s.rdb.Del(ctx, loanKeyPrefix+address).Err(); err != nil {
		log.Printf("cache: invalidate loan %s: %v", address, err)
	}
}

func offerPageKey(filterKey string, page int) string {
	return offerKeyPrefix + filterKey + "|page=" + strconv.Itoa(page)
}

// offerPage carries the exhaustion flag alongside the entries, so a
// cached hit reports the same more/no-more answer as the fetch that
// populated it.
type offerPage struct {
	Offers []offer.LoanOffer `json:"offers"`
	More   bool              `json:"more"`
}

func (s *Snapshots) GetOfferPage(ctx context.Context, filterKey string, page int) ([]offer.LoanOffer, bool, bool) {
	b, err := s.rdb.Get(ctx, offerPageKey(filterKey, page)).Bytes()
	if err != nil {
		return nil, false, false
	}
	var p offerPage
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false, false
	}
	return p.Offers, p.More, true
}

func (s *Snapshots) SetOfferPage(ctx context.Context, filterKey string, page int, offers []offer.LoanOffer, more bool) {
	b, err := json.Marshal(offerPage{Offers: offers, More: more})
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, offerPageKey(filterKey, page), b, s.ttl).Err(); err != nil {
		log.Printf("cache: set offer page: %v", err)
	}
}

// InvalidateOffers drops every cached offer page, whatever filter produced
// it. Called after any write that creates, removes or accepts an offer.
func (s *Snapshots) InvalidateOffers(ctx context.Context) {
	iter := s.rdb.Scan(ctx, 0, offerKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("cache: invalidate offers: %v", err)
			return
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: scan offers: %v", err)
	}
}

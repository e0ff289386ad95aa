package cache

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"peerlend-backend/internal/domain/loan"
	"peerlend-backend/internal/domain/offer"
)

const snapAddr = "0xc000000000000000000000000000000000000001"

func testSnapshots(t *testing.T) (*Snapshots, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := OpenRedis(s.Addr(), 0)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return NewSnapshots(c, time.Minute), s
}

func TestSnapshots_LoanRoundTrip(t *testing.T) {
	snaps, _ := testSnapshots(t)
	ctx := context.Background()

	if _, ok := snaps.GetLoan(ctx, snapAddr); ok {
		t.Fatal("hit on empty cache")
	}

	l := &loan.Loan{
		Address:       snapAddr,
		Remaining:     big.NewInt(800),
		SinglePayment: big.NewInt(400),
		AssetIsNative: true,
	}
	snaps.SetLoan(ctx, snapAddr, l)

	got, ok := snaps.GetLoan(ctx, snapAddr)
	if !ok {
		t.Fatal("miss after set")
	}
	if got.Address != snapAddr || got.Remaining.Int64() != 800 {
		t.Fatalf("got = %+v", got)
	}

	snaps.InvalidateLoan(ctx, snapAddr)
	if _, ok := snaps.GetLoan(ctx, snapAddr); ok {
		t.Fatal("hit after invalidation")
	}
}

func TestSnapshots_LoanTTL(t *testing.T) {
	snaps, mr := testSnapshots(t)
	ctx := context.Background()

	snaps.SetLoan(ctx, snapAddr, &loan.Loan{Address: snapAddr})
	mr.FastForward(2 * time.Minute)
	if _, ok := snaps.GetLoan(ctx, snapAddr); ok {
		t.Fatal("hit after TTL expiry")
	}
}

func TestSnapshots_OfferPages(t *testing.T) {
	snaps, _ := testSnapshots(t)
	ctx := context.Background()

	keyA := (offer.Filter{From: "0xa000000000000000000000000000000000000001"}).Key()
	keyB := (offer.Filter{}).Key()
	page := []offer.LoanOffer{{ID: 1}, {ID: 2}}

	snaps.SetOfferPage(ctx, keyA, 1, page, true)
	snaps.SetOfferPage(ctx, keyB, 1, page, true)
	snaps.SetOfferPage(ctx, keyB, 2, page[:1], false)

	got, more, ok := snaps.GetOfferPage(ctx, keyB, 2)
	if !ok || len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("page = %+v, ok = %v", got, ok)
	}
	// the exhaustion flag is part of the snapshot, not derived from it
	if more {
		t.Fatal("final page must stay more = false on a cache hit")
	}
	if _, more, ok := snaps.GetOfferPage(ctx, keyB, 1); !ok || !more {
		t.Fatalf("first page: more = %v, ok = %v, want cached more = true", more, ok)
	}
	// pages of different filters never collide
	if _, _, ok := snaps.GetOfferPage(ctx, keyA, 2); ok {
		t.Fatal("filter keys collided")
	}

	// a confirmed offer write drops every cached page of every filter
	snaps.InvalidateOffers(ctx)
	for _, probe := range []struct {
		key  string
		page int
	}{{keyA, 1}, {keyB, 1}, {keyB, 2}} {
		if _, _, ok := snaps.GetOfferPage(ctx, probe.key, probe.page); ok {
			t.Fatalf("page %s/%d survived invalidation", probe.key, probe.page)
		}
	}
}

func TestSnapshots_OffersInvalidationSparesLoans(t *testing.T) {
	snaps, _ := testSnapshots(t)
	ctx := context.Background()

	snaps.SetLoan(ctx, snapAddr, &loan.Loan{Address: snapAddr})
	snaps.SetOfferPage(ctx, (offer.Filter{}).Key(), 1, []offer.LoanOffer{{ID: 1}}, false)

	snaps.InvalidateOffers(ctx)
	if _, ok := snaps.GetLoan(ctx, snapAddr); !ok {
		t.Fatal("loan snapshot must survive offer invalidation")
	}
}

package main

import (
	"log"
	"math/big"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "peerlend-backend/internal/adapter/http"
	"peerlend-backend/internal/adapter/ledgersim"
	"peerlend-backend/internal/config"
	"peerlend-backend/internal/infrastructure/cache"
	"peerlend-backend/internal/infrastructure/db"
	"peerlend-backend/internal/infrastructure/event"
	"peerlend-backend/internal/usecase/document"
	"peerlend-backend/internal/usecase/issuance"
	"peerlend-backend/internal/usecase/lifecycle"
	"peerlend-backend/internal/usecase/listing"
	"peerlend-backend/pkg/envelope"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	bankKey, err := envelope.ParsePublicKey(cfg.BankPublicKey)
	if err != nil {
		log.Fatalf("bank public key: %v", err)
	}

	// Development ledger. A production deployment swaps this adapter for
	// a node-backed gateway; everything above it only sees the interface.
	dial, err := db.Dialector(cfg.LedgerDialect, cfg.LedgerDSN)
	if err != nil {
		log.Fatal(err)
	}
	gdb, err := db.OpenGormWithDialector(dial)
	if err != nil {
		log.Fatal(err)
	}
	gw, err := ledgersim.New(gdb, cfg.SelfAccount, cfg.PlatformContract)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.LedgerOwner != "" {
		if err := gw.Seed(cfg.LedgerOwner, big.NewInt(0)); err != nil {
			log.Fatal(err)
		}
	}

	var snaps *cache.Snapshots
	if cfg.RedisAddr != "" {
		rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatal(err)
		}
		snaps = cache.NewSnapshots(rdb, time.Duration(cfg.CacheTTLSecs)*time.Second)
	}

	var events event.Notifier = event.Nop{}
	if cfg.AmqpURL != "" {
		pub, err := event.Dial(cfg.AmqpURL, cfg.AmqpExchange)
		if err != nil {
			log.Fatal(err)
		}
		defer pub.Close()
		events = pub
	}

	// nil interface slices: a nil *Snapshots must not become a non-nil
	// interface value inside the usecases.
	var lifeCache lifecycle.Cache
	var issueCache issuance.Cache
	var listCache listing.Cache
	if snaps != nil {
		lifeCache, issueCache, listCache = snaps, snaps, snaps
	}

	lifeUC := lifecycle.NewUsecase(gw, lifeCache, events)
	issueUC := issuance.NewUsecase(gw, issueCache, events)
	listUC := listing.NewUsecase(gw, listCache, cfg.PageSize)
	docUC := document.NewUsecase(gw, bankKey, events)

	h := httpadp.NewHandler(cfg.BankName, cfg.Network, gw.Self(), docUC)
	lh := httpadp.NewLoanHandler(lifeUC, gw.Self())
	oh := httpadp.NewOfferHandler(issueUC, listUC)
	dh := httpadp.NewDocumentHandler(docUC, listUC)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger(), middleware.Recover())
	e.Validator = httpadp.NewValidator()

	e.GET("/health", h.Health)
	e.GET("/session", h.Session)

	e.GET("/loans", lh.GetLoans)
	e.GET("/loans/:address", lh.GetLoan)
	e.POST("/loans/:address/payment", lh.Payment)
	e.POST("/loans/:address/early-repayment", lh.RequestEarlyRepayment)
	e.POST("/loans/:address/early-repayment/approve", lh.ApproveEarlyRepayment)
	e.POST("/loans/:address/early-repayment/reject", lh.RejectEarlyRepayment)
	e.POST("/loans/:address/default", lh.Default)

	e.GET("/offers", oh.ListOffers)
	e.POST("/offers", oh.CreateOffer)
	e.POST("/offers/:id/accept", oh.AcceptOffer)
	e.DELETE("/offers/:id", oh.RemoveOffer)

	e.POST("/applications", dh.Submit)
	e.GET("/applications", dh.ListRequests)
	e.POST("/applications/:borrower/retrieve", dh.Retrieve)
	e.POST("/applications/:borrower/approve", dh.Approve)
	e.POST("/applications/:borrower/reject", dh.Reject)
	e.GET("/fee", dh.GetFee)
	e.PUT("/fee", dh.SetFee)

	addr := ":" + cfg.AppPort
	log.Printf("%s (%s) listening on %s as %s", cfg.BankName, cfg.Network, addr, gw.Self())
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package http

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"peerlend-backend/internal/domain/offer"
	"peerlend-backend/internal/usecase/issuance"
	"peerlend-backend/internal/usecase/listing"
)

type OfferHandler struct {
	issue *issuance.Usecase
	list  *listing.Usecase
}

func NewOfferHandler(issue *issuance.Usecase, list *listing.Usecase) *OfferHandler {
	return &OfferHandler{issue: issue, list: list}
}

type issueLoanReq struct {
	Variant          string `json:"variant" validate:"required,oneof=NativeNative NativeToken TokenNative TokenToken"`
	Amount           string `json:"amount" validate:"required,bigint"`
	ToBePaid         string `json:"to_be_paid" validate:"required,bigint"`
	IntervalDays     int64  `json:"interval_days" validate:"required,gte=1"`
	DefaultLimitDays int64  `json:"default_limit_days" validate:"required,gte=1"`
	SinglePayment    string `json:"single_payment" validate:"required,bigint"`
	Collateral       string `json:"collateral" validate:"required,bigint"`
	Token            string `json:"token" validate:"omitempty,ethaddr"`
	CollateralToken  string `json:"collateral_token" validate:"omitempty,ethaddr"`
}

// toIssuance builds the tagged variant from the flat form payload.
func (r issueLoanReq) toIssuance() offer.Issuance {
	terms := offer.Terms{
		Amount:           mustInt(r.Amount),
		ToBePaid:         mustInt(r.ToBePaid),
		IntervalDays:     r.IntervalDays,
		DefaultLimitDays: r.DefaultLimitDays,
		SinglePayment:    mustInt(r.SinglePayment),
		Collateral:       mustInt(r.Collateral),
	}
	switch r.Variant {
	case "NativeToken":
		return offer.NativeToken{Terms: terms, CollateralToken: r.CollateralToken}
	case "TokenNative":
		return offer.TokenNative{Terms: terms, Token: r.Token}
	case "TokenToken":
		return offer.TokenToken{Terms: terms, Token: r.Token, CollateralToken: r.CollateralToken}
	default:
		return offer.NativeNative{Terms: terms}
	}
}

func (h *OfferHandler) CreateOffer(c echo.Context) error {
	var req issueLoanReq
	if ok, resp := bindValidated(c, &req); !ok {
		return resp
	}
	txID, err := h.issue.Offer(c.Request().Context(), req.toIssuance())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"tx": txID})
}

func (h *OfferHandler) AcceptOffer(c echo.Context) error {
	offerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offer id"})
	}
	txID, err := h.issue.Accept(c.Request().Context(), offerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"tx": txID})
}

func (h *OfferHandler) RemoveOffer(c echo.Context) error {
	offerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offer id"})
	}
	txID, err := h.issue.Remove(c.Request().Context(), offerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"tx": txID})
}

// ListOffers serves one page of the filtered listing. Callers restart from
// page 1 whenever they change the filter.
func (h *OfferHandler) ListOffers(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = n
	}
	f := offer.Filter{
		From:             c.QueryParam("from"),
		AssetToken:       c.QueryParam("asset_token"),
		CollateralToken:  c.QueryParam("collateral_token"),
		MinAmount:        queryInt(c, "min_amount"),
		MaxAmount:        queryInt(c, "max_amount"),
		MaxSinglePayment: queryInt(c, "max_single_payment"),
	}
	if v := c.QueryParam("asset_is_native"); v != "" {
		b := v == "true"
		f.AssetIsNative = &b
	}
	if v := c.QueryParam("collateral_is_native"); v != "" {
		b := v == "true"
		f.CollateralIsNative = &b
	}

	offers, more, err := h.list.OffersPage(c.Request().Context(), page, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"offers": offers,
		"page":   page,
		"more":   more,
	})
}

func mustInt(s string) *big.Int {
	// Inputs pass the bigint validation tag before reaching here.
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

func queryInt(c echo.Context, name string) *big.Int {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil
	}
	return n
}

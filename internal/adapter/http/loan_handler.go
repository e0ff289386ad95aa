package http

import (
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"

	"peerlend-backend/internal/usecase/lifecycle"
)

type LoanHandler struct {
	uc   *lifecycle.Usecase
	self string
}

func NewLoanHandler(uc *lifecycle.Usecase, self string) *LoanHandler {
	return &LoanHandler{uc: uc, self: self}
}

// GetLoans lists accepted loans, optionally filtered by party.
func (h *LoanHandler) GetLoans(c echo.Context) error {
	refs, err := h.uc.Loans(c.Request().Context(), c.QueryParam("borrower"), c.QueryParam("lender"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, refs)
}

// GetLoan returns the loan snapshot plus derived state, the provisional
// action set for the session account, and the live guard reads.
func (h *LoanHandler) GetLoan(c echo.Context) error {
	ctx := c.Request().Context()
	address := c.Param("address")

	l, err := h.uc.Detail(ctx, address)
	if err != nil {
		return writeError(c, err)
	}
	guards, err := h.uc.Guards(ctx, address)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"loan":    l,
		"state":   l.State(),
		"actions": l.ActionsFor(h.self),
		"guards":  guards,
	})
}

func (h *LoanHandler) Payment(c echo.Context) error {
	l, err := h.uc.Payment(c.Request().Context(), c.Param("address"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan": l, "state": l.State()})
}

type earlyRepaymentReq struct {
	Amount string `json:"amount" validate:"required,bigint"`
}

func (h *LoanHandler) RequestEarlyRepayment(c echo.Context) error {
	var req earlyRepaymentReq
	if ok, resp := bindValidated(c, &req); !ok {
		return resp
	}
	amount, _ := new(big.Int).SetString(req.Amount, 10)
	l, err := h.uc.RequestEarlyRepayment(c.Request().Context(), c.Param("address"), amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan": l, "state": l.State()})
}

func (h *LoanHandler) ApproveEarlyRepayment(c echo.Context) error {
	l, err := h.uc.ApproveEarlyRepayment(c.Request().Context(), c.Param("address"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan": l, "state": l.State()})
}

func (h *LoanHandler) RejectEarlyRepayment(c echo.Context) error {
	l, err := h.uc.RejectEarlyRepayment(c.Request().Context(), c.Param("address"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan": l, "state": l.State()})
}

func (h *LoanHandler) Default(c echo.Context) error {
	l, err := h.uc.Default(c.Request().Context(), c.Param("address"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan": l, "state": l.State()})
}

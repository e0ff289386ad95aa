package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"peerlend-backend/internal/domain/ledger"
	"peerlend-backend/pkg/envelope"
)

// ---- helpers ----

// writeError maps the error taxonomy onto HTTP. Guard violations and
// transport failures never crash the session; the wallet-unavailable case
// gets its own payload with a remediation hint instead of a raw error.
func writeError(c echo.Context, err error) error {
	var gv *ledger.GuardViolation
	var te *ledger.TransportError
	switch {
	case errors.Is(err, ledger.ErrWalletUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error":       "no signing account available",
			"remediation": "connect a wallet and set SELF_ACCOUNT, then restart the session",
		})
	case errors.Is(err, ledger.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, envelope.ErrEnvelope):
		// Fail closed: no cipher internals in the message.
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not decrypt application"})
	case errors.As(err, &gv):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: gv.Error()})
	case errors.As(err, &te):
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "ledger unavailable, try again"})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func bindValidated(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

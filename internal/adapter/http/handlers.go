package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"peerlend-backend/internal/usecase/document"
)

type Handler struct {
	bankName string
	network  string
	self     string
	doc      *document.Usecase
}

func NewHandler(bankName, network, self string, doc *document.Usecase) *Handler {
	return &Handler{bankName: bankName, network: network, self: self, doc: doc}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Session describes the bound account and whether it owns the ledger.
func (h *Handler) Session(c echo.Context) error {
	isOwner, err := h.doc.IsOwner(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"bank":    h.bankName,
		"network": h.network,
		"account": h.self,
		"owner":   isOwner,
	})
}

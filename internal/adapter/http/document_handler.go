package http

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"peerlend-backend/internal/usecase/document"
	"peerlend-backend/internal/usecase/listing"
)

type DocumentHandler struct {
	doc  *document.Usecase
	list *listing.Usecase
}

func NewDocumentHandler(doc *document.Usecase, list *listing.Usecase) *DocumentHandler {
	return &DocumentHandler{doc: doc, list: list}
}

type submitApplicationReq struct {
	Application string `json:"application" validate:"required,max=5000"`
}

func (h *DocumentHandler) Submit(c echo.Context) error {
	var req submitApplicationReq
	if ok, resp := bindValidated(c, &req); !ok {
		return resp
	}
	txID, err := h.doc.Submit(c.Request().Context(), req.Application)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"tx": txID})
}

func (h *DocumentHandler) ListRequests(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = n
	}
	reqs, more, err := h.list.RequestsPage(c.Request().Context(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"requests": reqs,
		"page":     page,
		"more":     more,
	})
}

type retrieveReq struct {
	PrivateKey string `json:"private_key" validate:"required"`
}

// Retrieve decrypts a borrower's application with the interactively
// supplied private key and streams it as a one-off download. Nothing is
// written server-side; the response body is the only artifact.
func (h *DocumentHandler) Retrieve(c echo.Context) error {
	var req retrieveReq
	if ok, resp := bindValidated(c, &req); !ok {
		return resp
	}
	borrower := c.Param("borrower")
	plaintext, err := h.doc.Retrieve(c.Request().Context(), borrower, req.PrivateKey)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+borrower+`"`)
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, plaintext)
}

type approveLimitReq struct {
	Amount     string `json:"amount" validate:"required,bigint"`
	AssetToken string `json:"asset_token" validate:"omitempty,ethaddr"`
	RequestID  uint64 `json:"request_id"`
}

func (h *DocumentHandler) Approve(c echo.Context) error {
	var req approveLimitReq
	if ok, resp := bindValidated(c, &req); !ok {
		return resp
	}
	amount, _ := new(big.Int).SetString(req.Amount, 10)
	txID, err := h.doc.Approve(c.Request().Context(), c.Param("borrower"), amount, req.AssetToken, req.RequestID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"tx": txID})
}

type rejectLimitReq struct {
	RequestID uint64 `json:"request_id"`
}

func (h *DocumentHandler) Reject(c echo.Context) error {
	var req rejectLimitReq
	if ok, resp := bindValidated(c, &req); !ok {
		return resp
	}
	txID, err := h.doc.Reject(c.Request().Context(), c.Param("borrower"), req.RequestID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"tx": txID})
}

func (h *DocumentHandler) GetFee(c echo.Context) error {
	fee, err := h.doc.Fee(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"fee": fee.String()})
}

type setFeeReq struct {
	Amount string `json:"amount" validate:"required,bigint"`
}

func (h *DocumentHandler) SetFee(c echo.Context) error {
	var req setFeeReq
	if ok, resp := bindValidated(c, &req); !ok {
		return resp
	}
	amount, _ := new(big.Int).SetString(req.Amount, 10)
	txID, err := h.doc.SetFee(c.Request().Context(), amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"tx": txID})
}

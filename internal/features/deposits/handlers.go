// Package deposits — handlers.go: меню пополнения и выставление счёта из мини-приложения.
package deposits

import (
	"net/http"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/httpapi"
)

// Handler обрабатывает запросы пополнений.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createInvoiceRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// Products — GET /api/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	httpapi.RespondOK(w, map[string]any{"products": h.service.Products()})
}

// CreateInvoice — POST /api/create-invoice {amount}.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.IdentityFrom(r.Context())
	if !ok {
		httpapi.RespondError(w, r, common.ErrUnauthenticated)
		return
	}

	var req createInvoiceRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	inv, err := h.service.InitiateDeposit(r.Context(), id.UserID, req.Amount)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	httpapi.RespondOK(w, map[string]any{
		"invoiceLink": inv.Link,
		"token":       inv.Token,
		"amount":      inv.Amount,
		"bonus":       inv.Bonus,
		"total":       inv.Total,
	})
}

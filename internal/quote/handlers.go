package quote

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/settings"
)

// Handler exposes the quote preview endpoint.
type Handler struct {
	Service  *Service
	Currency string
}

// Create handles POST /api/v1/quotes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Service.Quote(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	view := ToView(res)
	view.Currency = h.Currency
	if problems := res.Form.Problems(); len(problems) > 0 {
		view.Warnings = problems
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// WriteError maps pricing dependency failures onto API errors.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customer.ErrNotFound):
		common.WriteError(w, common.NotFound("customer not found", err))
	case errors.Is(err, settings.ErrNotConfigured):
		common.WriteError(w, common.NewAppError("NOT_CONFIGURED", "pricing settings are not configured", http.StatusServiceUnavailable, err))
	default:
		common.WriteError(w, err)
	}
}

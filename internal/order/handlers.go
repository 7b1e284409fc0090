package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/quote"
)

// Handler exposes order endpoints.
type Handler struct {
	Service         *Service
	DefaultPageSize int
}

// List handles GET /api/v1/orders. Responses carry an ETag so that polling
// clients can skip unchanged pages.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	def := h.DefaultPageSize
	if def <= 0 {
		def = 20
	}
	page := common.ParsePage(r, def, 100)
	orders, total, err := h.Service.List(r.Context(), Filter{
		Status:     Status(r.URL.Query().Get("status")),
		CustomerID: r.URL.Query().Get("customerId"),
		Limit:      page.PerPage,
		Offset:     page.Offset(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]View, 0, len(orders))
	for _, o := range orders {
		views = append(views, ToView(o))
	}
	page.TotalItems = int(total)
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSONWithETag(w, r, map[string]any{
		"data":       views,
		"pagination": page,
	})
}

// Create handles POST /api/v1/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req quote.Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	o, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+o.ID)
	common.JSON(w, http.StatusCreated, map[string]any{"data": ToView(o)})
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSONWithETag(w, r, map[string]any{"data": ToView(o)})
}

// Update handles PUT /api/v1/orders/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req quote.Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	o, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ToView(o)})
}

// PatchStatus handles PATCH /api/v1/orders/{id}/status.
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	o, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), Status(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ToView(o)})
}

// Quote handles GET /api/v1/orders/{id}/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	res, o, err := h.Service.Requote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"quote":   quote.ToView(res),
			"drifted": o.Drifted(res.Quote),
		},
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("order not found", err))
	case errors.Is(err, ErrInvalidTransition):
		common.WriteError(w, common.NewAppError("INVALID_STATE", "state transition not allowed", http.StatusConflict, err))
	case errors.Is(err, ErrConcurrentChange):
		common.WriteError(w, common.NewAppError("CONFLICT", "order changed concurrently, retry", http.StatusConflict, err))
	case errors.Is(err, customer.ErrNotFound):
		common.WriteError(w, common.ValidationError("invalid order", map[string]string{"customerId": "customer not found"}))
	case errors.Is(err, customer.ErrInsufficientCredit):
		common.WriteError(w, common.NewAppError("INSUFFICIENT_CREDIT", err.Error(), http.StatusConflict, err))
	default:
		quote.WriteError(w, err)
	}
}

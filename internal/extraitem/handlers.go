package extraitem

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-laundry/internal/common"
)

// Handler exposes catalog endpoints.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/extra-items[?all=true].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	items, err := h.Service.List(r.Context(), all)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ToViews(items)})
}

// Create handles POST /api/v1/extra-items.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req WriteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	rec, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": ToView(rec)})
}

// Update handles PUT /api/v1/extra-items/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req WriteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	rec, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ToView(rec)})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("extra item not found", err))
	case errors.Is(err, ErrDuplicateName):
		common.WriteError(w, common.NewAppError("CONFLICT", err.Error(), http.StatusConflict, err))
	default:
		common.WriteError(w, err)
	}
}

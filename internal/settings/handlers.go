package settings

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-laundry/internal/common"
)

// Handler exposes the settings endpoints.
type Handler struct {
	Service *Service
}

// Get handles GET /api/v1/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ToView(rec)})
}

// Put handles PUT /api/v1/settings.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	rec, err := h.Service.Update(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ToView(rec)})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotConfigured) {
		common.WriteError(w, common.NotFound("pricing settings not configured", err))
		return
	}
	common.WriteError(w, err)
}

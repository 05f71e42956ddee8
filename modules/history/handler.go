package history

import (
	"encoding/json"
	"net/http"
	"strconv"

	"maxprompt-server/modules/common/apierr"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListHistory returns the caller's recent generations.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		apierr.WriteHTTP(w, apierr.New(apierr.KindValidation, "userId parameter is required"))
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	records, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		apierr.WriteHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"enabled": h.service.Enabled(),
		"items":   records,
	})
}

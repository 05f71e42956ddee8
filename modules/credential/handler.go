package credential

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/credstore"
)

type Handler struct {
	store *credstore.Store
}

func NewHandler(store *credstore.Store) *Handler {
	return &Handler{store: store}
}

// HandleCredential multiplexes the credential slot: GET reports presence,
// POST saves a key, DELETE clears it. The key itself never leaves the
// server in full.
func (h *Handler) HandleCredential(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.set(w, r)
	case http.MethodDelete:
		h.clear(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key, err := h.store.Get(r.Context())
	if err != nil {
		apierr.WriteHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"configured": key != "",
		"preview":    maskKey(key),
	})
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteHTTP(w, apierr.New(apierr.KindValidation, "invalid request body"))
		return
	}

	req.APIKey = strings.TrimSpace(req.APIKey)
	if req.APIKey == "" {
		apierr.WriteHTTP(w, apierr.New(apierr.KindValidation, "apiKey is required"))
		return
	}

	if err := h.store.Set(r.Context(), req.APIKey); err != nil {
		apierr.WriteHTTP(w, err)
		return
	}

	log.Printf("🔑 [Credential] API key updated (%s)", maskKey(req.APIKey))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		apierr.WriteHTTP(w, err)
		return
	}

	log.Println("🔑 [Credential] API key cleared")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

// maskKey keeps just enough of the key to recognize it.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

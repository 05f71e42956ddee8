package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/credstore"
	"maxprompt-server/modules/common/model"
	"maxprompt-server/modules/history"
)

type Handler struct {
	service *Service
	creds   *credstore.Store
	history *history.Service
}

func NewHandler(service *Service, creds *credstore.Store, hist *history.Service) *Handler {
	return &Handler{
		service: service,
		creds:   creds,
		history: hist,
	}
}

// GenerateImage handles the synchronous image path. Generation and editing
// share this endpoint; the presence of sourceImage picks the mode.
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteHTTP(w, apierr.New(apierr.KindValidation, "invalid request body"))
		return
	}

	apiKey, err := h.creds.Get(r.Context())
	if err != nil {
		apierr.WriteHTTP(w, err)
		return
	}

	result, err := h.service.GenerateImage(r.Context(), apiKey, &req)
	if err != nil {
		log.Printf("❌ [Generate] Request failed: %v", err)
		h.record(&req, nil, err)
		apierr.WriteHTTP(w, err)
		return
	}
	h.record(&req, result, nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// record writes the outcome to history when the caller identified itself.
func (h *Handler) record(req *ImageRequest, result *ImageResult, genErr error) {
	if req.UserID == "" {
		return
	}

	kind := "image"
	if req.IsEdit() {
		kind = "edit"
	}
	record := &model.Generation{
		UserID:      req.UserID,
		Kind:        kind,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Status:      "succeeded",
	}

	var preview []byte
	if genErr != nil {
		record.Status = "failed"
		errorKind := string(apierr.Classify(genErr).Kind)
		record.ErrorKind = &errorKind
	} else if result != nil {
		if raw, err := base64.StdEncoding.DecodeString(result.Base64Image); err == nil {
			preview = raw
		}
	}

	// detached from the request so a slow upload never delays the response
	go h.history.Record(context.Background(), record, preview)
}

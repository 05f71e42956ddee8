package video

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"maxprompt-server/modules/common/apierr"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SubmitVideo accepts a video generation request and answers immediately
// with the queued job.
func (h *Handler) SubmitVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteHTTP(w, apierr.New(apierr.KindValidation, "invalid request body"))
		return
	}

	job, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrJobInFlight) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		log.Printf("❌ [Video] Submit failed: %v", err)
		apierr.WriteHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job.View())
}

// GetJobStatus returns the job's lifecycle state without the payload.
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		apierr.WriteHTTP(w, err)
		return
	}
	if job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.View())
}

// DownloadVideo streams the finished video.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		apierr.WriteHTTP(w, err)
		return
	}
	if job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.Status != StatusSucceeded || job.Video == nil {
		http.Error(w, "Video not ready", http.StatusConflict)
		return
	}

	raw, err := job.Video.Decode()
	if err != nil {
		apierr.WriteHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", job.Video.MIMEType)
	w.Header().Set("Content-Disposition", "attachment; filename="+jobID+".mp4")
	w.Write(raw)
}

// DismissJob detaches the caller. Generation keeps running; no fake
// cancellation is reported.
func (h *Handler) DismissJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jobID := mux.Vars(r)["jobId"]

	if err := h.service.Dismiss(r.Context(), jobID); err != nil {
		apierr.WriteHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"jobId":  jobID,
		"status": "dismissed",
	})
}

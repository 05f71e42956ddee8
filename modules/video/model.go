package video

import (
	"fmt"

	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/media"
)

// Status is the lifecycle of a video job. Submitted and polling are the
// transient states, succeeded and failed are terminal.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusPolling   Status = "polling"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the job can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

var allowedAspectRatios = map[string]bool{
	"16:9": true,
	"9:16": true,
}

var allowedResolutions = map[string]bool{
	"720p":  true,
	"1080p": true,
}

// Request is a video generation submission. Either a prompt or a source
// image must be present; both together drive image-to-video with guidance.
type Request struct {
	UserID      string         `json:"userId"`
	Prompt      string         `json:"prompt,omitempty"`
	AspectRatio string         `json:"aspectRatio,omitempty"`
	Resolution  string         `json:"resolution,omitempty"`
	SourceImage *media.Encoded `json:"sourceImage,omitempty"`
}

func (r *Request) Validate() error {
	if r.UserID == "" {
		return apierr.New(apierr.KindValidation, "userId is required")
	}
	if r.Prompt == "" && r.SourceImage == nil {
		return apierr.New(apierr.KindValidation, "a prompt or a source image is required")
	}
	if r.AspectRatio == "" {
		r.AspectRatio = "16:9"
	}
	if !allowedAspectRatios[r.AspectRatio] {
		return apierr.New(apierr.KindValidation, "unsupported aspect ratio: %s", r.AspectRatio)
	}
	if r.Resolution == "" {
		r.Resolution = "720p"
	}
	if !allowedResolutions[r.Resolution] {
		return apierr.New(apierr.KindValidation, "unsupported resolution: %s", r.Resolution)
	}
	// the vendor only renders 1080p in landscape
	if r.Resolution == "1080p" && r.AspectRatio != "16:9" {
		return apierr.New(apierr.KindValidation, "1080p is only available for 16:9")
	}
	if r.SourceImage != nil {
		if r.SourceImage.Data == "" || r.SourceImage.MIMEType == "" {
			return apierr.New(apierr.KindValidation, "source image requires data and mimeType")
		}
		if _, err := r.SourceImage.Decode(); err != nil {
			return apierr.New(apierr.KindValidation, "source image is not valid base64")
		}
	}
	return nil
}

// Phase is the human-facing step inside the lifecycle, used for progress
// messages. It is finer-grained than Status: downloading happens while the
// job is still not terminal.
type Phase string

const (
	PhaseSubmitting  Phase = "submitting"
	PhaseWaiting     Phase = "waiting"
	PhaseDownloading Phase = "downloading"
	PhaseDone        Phase = "done"
	PhaseError       Phase = "error"
)

// Job is the persisted state of one video generation.
type Job struct {
	JobID         string         `json:"jobId"`
	UserID        string         `json:"userId"`
	Prompt        string         `json:"prompt,omitempty"`
	AspectRatio   string         `json:"aspectRatio"`
	Resolution    string         `json:"resolution"`
	SourceImage   *media.Encoded `json:"sourceImage,omitempty"`
	Status        Status         `json:"status"`
	Phase         Phase          `json:"phase"`
	OperationName string         `json:"operationName,omitempty"`
	PollCount     int            `json:"pollCount"`
	Video         *media.Encoded `json:"video,omitempty"`
	ErrorKind     string         `json:"errorKind,omitempty"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
}

// ProgressMessage renders the current phase for live status displays.
func (j *Job) ProgressMessage() string {
	switch j.Phase {
	case PhaseSubmitting:
		return "Submitting video generation request..."
	case PhaseWaiting:
		return fmt.Sprintf("Generating video... (check %d)", j.PollCount)
	case PhaseDownloading:
		return "Downloading generated video..."
	case PhaseDone:
		return "Video ready"
	case PhaseError:
		return j.ErrorMessage
	default:
		return ""
	}
}

// StatusView is the job as the client sees it: the video payload is
// swapped for a flag so status polling stays lightweight.
type StatusView struct {
	JobID        string `json:"jobId"`
	Status       Status `json:"status"`
	Phase        Phase  `json:"phase"`
	Message      string `json:"message"`
	PollCount    int    `json:"pollCount"`
	HasVideo     bool   `json:"hasVideo"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func (j *Job) View() *StatusView {
	return &StatusView{
		JobID:        j.JobID,
		Status:       j.Status,
		Phase:        j.Phase,
		Message:      j.ProgressMessage(),
		PollCount:    j.PollCount,
		HasVideo:     j.Video != nil,
		ErrorKind:    j.ErrorKind,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

package generate

import (
	"maxprompt-server/modules/common/apierr"
	"maxprompt-server/modules/common/media"
)

var allowedAspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
}

// ImageRequest covers both text-to-image generation and image editing.
// A request with a SourceImage is an edit, everything else is a generation.
type ImageRequest struct {
	UserID      string         `json:"userId,omitempty"`
	Prompt      string         `json:"prompt"`
	AspectRatio string         `json:"aspectRatio,omitempty"`
	Temperature *float32       `json:"temperature,omitempty"`
	SourceImage *media.Encoded `json:"sourceImage,omitempty"`
}

// IsEdit reports whether the request carries a source image to modify.
func (r *ImageRequest) IsEdit() bool {
	return r.SourceImage != nil
}

// Validate normalizes defaults and rejects malformed requests before any
// upstream call is made.
func (r *ImageRequest) Validate() error {
	if r.Prompt == "" {
		return apierr.New(apierr.KindValidation, "prompt is required")
	}
	if r.AspectRatio == "" {
		r.AspectRatio = "1:1"
	}
	if !allowedAspectRatios[r.AspectRatio] {
		return apierr.New(apierr.KindValidation, "unsupported aspect ratio: %s", r.AspectRatio)
	}
	if r.IsEdit() {
		if r.SourceImage.Data == "" || r.SourceImage.MIMEType == "" {
			return apierr.New(apierr.KindValidation, "source image requires data and mimeType")
		}
		if _, err := r.SourceImage.Decode(); err != nil {
			return apierr.New(apierr.KindValidation, "source image is not valid base64")
		}
	}
	return nil
}

// ImageResult is the synchronous response for the image path.
type ImageResult struct {
	MIMEType    string `json:"mimeType"`
	Base64Image string `json:"base64Image"`
}

package model

// Generation - studio_generations table row
type Generation struct {
	ID          *string `json:"id,omitempty"`
	UserID      string  `json:"user_id"`
	Kind        string  `json:"kind"` // "image", "edit" or "video"
	Prompt      string  `json:"prompt"`
	AspectRatio string  `json:"aspect_ratio"`
	Status      string  `json:"status"` // "succeeded" or "failed"
	ErrorKind   *string `json:"error_kind,omitempty"`
	PreviewPath *string `json:"preview_path,omitempty"`
	SizeBytes   int64   `json:"size_bytes"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

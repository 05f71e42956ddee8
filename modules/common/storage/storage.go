package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"maxprompt-server/modules/common/config"
)

const previewBucket = "previews"

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// UploadPreview stores a WebP preview in Supabase Storage and returns its
// path. convertToWebP is injected so the storage layer stays free of
// image codecs.
func (c *Client) UploadPreview(ctx context.Context, imageData []byte, userID string, convertToWebP func([]byte, float32) ([]byte, error)) (string, int64, error) {
	cfg := config.GetConfig()

	webpData, err := convertToWebP(imageData, 90.0)
	if err != nil {
		return "", 0, fmt.Errorf("failed to convert preview to WebP: %w", err)
	}

	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	fileName := fmt.Sprintf("generated_%d_%d.webp", timestamp, rand.Intn(999999))
	filePath := fmt.Sprintf("user-%s/%s", userID, fileName)

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		cfg.SupabaseURL, previewBucket, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(webpData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SupabaseServiceKey)
	req.Header.Set("Content-Type", "image/webp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload preview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("preview upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return filePath, int64(len(webpData)), nil
}

// PublicURL resolves a stored path to its public address.
func PublicURL(filePath string) string {
	cfg := config.GetConfig()
	if cfg.SupabaseStorageBaseURL != "" {
		return cfg.SupabaseStorageBaseURL + filePath
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", cfg.SupabaseURL, previewBucket, filePath)
}

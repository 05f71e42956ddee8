package utils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log"
	"net/http"

	_ "github.com/kolesa-team/go-webp/decoder" // register WebP decoder
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// ConvertImageToWebP re-encodes an image (PNG/JPEG/WebP) as lossy WebP.
// Used for history previews, where size matters more than fidelity.
func ConvertImageToWebP(imageData []byte, quality float32) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	if err := webp.Encode(&webpBuffer, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	webpData := webpBuffer.Bytes()
	log.Printf("🔄 Converted %s to WebP: %d bytes → %d bytes", format, len(imageData), len(webpData))
	return webpData, nil
}

// SniffMIMEType detects the content type of a raw media payload.
func SniffMIMEType(data []byte) string {
	return http.DetectContentType(data)
}

package media

import (
	"encoding/base64"
	"fmt"
	"io"

	"maxprompt-server/modules/common/apierr"
)

// Encoded is a media payload ready to cross a JSON boundary.
type Encoded struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Encode reads the full payload and base64-encodes it. Read failures are
// classified so callers can distinguish a bad upload from a vendor failure.
func Encode(r io.Reader, mimeType string) (*Encoded, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindValidation, err, "failed to read media payload")
	}
	return EncodeBytes(raw, mimeType), nil
}

// EncodeBytes wraps already-loaded bytes without copying them again.
func EncodeBytes(raw []byte, mimeType string) *Encoded {
	return &Encoded{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
}

// Decode recovers the original bytes from an encoded payload.
func (e *Encoded) Decode() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode media payload: %w", err)
	}
	return raw, nil
}

// DataURL renders the payload as a browser-ready data URL.
func (e *Encoded) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", e.MIMEType, e.Data)
}

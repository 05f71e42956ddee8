package media

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxprompt-server/modules/common/apierr"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}

func TestEncodeRoundTrip(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0xFF, 0x10}
	enc, err := Encode(bytes.NewReader(payload), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", enc.MIMEType)

	decoded, err := enc.Decode()
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestEncodeDeterministic(t *testing.T) {
	a := EncodeBytes([]byte("same input"), "video/mp4")
	b := EncodeBytes([]byte("same input"), "video/mp4")
	assert.Equal(t, a.Data, b.Data)
}

func TestEncodeReadFailure(t *testing.T) {
	_, err := Encode(failingReader{}, "image/png")
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	enc := &Encoded{MIMEType: "image/png", Data: "not-base64!!"}
	_, err := enc.Decode()
	assert.ErrorContains(t, err, "failed to decode media payload")
}

func TestDataURL(t *testing.T) {
	enc, err := Encode(strings.NewReader("hi"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "data:text/plain;base64,aGk=", enc.DataURL())
}

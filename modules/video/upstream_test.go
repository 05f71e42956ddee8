package video

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxprompt-server/modules/common/apierr"
)

func testUpstream() *GeminiUpstream {
	return &GeminiUpstream{
		model:      "veo-test",
		downloader: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestDownloadAppendsCredential(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4 bytes"))
	}))
	defer server.Close()

	data, mimeType, err := testUpstream().Download(context.Background(), "sk-key", server.URL+"/v1/files/abc:download?alt=media")
	require.NoError(t, err)
	assert.Equal(t, "sk-key", gotKey)
	assert.Equal(t, "video/mp4", mimeType)
	assert.Equal(t, []byte("mp4 bytes"), data)
}

func TestDownloadAddsQuerySeparator(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	_, _, err := testUpstream().Download(context.Background(), "sk-key", server.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "key=sk-key", rawQuery)
}

func TestDownloadFailureIsDownloadKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer server.Close()

	_, _, err := testUpstream().Download(context.Background(), "sk-key", server.URL)
	require.Error(t, err)
	assert.Equal(t, apierr.KindDownload, apierr.KindOf(err))
	assert.ErrorContains(t, err, "403")
}

func TestDownloadUnreachableHost(t *testing.T) {
	_, _, err := testUpstream().Download(context.Background(), "sk-key", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, apierr.KindDownload, apierr.KindOf(err))
}

func TestDownloadDefaultsMIMEType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("bytes"))
	}))
	defer server.Close()

	_, mimeType, err := testUpstream().Download(context.Background(), "sk-key", server.URL)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", mimeType)
}

func TestDownloadSniffsGenericMIMEType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		// EBML magic, the WebM container signature
		w.Write(append([]byte{0x1A, 0x45, 0xDF, 0xA3}, []byte("webm body")...))
	}))
	defer server.Close()

	_, mimeType, err := testUpstream().Download(context.Background(), "sk-key", server.URL)
	require.NoError(t, err)
	assert.Equal(t, "video/webm", mimeType)
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClassifyAPIErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		code int
		msg  string
		want Kind
	}{
		{"unauthorized", 401, "request not authorized", KindAuth},
		{"forbidden", 403, "caller lacks permission", KindAuth},
		{"too many requests", 429, "rate limited", KindQuota},
		{"payment required", 402, "billing account delinquent", KindQuota},
		{"quota text on 400", 400, "Quota exceeded for generate requests", KindQuota},
		{"invalid key on 400", 400, "API key not valid. Please pass a valid API key.", KindAuth},
		{"expired key", 400, "API key expired. Please renew the API key.", KindAuth},
		{"server error", 500, "internal error", KindTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := genai.APIError{Code: tc.code, Message: tc.msg}
			assert.Equal(t, tc.want, Classify(err).Kind)
		})
	}
}

func TestClassifyPlainErrors(t *testing.T) {
	assert.Equal(t, KindQuota, Classify(errors.New("RESOURCE_EXHAUSTED: quota metric exceeded")).Kind)
	assert.Equal(t, KindAuth, Classify(errors.New("rpc error: UNAUTHENTICATED")).Kind)
	assert.Equal(t, KindTransport, Classify(errors.New("dial tcp: connection refused")).Kind)
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := New(KindUpstream, "no video in response")
	wrapped := fmt.Errorf("poll failed: %w", orig)
	got := Classify(wrapped)
	assert.Equal(t, KindUpstream, got.Kind)
	assert.Equal(t, "no video in response", got.Message)
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindDownload, "redemption fetch returned 403"))
	assert.Equal(t, KindDownload, KindOf(err))
	assert.Equal(t, KindTransport, KindOf(errors.New("anything else")))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("boom")
	assert.ErrorIs(t, Wrap(KindTransport, inner, "call failed"), inner)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindAuth))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(KindQuota))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindUpstream))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindDownload))
}

func TestWriteHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHTTP(rec, New(KindValidation, "prompt is required"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"prompt is required","kind":"validation"}`, rec.Body.String())
}

package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Kind is the stable error category the presentation layer switches on.
// It never has to parse vendor error text itself; classification happens here.
type Kind string

const (
	KindValidation Kind = "validation" // bad request input, caught before any network call
	KindAuth       Kind = "auth"       // credential missing, invalid, or revoked
	KindQuota      Kind = "quota"      // billing or quota exhaustion on the vendor account
	KindUpstream   Kind = "upstream"   // success-shaped response with no usable artifact
	KindTransport  Kind = "transport"  // network/HTTP failure at submit or poll
	KindDownload   Kind = "download"   // redemption fetch failed after the job itself succeeded
)

// Error carries a Kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error while keeping it unwrappable.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// KindTransport, the catch-all for plumbing failures.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransport
}

// Classify maps a raw error from the vendor SDK (or the transport under it)
// onto the taxonomy. Already-classified errors pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return Wrap(KindAuth, err, "credential rejected by the generation service")
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusPaymentRequired:
			return Wrap(KindQuota, err, "quota or billing exhausted on the vendor account")
		case looksLikeQuota(msg):
			return Wrap(KindQuota, err, "quota or billing exhausted on the vendor account")
		case looksLikeAuth(msg):
			// invalid API keys surface as 400 INVALID_ARGUMENT, so code alone is not enough
			return Wrap(KindAuth, err, "credential rejected by the generation service")
		default:
			return Wrap(KindTransport, err, fmt.Sprintf("generation service returned status %d", apiErr.Code))
		}
	}

	msg := strings.ToLower(err.Error())
	if looksLikeQuota(msg) {
		return Wrap(KindQuota, err, "quota or billing exhausted on the vendor account")
	}
	if looksLikeAuth(msg) {
		return Wrap(KindAuth, err, "credential rejected by the generation service")
	}
	return Wrap(KindTransport, err, "request to the generation service failed")
}

func looksLikeQuota(msg string) bool {
	for _, marker := range []string{"quota", "billing", "resource_exhausted", "resource has been exhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func looksLikeAuth(msg string) bool {
	for _, marker := range []string{"api key not valid", "api_key_invalid", "api key expired", "unauthenticated", "permission_denied", "permission denied"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// HTTPStatus maps a Kind to the status the proxy answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// WriteHTTP renders a classified error as the JSON error envelope handlers use.
func WriteHTTP(w http.ResponseWriter, err error) {
	ae := Classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(ae.Kind))
	json.NewEncoder(w).Encode(map[string]string{
		"error": ae.Message,
		"kind":  string(ae.Kind),
	})
}

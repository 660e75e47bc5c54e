package jimeng

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MissingCredentialError is returned when neither the override nor the
// environment supplies both keys.
type MissingCredentialError struct {
	// Missing lists the environment variable names that were not resolved.
	Missing []string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("jimeng: missing credential (%s); pass --access-key/--secret-key or set %s and %s",
		strings.Join(e.Missing, ", "), EnvAccessKey, EnvSecretKey)
}

// InvalidCredentialError is returned when a credential cannot be used for
// signing, e.g. an empty secret key.
type InvalidCredentialError struct {
	Reason string
}

func (e *InvalidCredentialError) Error() string {
	return "jimeng: invalid credential: " + e.Reason
}

// ValidationError reports a GenerationRequest field that failed validation.
// It is always raised before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("jimeng: invalid %s: %s", e.Field, e.Reason)
}

// NetworkError wraps a failure to complete the HTTP exchange: connection
// refused, DNS failure, timeout or cancellation.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("jimeng: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError is returned for any non-2xx response.
type HTTPStatusError struct {
	Code int
	Body []byte
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	if body == "" {
		return fmt.Sprintf("jimeng: http status %d", e.Code)
	}
	return fmt.Sprintf("jimeng: http status %d: %s", e.Code, body)
}

// IsAuthError reports whether the provider rejected the signature or keys.
// Clock skew also surfaces here.
func (e *HTTPStatusError) IsAuthError() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// ProviderError is a failure reported by the provider inside a 2xx envelope.
// The pipeline maps it into a GenerationResult instead of returning it.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return "jimeng: provider error: " + e.Message
	}
	return fmt.Sprintf("jimeng: provider error %s: %s", e.Code, e.Message)
}

// StorageError is returned when persisting an image fails. Files named in
// Written were already stored before the failure and are not removed.
type StorageError struct {
	Name    string
	Written []string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("jimeng: storage: %v", e.Err)
	}
	return fmt.Sprintf("jimeng: storage: write %s: %v", e.Name, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Retryable reports whether a caller-side retry could succeed: network
// failures, 429 and 5xx responses. The pipeline itself never retries.
func Retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return !errors.Is(netErr.Err, context.Canceled)
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError
	}
	return false
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsCredential reports whether err is a missing or invalid credential.
func IsCredential(err error) bool {
	var missing *MissingCredentialError
	var invalid *InvalidCredentialError
	return errors.As(err, &missing) || errors.As(err, &invalid)
}

// IsUpstream reports whether err came from the HTTP exchange with the
// provider.
func IsUpstream(err error) bool {
	var netErr *NetworkError
	var statusErr *HTTPStatusError
	return errors.As(err, &netErr) || errors.As(err, &statusErr)
}

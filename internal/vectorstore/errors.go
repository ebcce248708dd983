package vectorstore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is a non-2xx response from the vector store service. It keeps
// the status code so callers can distinguish transient failures from
// malformed requests.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vector store status %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// Transient reports whether the failure is worth retrying. Client-side
// errors (4xx) will fail the same way on every attempt.
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// isTransient classifies an upsert failure for the retry policy. Anything
// that is not a definitive 4xx rejection (network errors, timeouts, 5xx)
// is assumed transient.
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return true
}

// isAlreadyExists matches the service's response to creating a collection
// or payload index that is already present. Racing initializations treat
// this as success.
func isAlreadyExists(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.Code == http.StatusConflict {
		return true
	}
	return strings.Contains(strings.ToLower(statusErr.Body), "already exists")
}

// PartialStoreError reports a batched write that failed after some batches
// were durably stored. Stored counts chunks written before the failure so
// the caller can re-ingest only the remainder.
type PartialStoreError struct {
	FileID int64
	Stored int
	Total  int
	Err    error
}

func (e *PartialStoreError) Error() string {
	return fmt.Sprintf("stored %d of %d chunks for file %d: %v", e.Stored, e.Total, e.FileID, e.Err)
}

func (e *PartialStoreError) Unwrap() error {
	return e.Err
}

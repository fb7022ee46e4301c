package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FetchErrorKind classifies transport failures so callers can decide
// between retry and task failure.
type FetchErrorKind string

// Failure classes surfaced by Fetcher implementations.
const (
	FetchOther      FetchErrorKind = "other"
	FetchHTTPStatus FetchErrorKind = "http_status"
	FetchTimeout    FetchErrorKind = "timeout"
	FetchConnection FetchErrorKind = "connection"
	FetchMalformed  FetchErrorKind = "malformed"
)

// FetchError is the typed failure returned by fetchers. The raw error is
// preserved for unwrapping.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyFetchError wraps err into a FetchError with the failure class
// derived from the underlying error chain and status code.
func ClassifyFetchError(url string, statusCode int, err error) *FetchError {
	fe := &FetchError{Kind: FetchOther, URL: url, StatusCode: statusCode, Err: err}
	if statusCode >= http.StatusBadRequest {
		fe.Kind = FetchHTTPStatus
		return fe
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fe.Kind = FetchTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		fe.Kind = FetchTimeout
	case isConnectionError(err):
		fe.Kind = FetchConnection
	}
	return fe
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// RetryableFetch reports whether err is a transport failure worth a
// bounded retry: timeouts, connection errors, throttling, and 5xx.
func RetryableFetch(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case FetchTimeout, FetchConnection:
		return true
	case FetchHTTPStatus:
		return fe.StatusCode == http.StatusTooManyRequests || fe.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

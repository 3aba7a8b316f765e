package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a non-2xx node response.
type ErrorKind string

const (
	KindBadRequest         ErrorKind = "bad_request"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindNotFound           ErrorKind = "not_found"
	KindRateLimited        ErrorKind = "rate_limited"
	KindInternal           ErrorKind = "internal"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindGatewayTimeout     ErrorKind = "gateway_timeout"

	// KindTransport is the fallback for every status without a specific kind.
	KindTransport ErrorKind = "transport"
)

// KindForStatus maps an HTTP status code to its error kind. It is total:
// codes without a dedicated kind map to KindTransport.
func KindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusInternalServerError:
		return KindInternal
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	case http.StatusGatewayTimeout:
		return KindGatewayTimeout
	default:
		return KindTransport
	}
}

// Classifier maps a status code to an error kind. KindForStatus is the default.
type Classifier func(statusCode int) ErrorKind

// NodeError is a decoded non-2xx response. Only providers construct it.
type NodeError struct {
	Kind       ErrorKind
	StatusCode int

	// Text is the raw response body.
	Text string

	// Info is the parsed JSON body, nil when the body is not JSON.
	Info any

	// URL is the request target, without query parameters.
	URL string
}

// Error implements the error interface
func (e *NodeError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("node %s: %d %s", e.URL, e.StatusCode, e.Kind)
	}
	return fmt.Sprintf("node %s: %d %s: %s", e.URL, e.StatusCode, e.Kind, truncate(e.Text, 256))
}

// Is matches another *NodeError of the same kind, so the sentinels below
// work with errors.Is.
func (e *NodeError) Is(target error) bool {
	t, ok := target.(*NodeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is. They carry a kind only.
var (
	ErrBadRequest         = &NodeError{Kind: KindBadRequest}
	ErrUnauthorized       = &NodeError{Kind: KindUnauthorized}
	ErrForbidden          = &NodeError{Kind: KindForbidden}
	ErrNotFound           = &NodeError{Kind: KindNotFound}
	ErrRateLimited        = &NodeError{Kind: KindRateLimited}
	ErrInternal           = &NodeError{Kind: KindInternal}
	ErrServiceUnavailable = &NodeError{Kind: KindServiceUnavailable}
	ErrGatewayTimeout     = &NodeError{Kind: KindGatewayTimeout}
	ErrTransport          = &NodeError{Kind: KindTransport}
)

// AsNodeError extracts a *NodeError from err's chain.
func AsNodeError(err error) (*NodeError, bool) {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr, true
	}
	return nil, false
}

// IsNodeError reports whether err carries a decoded node response. False
// means the failure happened before any response arrived.
func IsNodeError(err error) bool {
	_, ok := AsNodeError(err)
	return ok
}

// KindOf returns the kind of a node error, or empty string otherwise.
func KindOf(err error) ErrorKind {
	if nodeErr, ok := AsNodeError(err); ok {
		return nodeErr.Kind
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

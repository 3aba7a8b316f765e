package providers

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Version is reported in the default User-Agent header.
const Version = "0.1.0"

// DefaultTimeout applies to every call that does not set RequestOptions.Timeout.
const DefaultTimeout = 60 * time.Second

// Provider is the contract higher-level node APIs (get block, get account, ...)
// are built on. Implementations must be safe for concurrent use.
type Provider interface {
	// NodeURL returns the normalized base address of the node.
	NodeURL() string

	// Request performs one HTTP call against path (appended verbatim to the
	// node URL) and returns the decoded response data.
	//
	// Non-2xx responses fail with a *NodeError. Failures that happen before a
	// response exists are returned unchanged.
	Request(ctx context.Context, method, path string, body any, query url.Values) (any, error)

	// IsConnected reports whether the node answers its status page. It never
	// returns an error.
	IsConnected(ctx context.Context) bool
}

// RequestOptions holds the per-request settings a provider applies to every call.
type RequestOptions struct {
	// Headers replaces the default header set when non-nil. Caller headers
	// are never merged with the defaults.
	Headers map[string]string

	// Timeout bounds a single call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Proxy is handed to the transport untouched.
	Proxy string

	// Extra holds arbitrary transport options. The provider never interprets
	// them; they ride on the request context (see ExtraFromContext).
	Extra map[string]string
}

// DefaultHeaders returns the header set injected when RequestOptions.Headers is nil.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "tron-node-provider/" + Version,
	}
}

// Effective returns a copy of the options with the default header set
// injected when no headers were supplied. Repeated calls on the same value
// return equivalent results.
func (o RequestOptions) Effective() RequestOptions {
	out := RequestOptions{
		Timeout: o.Timeout,
		Proxy:   o.Proxy,
	}

	if o.Headers == nil {
		out.Headers = DefaultHeaders()
	} else {
		out.Headers = copyStrings(o.Headers)
	}

	if o.Extra != nil {
		out.Extra = copyStrings(o.Extra)
	}

	return out
}

// NormalizedResponse is a decoded node response.
type NormalizedResponse struct {
	StatusCode int
	Header     http.Header

	// Data is the parsed JSON payload, or the raw text when the body is not
	// JSON. Never both.
	Data any

	// Raw is the unmodified response body.
	Raw []byte
}

type ctxKey string

const ctxKeyExtra ctxKey = "transport-extra"

// WithExtra attaches passthrough transport options to ctx.
func WithExtra(ctx context.Context, extra map[string]string) context.Context {
	return context.WithValue(ctx, ctxKeyExtra, extra)
}

// ExtraFromContext returns the passthrough options attached by WithExtra.
func ExtraFromContext(ctx context.Context) map[string]string {
	v, _ := ctx.Value(ctxKeyExtra).(map[string]string)
	return v
}

func copyStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

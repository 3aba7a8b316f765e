// Package httpnode implements providers.Provider over plain HTTP.
package httpnode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/services/providers"
	"go.uber.org/zap"
)

// defaultStatusPage is the full node liveness endpoint.
const defaultStatusPage = "/wallet/getnowblock"

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds optional provider settings. The zero value is usable.
type Config struct {
	// Options are applied to every request.
	Options providers.RequestOptions

	// StatusPage is the path IsConnected probes.
	StatusPage string

	// Client replaces the owned HTTP client. Options.Proxy is ignored when set.
	Client Doer

	// Classify maps failed status codes to error kinds.
	Classify providers.Classifier

	// Name labels logs and metrics, typically the node role.
	Name string

	Logger  *zap.Logger
	Metrics observability.Metrics
}

// Call is one HTTP exchange handled by Do.
type Call struct {
	Method  string
	URL     string
	Body    any
	Query   url.Values
	Options providers.RequestOptions
}

// Provider talks to a single node over HTTP.
//
// Provider is safe for concurrent use by multiple goroutines. It holds no
// mutable state; concurrency safety of the connection pool comes from the
// underlying client.
type Provider struct {
	nodeURL    string
	options    providers.RequestOptions
	statusPage string
	name       string

	client Doer
	owned  *http.Client

	classify providers.Classifier
	logger   *zap.Logger
	metrics  observability.Metrics
}

var _ providers.Provider = (*Provider)(nil)

// New creates a provider for nodeURL. A single trailing slash is stripped
// from the address.
func New(nodeURL string, cfg Config) (*Provider, error) {
	p := &Provider{
		nodeURL:    strings.TrimSuffix(nodeURL, "/"),
		options:    cfg.Options,
		statusPage: cfg.StatusPage,
		name:       cfg.Name,
		client:     cfg.Client,
		classify:   cfg.Classify,
		logger:     observability.OrNop(cfg.Logger),
		metrics:    cfg.Metrics,
	}

	if p.statusPage == "" {
		p.statusPage = defaultStatusPage
	}
	if p.classify == nil {
		p.classify = providers.KindForStatus
	}
	if p.metrics == nil {
		p.metrics = observability.NopMetrics{}
	}
	if p.name == "" {
		p.name = p.nodeURL
	}

	if p.client == nil {
		owned, err := newHTTPClient(cfg.Options.Proxy)
		if err != nil {
			return nil, err
		}
		p.owned = owned
		p.client = owned
	}

	return p, nil
}

func newHTTPClient(proxy string) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	// Timeouts are applied per call through the request context.
	return &http.Client{Transport: transport}, nil
}

// NodeURL returns the normalized base address.
func (p *Provider) NodeURL() string {
	return p.nodeURL
}

// StatusPage returns the path probed by IsConnected.
func (p *Provider) StatusPage() string {
	return p.statusPage
}

// RequestOptions returns the effective per-request options.
func (p *Provider) RequestOptions() providers.RequestOptions {
	return p.options.Effective()
}

// Close releases idle connections held by the owned client. It is a no-op
// for an injected client.
func (p *Provider) Close() {
	if p.owned != nil {
		p.owned.CloseIdleConnections()
	}
}

// Request performs method against the node URL with path appended as-is.
// An empty path targets the node URL itself.
func (p *Provider) Request(ctx context.Context, method, path string, body any, query url.Values) (any, error) {
	target := p.nodeURL
	if path != "" {
		target += path
	}

	resp, err := p.Do(ctx, Call{
		Method:  method,
		URL:     target,
		Body:    body,
		Query:   query,
		Options: p.RequestOptions(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// IsConnected probes the status page. Every failure, decoded or not, reads
// as not connected.
func (p *Provider) IsConnected(ctx context.Context) bool {
	data, err := p.Request(ctx, http.MethodGet, p.statusPage, nil, nil)
	if err != nil {
		observability.WithContext(ctx, p.logger).Debug("node status check failed",
			zap.String("node", p.name),
			zap.Error(err))
		return false
	}
	return providers.ParseNodeStatus(data).Connected()
}

// Do performs exactly one HTTP call and normalizes the response.
//
// A zero Options.Timeout becomes providers.DefaultTimeout. Errors from the
// client itself (no response received) are returned unchanged; non-2xx
// responses become *providers.NodeError.
func (p *Provider) Do(ctx context.Context, call Call) (*providers.NormalizedResponse, error) {
	timeout := call.Options.Timeout
	if timeout <= 0 {
		timeout = providers.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(call.Options.Extra) > 0 {
		ctx = providers.WithExtra(ctx, call.Options.Extra)
	}

	req, err := newRequest(ctx, call)
	if err != nil {
		return nil, err
	}

	logger := observability.WithContext(ctx, p.logger).With(
		zap.String("node", p.name),
		zap.String("method", req.Method),
		zap.String("url", call.URL))

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.observe(ctx, req.Method, observability.OutcomeUnreachable, time.Since(start))
		logger.Debug("node unreachable", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.observe(ctx, req.Method, observability.OutcomeUnreachable, time.Since(start))
		return nil, err
	}
	elapsed := time.Since(start)

	text := string(raw)
	// A body that is not JSON is expected for some endpoints.
	parsed, _ := decodeJSON(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		nodeErr := &providers.NodeError{
			Kind:       p.classify(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Text:       text,
			Info:       parsed,
			URL:        call.URL,
		}
		p.observe(ctx, req.Method, string(nodeErr.Kind), elapsed)
		logger.Warn("node returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(nodeErr.Kind)),
			zap.Duration("duration", elapsed))
		return nil, nodeErr
	}

	p.observe(ctx, req.Method, observability.OutcomeSuccess, elapsed)
	logger.Debug("node request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed))

	var data any = text
	if parsed != nil {
		data = parsed
	}

	return &providers.NormalizedResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Data:       data,
		Raw:        raw,
	}, nil
}

func (p *Provider) observe(ctx context.Context, method, outcome string, d time.Duration) {
	labels := observability.RequestLabels{Node: p.name, Method: method, Outcome: outcome}
	p.metrics.RecordRequest(ctx, labels)
	p.metrics.RecordLatency(ctx, d, labels)
}

func newRequest(ctx context.Context, call Call) (*http.Request, error) {
	target, err := url.Parse(call.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url %q: %w", call.URL, err)
	}
	if len(call.Query) > 0 {
		q := target.Query()
		for key, values := range call.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(call.Method), target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range call.Options.Headers {
		req.Header.Set(k, v)
	}
	if call.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// decodeJSON parses a complete JSON document. Numbers stay json.Number so
// large amounts keep their precision.
func decodeJSON(raw []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return v, true
}

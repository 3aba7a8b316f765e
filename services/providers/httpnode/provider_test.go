package httpnode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/services/providers"
	"go.uber.org/zap"
)

// doerFunc adapts a function to the Doer interface
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// recordingDoer answers every request with a fixed response and keeps the
// last request it saw.
type recordingDoer struct {
	mu       sync.Mutex
	status   int
	body     string
	header   http.Header
	last     *http.Request
	lastBody []byte
	deadline time.Time
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = req
	d.deadline, _ = req.Context().Deadline()
	if req.Body != nil {
		d.lastBody, _ = io.ReadAll(req.Body)
	}

	header := d.header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: d.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

func newTestProvider(t *testing.T, nodeURL string, cfg Config) *Provider {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p, err := New(nodeURL, cfg)
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	t.Run("strips a single trailing slash", func(t *testing.T) {
		p := newTestProvider(t, "http://node.example/", Config{})
		assert.Equal(t, "http://node.example", p.NodeURL())

		p = newTestProvider(t, "http://node.example//", Config{})
		assert.Equal(t, "http://node.example/", p.NodeURL())

		p = newTestProvider(t, "http://node.example", Config{})
		assert.Equal(t, "http://node.example", p.NodeURL())
	})

	t.Run("defaults", func(t *testing.T) {
		p := newTestProvider(t, "http://node.example", Config{})

		assert.Equal(t, defaultStatusPage, p.StatusPage())
		assert.NotNil(t, p.owned)
		assert.Same(t, p.owned, p.client)
	})

	t.Run("injected client is not owned", func(t *testing.T) {
		doer := &recordingDoer{status: http.StatusOK}
		p := newTestProvider(t, "http://node.example", Config{Client: doer})

		assert.Nil(t, p.owned)
		assert.NotPanics(t, p.Close)
	})

	t.Run("proxy is applied to the owned transport", func(t *testing.T) {
		p := newTestProvider(t, "http://node.example", Config{
			Options: providers.RequestOptions{Proxy: "http://proxy.internal:3128"},
		})

		transport, ok := p.owned.Transport.(*http.Transport)
		require.True(t, ok)
		require.NotNil(t, transport.Proxy)

		req := httptest.NewRequest(http.MethodGet, "http://node.example/wallet/getnowblock", nil)
		proxyURL, err := transport.Proxy(req)
		require.NoError(t, err)
		assert.Equal(t, "proxy.internal:3128", proxyURL.Host)
	})

	t.Run("invalid proxy", func(t *testing.T) {
		_, err := New("http://node.example", Config{
			Options: providers.RequestOptions{Proxy: "://bad"},
		})
		assert.Error(t, err)
	})
}

func TestProvider_RequestOptions(t *testing.T) {
	t.Run("injects default headers when none are configured", func(t *testing.T) {
		p := newTestProvider(t, "http://node.example", Config{
			Options: providers.RequestOptions{Timeout: 10 * time.Second},
		})

		opts := p.RequestOptions()
		assert.Equal(t, providers.DefaultHeaders(), opts.Headers)
		assert.Equal(t, 10*time.Second, opts.Timeout)
	})

	t.Run("caller headers are kept unchanged", func(t *testing.T) {
		headers := map[string]string{"TRON-PRO-API-KEY": "secret"}
		p := newTestProvider(t, "http://node.example", Config{
			Options: providers.RequestOptions{Headers: headers},
		})

		assert.Equal(t, headers, p.RequestOptions().Headers)
	})

	t.Run("idempotent", func(t *testing.T) {
		p := newTestProvider(t, "http://node.example", Config{
			Options: providers.RequestOptions{Proxy: "http://proxy.internal", Extra: map[string]string{"verify": "false"}},
		})

		first := p.RequestOptions()
		first.Headers["X-Mutated"] = "yes"
		second := p.RequestOptions()

		assert.NotContains(t, second.Headers, "X-Mutated")
		assert.Equal(t, p.RequestOptions(), second)
	})
}

func TestProvider_Request_TargetURL(t *testing.T) {
	tests := []struct {
		name    string
		nodeURL string
		path    string
		want    string
	}{
		{"path appended after stripped slash", "http://node.example/", "/status", "http://node.example/status"},
		{"empty path targets the node url", "http://node.example/", "", "http://node.example"},
		{"no separator injected", "http://node.example", "wallet", "http://node.examplewallet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &recordingDoer{status: http.StatusOK, body: `{}`}
			p := newTestProvider(t, tt.nodeURL, Config{Client: doer})

			_, err := p.Request(context.Background(), http.MethodGet, tt.path, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doer.last.URL.String())
		})
	}
}

func TestProvider_Request_BuildsHTTPRequest(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `{"result":true}`}
	p := newTestProvider(t, "http://node.example", Config{Client: doer})

	body := map[string]any{"value": "41e552f6487585c2b58bc2c9bb4492bc1f17132cd0", "visible": false}
	query := url.Values{"limit": {"20"}}

	_, err := p.Request(context.Background(), "post", "/wallet/getaccount", body, query)
	require.NoError(t, err)

	req := doer.last
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "20", req.URL.Query().Get("limit"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "tron-node-provider/"+providers.Version, req.Header.Get("User-Agent"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(doer.lastBody, &sent))
	assert.Equal(t, body["value"], sent["value"])
	assert.Equal(t, false, sent["visible"])
}

func TestProvider_Request_PassesExtraOptions(t *testing.T) {
	var seen map[string]string
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		seen = providers.ExtraFromContext(req.Context())
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	})

	p := newTestProvider(t, "http://node.example", Config{
		Client:  client,
		Options: providers.RequestOptions{Extra: map[string]string{"allow_redirects": "false"}},
	})

	_, err := p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"allow_redirects": "false"}, seen)
}

func TestProvider_Do_Success(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   any
	}{
		{"json object", http.StatusOK, `{"blockID":"0000000002b5b4d6","number":45462742}`,
			map[string]any{"blockID": "0000000002b5b4d6", "number": json.Number("45462742")}},
		{"json array on 201", http.StatusCreated, `[1,2]`, []any{json.Number("1"), json.Number("2")}},
		{"json string", http.StatusOK, `"OK"`, "OK"},
		{"plain text", http.StatusOK, "OK", "OK"},
		{"unparsable json falls back to text", http.StatusAccepted, `{"broken":`, `{"broken":`},
		{"trailing garbage is not json", http.StatusOK, `{} {}`, `{} {}`},
		{"null body falls back to text", http.StatusOK, "null", "null"},
		{"empty body", http.StatusNoContent, "", ""},
		{"upper bound of success range", 299, `{"ok":true}`, map[string]any{"ok": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &recordingDoer{status: tt.status, body: tt.body, header: http.Header{"X-Node": {"fullnode"}}}
			p := newTestProvider(t, "http://node.example", Config{Client: doer})

			resp, err := p.Do(context.Background(), Call{
				Method:  http.MethodGet,
				URL:     "http://node.example/wallet/getnowblock",
				Options: p.RequestOptions(),
			})
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "fullnode", resp.Header.Get("X-Node"))
			assert.Equal(t, tt.want, resp.Data)
			assert.Equal(t, tt.body, string(resp.Raw))
		})
	}
}

func TestProvider_Do_Failure(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind providers.ErrorKind
		wantInfo any
		sentinel error
	}{
		{"bad request with json", http.StatusBadRequest, `{"Error":"class org.tron.core.exception.BadItemException"}`,
			providers.KindBadRequest, map[string]any{"Error": "class org.tron.core.exception.BadItemException"}, providers.ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, "missing api key", providers.KindUnauthorized, nil, providers.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, "", providers.KindForbidden, nil, providers.ErrForbidden},
		{"not found", http.StatusNotFound, "Not Found", providers.KindNotFound, nil, providers.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, `{"Error":"rate limit"}`, providers.KindRateLimited,
			map[string]any{"Error": "rate limit"}, providers.ErrRateLimited},
		{"internal", http.StatusInternalServerError, "boom", providers.KindInternal, nil, providers.ErrInternal},
		{"service unavailable", http.StatusServiceUnavailable, "", providers.KindServiceUnavailable, nil, providers.ErrServiceUnavailable},
		{"gateway timeout", http.StatusGatewayTimeout, "", providers.KindGatewayTimeout, nil, providers.ErrGatewayTimeout},
		{"redirect is a failure", http.StatusFound, "", providers.KindTransport, nil, providers.ErrTransport},
		{"unmapped client error", http.StatusTeapot, "teapot", providers.KindTransport, nil, providers.ErrTransport},
		{"unmapped server error", http.StatusBadGateway, "<html>bad gateway</html>", providers.KindTransport, nil, providers.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &recordingDoer{status: tt.status, body: tt.body}
			p := newTestProvider(t, "http://node.example", Config{Client: doer})

			target := "http://node.example/wallet/getblockbynum"
			resp, err := p.Do(context.Background(), Call{
				Method:  http.MethodPost,
				URL:     target,
				Query:   url.Values{"num": {"1"}},
				Options: p.RequestOptions(),
			})
			require.Error(t, err)
			assert.Nil(t, resp)

			nodeErr, ok := providers.AsNodeError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, nodeErr.Kind)
			assert.Equal(t, tt.status, nodeErr.StatusCode)
			assert.Equal(t, tt.body, nodeErr.Text)
			assert.Equal(t, target, nodeErr.URL)
			assert.Equal(t, tt.wantInfo, nodeErr.Info)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestProvider_Do_CustomClassifier(t *testing.T) {
	doer := &recordingDoer{status: http.StatusBadGateway, body: "upstream down"}
	p := newTestProvider(t, "http://node.example", Config{
		Client: doer,
		Classify: func(code int) providers.ErrorKind {
			if code == http.StatusBadGateway {
				return providers.KindServiceUnavailable
			}
			return providers.KindForStatus(code)
		},
	})

	_, err := p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
	assert.ErrorIs(t, err, providers.ErrServiceUnavailable)
}

func TestProvider_Timeout(t *testing.T) {
	t.Run("defaults to sixty seconds", func(t *testing.T) {
		doer := &recordingDoer{status: http.StatusOK, body: "{}"}
		p := newTestProvider(t, "http://node.example", Config{Client: doer})

		start := time.Now()
		_, err := p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
		require.NoError(t, err)

		require.False(t, doer.deadline.IsZero())
		assert.WithinDuration(t, start.Add(providers.DefaultTimeout), doer.deadline, time.Second)
	})

	t.Run("explicit timeout overrides the default", func(t *testing.T) {
		doer := &recordingDoer{status: http.StatusOK, body: "{}"}
		p := newTestProvider(t, "http://node.example", Config{
			Client:  doer,
			Options: providers.RequestOptions{Timeout: 5 * time.Second},
		})

		start := time.Now()
		_, err := p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
		require.NoError(t, err)

		assert.WithinDuration(t, start.Add(5*time.Second), doer.deadline, time.Second)
	})

	t.Run("expired timeout surfaces as a connectivity failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		p := newTestProvider(t, server.URL, Config{
			Options: providers.RequestOptions{Timeout: 20 * time.Millisecond},
		})
		defer p.Close()

		_, err := p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
		require.Error(t, err)
		assert.False(t, providers.IsNodeError(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestProvider_ConnectivityFailure(t *testing.T) {
	t.Run("client error is returned unchanged", func(t *testing.T) {
		dialErr := errors.New("dial tcp 10.0.0.1:8090: connect: connection refused")
		p := newTestProvider(t, "http://node.example", Config{
			Client: doerFunc(func(*http.Request) (*http.Response, error) { return nil, dialErr }),
		})

		_, err := p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
		assert.Same(t, dialErr, err)
		assert.False(t, providers.IsNodeError(err))
	})

	t.Run("closed server", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		nodeURL := server.URL
		server.Close()

		p := newTestProvider(t, nodeURL, Config{})
		_, err := p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
		require.Error(t, err)

		var urlErr *url.Error
		assert.True(t, errors.As(err, &urlErr))
		assert.Empty(t, providers.KindOf(err))
	})
}

func TestProvider_IsConnected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"event server OK", http.StatusOK, "OK", true},
		{"block with id", http.StatusOK, `{"blockID":"00000000033a2a6e","block_header":{}}`, true},
		{"block id value is irrelevant", http.StatusOK, `{"blockID":null}`, true},
		{"object without block id", http.StatusOK, `{"result":true}`, false},
		{"other text", http.StatusOK, "not ok", false},
		{"quoted OK is still the literal", http.StatusOK, `"OK"`, true},
		{"empty body", http.StatusOK, "", false},
		{"server error", http.StatusInternalServerError, `{"blockID":"x"}`, false},
		{"not found", http.StatusNotFound, "OK", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &recordingDoer{status: tt.status, body: tt.body}
			p := newTestProvider(t, "http://node.example", Config{Client: doer, StatusPage: "/healthcheck"})

			assert.Equal(t, tt.want, p.IsConnected(context.Background()))
			assert.Equal(t, http.MethodGet, doer.last.Method)
			assert.Equal(t, "/healthcheck", doer.last.URL.Path)
		})
	}

	t.Run("connectivity failure", func(t *testing.T) {
		p := newTestProvider(t, "http://node.example", Config{
			Client: doerFunc(func(*http.Request) (*http.Response, error) {
				return nil, errors.New("no route to host")
			}),
		})

		assert.False(t, p.IsConnected(context.Background()))
	})

	t.Run("live server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != defaultStatusPage {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"blockID":"0000000002b5b4d6","block_header":{"raw_data":{"number":45462742}}}`))
		}))
		defer server.Close()

		p := newTestProvider(t, server.URL+"/", Config{})
		defer p.Close()

		assert.True(t, p.IsConnected(context.Background()))
	})
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests []observability.RequestLabels
}

func (m *recordingMetrics) RecordRequest(_ context.Context, labels observability.RequestLabels) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, labels)
}

func (m *recordingMetrics) RecordLatency(context.Context, time.Duration, observability.RequestLabels) {}

func TestProvider_RecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	status := http.StatusOK
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/down" {
			return nil, errors.New("connection reset")
		}
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	})

	p := newTestProvider(t, "http://node.example", Config{Client: client, Metrics: metrics, Name: "full_node"})

	_, _ = p.Request(context.Background(), http.MethodGet, "/wallet/getnowblock", nil, nil)
	status = http.StatusNotFound
	_, _ = p.Request(context.Background(), http.MethodPost, "/wallet/getblock", nil, nil)
	_, _ = p.Request(context.Background(), http.MethodGet, "/down", nil, nil)

	require.Len(t, metrics.requests, 3)
	assert.Equal(t, observability.RequestLabels{Node: "full_node", Method: "GET", Outcome: observability.OutcomeSuccess}, metrics.requests[0])
	assert.Equal(t, observability.RequestLabels{Node: "full_node", Method: "POST", Outcome: string(providers.KindNotFound)}, metrics.requests[1])
	assert.Equal(t, observability.OutcomeUnreachable, metrics.requests[2].Outcome)
}

func TestProvider_ConcurrentRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL, Config{})
	defer p.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/wallet/getblockbynum/%d", i)
			data, err := p.Request(context.Background(), http.MethodGet, path, nil, nil)
			if err != nil {
				errs <- err
				return
			}
			if got := data.(map[string]any)["path"]; got != path {
				errs <- fmt.Errorf("got %v, want %s", got, path)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

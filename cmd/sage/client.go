package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/samber/do"

	"github.com/kalambet/sage/internal/api"
	"github.com/kalambet/sage/internal/config"
	"github.com/kalambet/sage/internal/dialogue"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	close      func()
}

// newAPIClient returns a client for the running server with --remote, and
// otherwise one that serves every request in-process from the local corpora.
var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if remote {
		return &apiClient{
			baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
			token:      cfg.Server.APIToken,
			httpClient: &http.Client{Timeout: 30 * time.Second},
			close:      func() {},
		}, nil
	}

	di := newInjector(cfg)
	e, err := do.Invoke[*dialogue.Engine](di)
	if err != nil {
		di.Shutdown()
		return nil, err
	}
	return newLocalClient(api.NewHandler(e, ""), func() { di.Shutdown() }), nil
}

func newLocalClient(h http.Handler, closeFn func()) *apiClient {
	return &apiClient{
		baseURL:    "http://sage.local",
		httpClient: &http.Client{Transport: handlerTransport{h}},
		close:      closeFn,
	}
}

// handlerTransport answers requests by calling an http.Handler directly.
type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, req)
	return rec.Result(), nil
}

func (c *apiClient) Close() {
	if c.close != nil {
		c.close()
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is sage serve running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

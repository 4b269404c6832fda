// Package rpc reaches the managed Postgres backend through its REST gateway:
// remote procedures under /rest/v1/rpc and table reads under /rest/v1.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client is a Backend over the REST gateway. Calls are never retried.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	log     zerolog.Logger
}

// New returns a Client for baseURL authenticated with the service key.
func New(baseURL, serviceKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     serviceKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// gatewayError is the error body of the gateway.
type gatewayError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	prefer string
}

// procedure calls the named remote procedure with params and decodes the
// result into out when out is non-nil.
func (c *Client) procedure(ctx context.Context, name string, params map[string]any, out any) error {
	return c.do(ctx, request{op: name, method: http.MethodPost, path: "/rest/v1/rpc/" + name, body: params}, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return &domain.RemoteError{Op: r.op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return &domain.RemoteError{Op: r.op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RemoteError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.RemoteError{Op: r.op, Err: fmt.Errorf("read response: %w", err)}
	}
	c.log.Debug().
		Str("op", r.op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode >= http.StatusMultipleChoices {
		return classify(r.op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.RemoteError{Op: r.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// classify turns a failed response into a domain error. Business-rule
// rejections are recognized by their message; everything else is a
// RemoteError.
func classify(op string, status int, body []byte) error {
	var ge gatewayError
	if err := json.Unmarshal(body, &ge); err != nil || ge.Message == "" {
		ge.Message = strings.TrimSpace(string(body))
	}

	if err := domain.ClassifyRemoteMessage(ge.Message + " " + ge.Details); err != nil {
		return err
	}
	if ge.Code == "23505" && strings.Contains(ge.Message+ge.Details, "username") {
		return domain.NewConflict(domain.ConflictUsernameTaken)
	}
	return &domain.RemoteError{Op: op, Err: fmt.Errorf("status %d: %s", status, ge.Message)}
}

// Package httpranker talks to a ranking service that accepts a
// ranking.Request as JSON and answers with a ranking.Response.
package httpranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/vanityserve/vanityserve/pkg/ranking"
)

// Options configure the client.
type Options struct {
	Endpoint string
	// APIKeyEnv names an environment variable holding a bearer token.
	APIKeyEnv string
	// APIKey is used when APIKeyEnv is empty or unset.
	APIKey string
	// Timeout bounds the whole HTTP exchange. Callers still pass a deadline
	// through ctx; this only protects against a missing one.
	Timeout      time.Duration
	ExtraHeaders map[string]string
}

// Client is a ranking.Collaborator over HTTP.
type Client struct {
	url     string
	apiKey  string
	headers map[string]string
	do      func(*http.Request) (*http.Response, error)
}

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	url := strings.TrimSpace(opts.Endpoint)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("httpranker: endpoint %q must be an http(s) URL", opts.Endpoint)
	}
	key := opts.APIKey
	if opts.APIKeyEnv != "" {
		if v := os.Getenv(opts.APIKeyEnv); v != "" {
			key = v
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: opts.Timeout}
	return &Client{url: url, apiKey: key, headers: opts.ExtraHeaders, do: hc.Do}, nil
}

// upstreamError maps 5xx and 408 responses to net.Error so Classify reports
// them as transport failures.
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string   { return fmt.Sprintf("ranking upstream %d: %s", e.status, e.msg) }
func (e upstreamError) Timeout() bool   { return e.status == http.StatusRequestTimeout }
func (e upstreamError) Temporary() bool { return e.status/100 == 5 }

// Rank implements ranking.Collaborator.
func (c *Client) Rank(ctx context.Context, r ranking.Request) (ranking.Response, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return ranking.Response{}, fmt.Errorf("encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return ranking.Response{}, fmt.Errorf("%w: new request: %v", ranking.ErrTransport, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		if k != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ranking.Response{}, ctx.Err()
		}
		return ranking.Response{}, fmt.Errorf("%w: %w", ranking.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ranking.Response{}, ranking.ErrRateLimited
	}
	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(slurp))
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode/100 == 5 {
			return ranking.Response{}, upstreamError{status: resp.StatusCode, msg: msg}
		}
		return ranking.Response{}, fmt.Errorf("%w: status %d: %s", ranking.ErrTransport, resp.StatusCode, msg)
	}

	var out ranking.Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return ranking.Response{}, fmt.Errorf("%w: decode: %v", ranking.ErrMalformed, err)
	}
	return out, nil
}

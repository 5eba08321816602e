// Package restdoc implements the document and blob store contracts
// against a remote HTTP backend speaking a small JSON API. The client
// handles Bearer token authentication and retries rate-limited calls
// with exponential backoff.
package restdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is a thin HTTP client for the backend REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a new backend HTTP client. The baseURL should be
// the root URL of the service; token is used for Bearer authentication.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

// post performs an HTTP POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// patch performs an HTTP PATCH request with a JSON body.
func (c *Client) patch(ctx context.Context, path string, body, result any) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, result)
}

// del performs an HTTP DELETE request.
func (c *Client) del(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// doJSON is the core method for JSON endpoints: it builds the request,
// handles auth and rate limiting, and (de)serializes JSON.
func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	return c.do(ctx, method, path, payload, "application/json", func(data []byte) error {
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
		return nil
	})
}

// do executes a request with retry on HTTP 429. The raw response body
// is handed to decode on success.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, decode func([]byte) error) error {
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("building request %s %s: %w", method, path, err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading response of %s %s: %w", method, path, err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%s %s: rate limited", method, path)
			if attempt == c.maxRetries {
				return lastErr
			}
			select {
			case <-time.After(backoffDelay(resp, attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue

		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return fmt.Errorf("%s %s: unexpected status %d: %s",
				method, path, resp.StatusCode, strings.TrimSpace(string(data)))

		default:
			if decode == nil {
				return nil
			}
			return decode(data)
		}
	}

	return lastErr
}

// backoffDelay computes the wait before a retry, honoring a Retry-After
// header when present and falling back to exponential backoff.
func backoffDelay(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}

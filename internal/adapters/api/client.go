// Package api talks to the healthcare REST backend.
package api

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

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

const maxResponseBytes = 1 << 20

const defaultRequestTimeout = 15 * time.Second

// Credentials binds a client to one backend and one session token.
type Credentials struct {
	BaseURL string
	Token   string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds every request that has no deadline of its own.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

func New(creds Credentials, opts ...Option) (*Client, error) {
	baseURL, err := parseBaseURL(creds.BaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(creds.Token),
		httpClient: http.DefaultClient,
		timeout:    defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// GetFetcher builds a cache fetcher for a GET endpoint whose payload P is converted to T.
func GetFetcher[P, T any](c *Client, path string, query url.Values, convert func(P) T) cache.Fetcher[T] {
	return func(ctx context.Context) (T, error) {
		var payload P
		if err := c.Get(ctx, path, query, &payload); err != nil {
			var zero T
			return zero, err
		}
		return convert(payload), nil
	}
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	op := method + " " + path
	endpoint := c.endpoint(path, query)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &domain.HTTPError{Status: resp.StatusCode, Message: extractError(raw)}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &domain.ParseError{Err: errors.New("empty response body")}
	}
	if out == nil {
		if !json.Valid(trimmed) {
			return &domain.ParseError{Err: errors.New("response is not valid JSON")}
		}
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &domain.ParseError{Err: err}
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("api base url is required")
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed, nil
}

// extractError pulls a readable message out of an error body. DRF answers with
// {"error": ...}, {"detail": ...} or a map of field errors.
func extractError(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	var envelope struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		switch {
		case envelope.Error != "":
			return envelope.Error
		case envelope.Detail != "":
			return envelope.Detail
		case envelope.Message != "":
			return envelope.Message
		}
	}

	var fields map[string][]string
	if err := json.Unmarshal(trimmed, &fields); err == nil && len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, name := range sortedKeys(fields) {
			parts = append(parts, name+": "+strings.Join(fields[name], " "))
		}
		return strings.Join(parts, "; ")
	}

	message := string(trimmed)
	if len(message) > 200 {
		message = message[:200] + "..."
	}
	return message
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token attached to every request.
// Invalidate is called when the backend answers 401, so a stale token is
// dropped instead of being retried forever.
type TokenSource interface {
	Token() (string, bool)
	Invalidate()
}

// Envelope is the backend's uniform JSON response shape.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
	}
}

// WithTimeout overrides the default 10s request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.http.Timeout = d
	return c
}

type requestOptions struct {
	idempotencyKey string
}

type RequestOption func(*requestOptions)

// WithIdempotencyKey attaches an idempotency key header, used by checkout so
// a retried submit cannot create the orders twice.
func WithIdempotencyKey(key string) RequestOption {
	return func(o *requestOptions) { o.idempotencyKey = key }
}

func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Envelope, error) {
	var options requestOptions
	for _, opt := range opts {
		opt(&options)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if options.idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", options.idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
		return nil, ErrUnauthorized
	}

	var env Envelope
	if errUnmarshal := json.Unmarshal(raw, &env); errUnmarshal != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, errUnmarshal)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	return &env, nil
}

// Get issues a GET and decodes the envelope's data field into T.
func Get[T any](ctx context.Context, c *Client, path string) (T, error) {
	return decode[T](c.Do(ctx, http.MethodGet, path, nil))
}

func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (T, error) {
	return decode[T](c.Do(ctx, http.MethodPost, path, body, opts...))
}

func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return decode[T](c.Do(ctx, http.MethodPut, path, body))
}

func Delete(ctx context.Context, c *Client, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil)
	return err
}

func decode[T any](env *Envelope, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if errUnmarshal := json.Unmarshal(env.Data, &out); errUnmarshal != nil {
		return out, fmt.Errorf("decode response data: %w", errUnmarshal)
	}
	return out, nil
}

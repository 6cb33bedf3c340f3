package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	mu          sync.Mutex
	token       string
	invalidated bool
}

func (s *staticTokens) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *staticTokens) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.invalidated = true
}

func (s *staticTokens) wasInvalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

func TestGet_DecodesEnvelopeData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"OK","data":{"total":42},"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok-1"})
	out, err := Get[struct {
		Total int `json:"total"`
	}](context.Background(), client, "/cart/total")
	require.NoError(t, err)
	assert.Equal(t, 42, out.Total)
}

func TestDo_UnauthorizedInvalidatesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"token expired"}`))
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "stale"}
	client := NewClient(srv.URL, tokens)

	_, err := Get[struct{}](context.Background(), client, "/cart")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, tokens.wasInvalidated())

	_, hasToken := tokens.Token()
	assert.False(t, hasToken)
}

func TestDo_ServerRejectionSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"message":"stock changed for product \"Ao thun\""}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	_, err := Post[struct{}](context.Background(), client, "/cart/checkout", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, `stock changed for product "Ao thun"`, apiErr.Message)
}

func TestDo_EnvelopeFailureWithoutHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"cart is empty"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	_, err := Get[struct{}](context.Background(), client, "/cart/selected")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "cart is empty", apiErr.Message)
}

func TestDo_NetworkErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	_, err := Get[struct{}](context.Background(), client, "/cart")

	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestDo_IdempotencyKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		w.Write([]byte(`{"success":true,"message":"OK","data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok"})
	_, err := Post[[]struct{}](context.Background(), client, "/cart/checkout", map[string]any{}, WithIdempotencyKey("key-123"))
	require.NoError(t, err)
	assert.Equal(t, "key-123", gotKey)
}

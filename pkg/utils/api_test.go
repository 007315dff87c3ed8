package utils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/manga/status", r.URL.Path)
		assert.Equal(t, "reading", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer session-1", r.Header.Get("Authorization"))
		assert.Equal(t, "mdhold-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"ok","statuses":{"a":"reading"}}`))
	}))
	defer server.Close()

	api := NewAPI(server.URL+"/", WithUserAgent("mdhold-test"))

	var out struct {
		Result   string            `json:"result"`
		Statuses map[string]string `json:"statuses"`
	}
	err := api.Get(context.Background(), "/manga/status", url.Values{"status": {"reading"}}, "session-1", &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Result)
	assert.Equal(t, map[string]string{"a": "reading"}, out.Statuses)
}

func TestAPI_PostSendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "on_hold", body["status"])

		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer server.Close()

	api := NewAPI(server.URL)
	err := api.Post(context.Background(), "/manga/x/status", map[string]string{"status": "on_hold"}, "", nil)
	assert.NoError(t, err)
}

func TestAPI_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"result":"error","errors":[{"id":"e1","status":` +
					strconv.Itoa(tt.status) + `,"title":"nope","detail":"really nope"}]}`))
			}))
			defer server.Close()

			err := NewAPI(server.URL).Delete(context.Background(), "/manga/x/follow", "tok", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			require.Len(t, apiErr.Errors, 1)
			assert.Equal(t, "nope", apiErr.Errors[0].Title)
			assert.Contains(t, err.Error(), "really nope")
			assert.Contains(t, err.Error(), "DELETE /manga/x/follow")
		})
	}
}

func TestAPI_ErrorWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	err := NewAPI(server.URL).Get(context.Background(), "/user/list", nil, "tok", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Errors)
}

func TestAPI_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":`))
	}))
	defer server.Close()

	var out map[string]any
	err := NewAPI(server.URL).Get(context.Background(), "/manga/status", nil, "tok", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestAPI_RetriesOnTooManyRequests(t *testing.T) {
	old := defaultRetryDelay
	defaultRetryDelay = 5 * time.Millisecond
	defer func() { defaultRetryDelay = old }()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"status":"on_hold"}`, string(body), "body must be resent on every attempt")

		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	api := NewAPI(server.URL, WithLimiter(limiter))
	err := api.Post(context.Background(), "/manga/x/status", map[string]string{"status": "on_hold"}, "tok", nil)

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, limiter.waits, "every attempt passes the limiter")
}

func TestAPI_GivesUpAfterMaxRetries(t *testing.T) {
	old := defaultRetryDelay
	defaultRetryDelay = time.Millisecond
	defer func() { defaultRetryDelay = old }()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewAPI(server.URL, WithMaxRetries(2)).Get(context.Background(), "/manga/status", nil, "tok", nil)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAPI_NoRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewAPI(server.URL).Get(context.Background(), "/manga/status", nil, "tok", nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAPI_LimiterErrorStopsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewAPI(server.URL).Get(ctx, "/manga/status", nil, "tok", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryDelay(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	h := http.Header{}
	h.Set("X-RateLimit-Retry-After", strconv.FormatInt(now.Unix()+4, 10))
	assert.Equal(t, 4*time.Second, retryDelay(h, now))

	h = http.Header{}
	h.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, retryDelay(h, now))

	h = http.Header{}
	h.Set("Retry-After", "3600")
	assert.Equal(t, maxRetryDelay, retryDelay(h, now))

	assert.Equal(t, defaultRetryDelay, retryDelay(http.Header{}, now))
}

type countingLimiter struct {
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}

package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kerbaras/mdhold/pkg/logger"
	"github.com/kerbaras/mdhold/pkg/ratelimit"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	maxRetryDelay     = time.Minute
)

// defaultRetryDelay is used when a 429 carries no usable retry header.
var defaultRetryDelay = time.Second

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// ErrorDetail is one entry of the MangaDex error envelope.
type ErrorDetail struct {
	ID      string `json:"id"`
	Status  int    `json:"status"`
	Title   string `json:"title"`
	Detail  string `json:"detail"`
	Context any    `json:"context,omitempty"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Errors     []ErrorDetail
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	for _, d := range e.Errors {
		b.WriteString(": ")
		b.WriteString(d.Title)
		if d.Detail != "" {
			b.WriteString(" (")
			b.WriteString(d.Detail)
			b.WriteString(")")
		}
	}
	return b.String()
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

type API struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	limiter    ratelimit.Limiter
	maxRetries int
}

type Option func(*API)

func WithLimiter(l ratelimit.Limiter) Option {
	return func(a *API) { a.limiter = l }
}

func WithUserAgent(ua string) Option {
	return func(a *API) { a.userAgent = ua }
}

// WithMaxRetries sets how many times a 429 response is retried.
func WithMaxRetries(n int) Option {
	return func(a *API) { a.maxRetries = n }
}

func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		client:     &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    ratelimit.Unlimited{},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) Get(ctx context.Context, path string, params url.Values, token string, v any) error {
	return a.Do(ctx, http.MethodGet, path, params, nil, token, v)
}

func (a *API) Post(ctx context.Context, path string, body any, token string, v any) error {
	return a.Do(ctx, http.MethodPost, path, nil, body, token, v)
}

func (a *API) Delete(ctx context.Context, path string, token string, v any) error {
	return a.Do(ctx, http.MethodDelete, path, nil, nil, token, v)
}

// Do sends one logical request. Every attempt waits on the limiter first.
// A 429 response is retried after the delay the server asks for; any other
// non-2xx response becomes an *APIError.
func (a *API) Do(ctx context.Context, method, path string, params url.Values, body any, token string, v any) error {
	fullURL := a.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		retryAfter, err := a.send(ctx, method, fullURL, path, payload, token, v)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt >= a.maxRetries {
			return err
		}

		logger.Log.Warnw("rate limited by server, retrying",
			"path", path, "attempt", attempt+1, "delay", retryAfter)
		if err := sleep(ctx, retryAfter); err != nil {
			return err
		}
	}
}

func (a *API) send(ctx context.Context, method, fullURL, path string, payload []byte, token string, v any) (time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.Log.Debugw("api request", "method", method, "path", path)

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}
		var envelope struct {
			Errors []ErrorDetail `json:"errors"`
		}
		if raw, _ := io.ReadAll(resp.Body); len(raw) > 0 {
			if json.Unmarshal(raw, &envelope) == nil {
				apiErr.Errors = envelope.Errors
			}
		}
		return retryDelay(resp.Header, time.Now()), apiErr
	}

	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return 0, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return 0, nil
}

// retryDelay reads MangaDex's X-RateLimit-Retry-After (unix seconds) or a
// standard Retry-After (seconds).
func retryDelay(h http.Header, now time.Time) time.Duration {
	delay := defaultRetryDelay
	if v := h.Get("X-RateLimit-Retry-After"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(ts, 0).Sub(now); d > 0 {
				delay = d
			}
		}
	} else if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			delay = time.Duration(secs) * time.Second
		}
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

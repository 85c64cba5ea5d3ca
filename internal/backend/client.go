package backend

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

	"golang.org/x/time/rate"

	"targetscope/internal/config"
	"targetscope/internal/metrics"
	"targetscope/internal/model"
)

// ErrUnavailable means the backend could not be reached after all attempts.
var ErrUnavailable = errors.New("backend unavailable")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code     int
	Endpoint string
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.Code)
}

// Client talks to the backend that owns targets, quota and scheduling.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewClient(cfg config.BackendConfig) *Client {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = getEnvInt("TARGETSCOPE_API_MAX_ATTEMPTS", 5)
	}
	backoff := cfg.BaseBackoffMS
	if backoff <= 0 {
		backoff = getEnvInt("TARGETSCOPE_API_BASE_BACKOFF_MS", 500)
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newLimiter(cfg.RPS, cfg.Burst),
		maxAttempts: attempts,
		baseBackoff: time.Duration(backoff) * time.Millisecond,
	}
}

// envelope is the backend's response wrapper.
type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) ListTargets(ctx context.Context) ([]model.Target, error) {
	var out []model.Target
	if err := c.call(ctx, http.MethodGet, "/api/twitter/targets", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetQuotaSnapshot(ctx context.Context) (model.CapacitySnapshot, error) {
	var out model.CapacitySnapshot
	err := c.call(ctx, http.MethodGet, "/api/twitter/quota", nil, true, &out)
	return out, err
}

// CreateTarget is not idempotent; it is only retried when rate limited.
func (c *Client) CreateTarget(ctx context.Context, t model.Target) (model.Target, error) {
	var out model.Target
	err := c.call(ctx, http.MethodPost, "/api/twitter/targets", t.Draft(), false, &out)
	return out, err
}

func (c *Client) UpdateTarget(ctx context.Context, id string, e model.Edit) (model.Target, error) {
	var out model.Target
	err := c.call(ctx, http.MethodPut, "/api/twitter/targets/"+url.PathEscape(id), e, true, &out)
	return out, err
}

func (c *Client) DeleteTarget(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/twitter/targets/"+url.PathEscape(id), nil, true, nil)
}

func (c *Client) ToggleTarget(ctx context.Context, id string) (model.Target, error) {
	var out model.Target
	err := c.call(ctx, http.MethodPost, "/api/twitter/targets/"+url.PathEscape(id)+"/toggle", nil, true, &out)
	return out, err
}

// CommitSchedule asks the backend to materialize a scheduling cycle.
func (c *Client) CommitSchedule(ctx context.Context) (model.CommitResult, error) {
	var out model.CommitResult
	err := c.call(ctx, http.MethodPost, "/api/twitter/scheduler/commit", nil, false, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, method, path string, in any, idempotent bool, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, path, idempotent, func() (*http.Request, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
		if err != nil {
			return nil, err
		}
		c.auth(req)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode, Endpoint: path, Message: env.Error}
	}
	if decErr != nil && !errors.Is(decErr, io.EOF) {
		return fmt.Errorf("backend %s: decode: %w", path, decErr)
	}
	if decErr == nil && !env.OK {
		return &StatusError{Code: resp.StatusCode, Endpoint: path, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("backend %s: %w", path, err)
	}
	return nil
}

func (c *Client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}

// doWithRetry retries 429 and 5xx answers honoring Retry-After, and
// transport errors with exponential backoff. Non-idempotent calls are only
// retried on 429, where the backend has not acted on the request.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, idempotent bool, build func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(endpoint)
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests ||
				(idempotent && resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			if err := sleep(ctx, jitter(wait)); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !idempotent {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, lastErr)
}

func retryAfter(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return def
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(time.Now().UnixNano()%int64(2*j))
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

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/vault-tracker/internal/metrics"
)

const (
	defaultUpstreamTimeout = 10 * time.Second
	maxUpstreamBodyBytes   = 4 << 20
)

// Sentinel errors for catalog API operations
var (
	ErrNotFound      = errors.New("upstream: not found")
	ErrRateLimited   = errors.New("upstream: rate limited")
	ErrAPIStatus     = errors.New("upstream: unsuccessful api status")
	ErrNotConfigured = errors.New("upstream: not configured")
)

// ErrorClass is the coarse classification of an upstream failure, used as a metrics label
type ErrorClass string

const (
	ErrorClassTimeout       ErrorClass = "timeout"
	ErrorClassNetwork       ErrorClass = "network"
	ErrorClassRateLimited   ErrorClass = "rate_limited"
	ErrorClassNotFound      ErrorClass = "not_found"
	ErrorClassClientError   ErrorClass = "client_error"
	ErrorClassServerError   ErrorClass = "server_error"
	ErrorClassAPIStatus     ErrorClass = "api_status"
	ErrorClassParse         ErrorClass = "parse"
	ErrorClassNotConfigured ErrorClass = "not_configured"
)

// StatusError is returned for any non-2xx HTTP response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ParseError wraps a response body that could not be decoded
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "decode response: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// UpstreamError wraps a classified failure with operation context
type UpstreamError struct {
	Source     string // "rebrickable", "brickset", "bricklink"
	Op         string // "getSet", "getSets", "priceGuide new", "catalogItem"
	Class      ErrorClass
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s [%s, status %d]: %v", e.Source, e.Op, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s [%s]: %v", e.Source, e.Op, e.Class, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// newUpstreamError classifies err and attaches operation context
func newUpstreamError(source, op string, err error) *UpstreamError {
	ue := &UpstreamError{
		Source: source,
		Op:     op,
		Class:  classifyError(err),
		Err:    err,
	}
	var se *StatusError
	if errors.As(err, &se) {
		ue.StatusCode = se.Code
	}
	return ue
}

// classifyError maps an error from the upstream layer onto an ErrorClass
func classifyError(err error) ErrorClass {
	if err == nil {
		return ""
	}

	var se *StatusError
	var pe *ParseError
	var netErr net.Error

	switch {
	case errors.Is(err, ErrNotConfigured):
		return ErrorClassNotConfigured
	case errors.Is(err, ErrRateLimited):
		return ErrorClassRateLimited
	case errors.Is(err, ErrNotFound):
		return ErrorClassNotFound
	case errors.Is(err, ErrAPIStatus):
		return ErrorClassAPIStatus
	case errors.As(err, &se):
		if se.Code >= 500 {
			return ErrorClassServerError
		}
		return ErrorClassClientError
	case errors.As(err, &pe):
		return ErrorClassParse
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorClassTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorClassTimeout
	default:
		return ErrorClassNetwork
	}
}

// reportUpstreamFailure logs and counts a failure that is being degraded to "absent"
func reportUpstreamFailure(source, op string, err error) *UpstreamError {
	ue := newUpstreamError(source, op, err)
	metrics.UpstreamErrorsTotal.WithLabelValues(ue.Source, string(ue.Class)).Inc()
	log.Printf("Upstream: %s %s failed: class=%s status=%d err=%v", ue.Source, ue.Op, ue.Class, ue.StatusCode, ue.Err)
	return ue
}

// upstream is the shared HTTP plumbing for one catalog API:
// per-call timeout, outbound rate limiting, status mapping and JSON decoding.
type upstream struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

func newUpstream(name string, timeout time.Duration, rps float64, burst int) *upstream {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	return &upstream{
		name: name,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		timeout: timeout,
	}
}

// getJSON performs a GET against reqURL and decodes a 200 response into out.
func (u *upstream) getJSON(ctx context.Context, reqURL string, header http.Header, out any) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if err := u.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", withoutURL(err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := u.client.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(u.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(u.name, "error").Inc()
		return fmt.Errorf("request failed: %w", withoutURL(err))
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues(u.name, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, &StatusError{Code: resp.StatusCode})
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, &StatusError{Code: resp.StatusCode})
	default:
		return &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// withoutURL drops the request URL from transport errors. Query strings can carry
// API keys (Brickset) and these errors end up in the logs.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// looseInt decodes a JSON number, numeric string, or null. Anything else decodes to 0.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	*n = 0
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		var s string
		if json.Unmarshal(data, &s) != nil {
			return nil
		}
		num = json.Number(s)
	}
	if i, err := strconv.Atoi(string(num)); err == nil {
		*n = looseInt(i)
		return nil
	}
	if f, err := num.Float64(); err == nil {
		*n = looseInt(int(f))
	}
	return nil
}

// looseFloat decodes a JSON number, numeric string, or null. Anything else decodes to 0.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		var s string
		if json.Unmarshal(data, &s) != nil {
			return nil
		}
		num = json.Number(s)
	}
	if v, err := num.Float64(); err == nil {
		*f = looseFloat(v)
	}
	return nil
}

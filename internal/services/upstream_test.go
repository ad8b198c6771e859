package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ""},
		{"not configured", ErrNotConfigured, ErrorClassNotConfigured},
		{"rate limited", fmt.Errorf("%w: quota", ErrRateLimited), ErrorClassRateLimited},
		{"not found", fmt.Errorf("%w: %w", ErrNotFound, &StatusError{Code: 404}), ErrorClassNotFound},
		{"api status", fmt.Errorf("%w: meta code 400", ErrAPIStatus), ErrorClassAPIStatus},
		{"4xx", &StatusError{Code: 403}, ErrorClassClientError},
		{"5xx", fmt.Errorf("wrapped: %w", &StatusError{Code: 503}), ErrorClassServerError},
		{"parse", &ParseError{Err: errors.New("unexpected EOF")}, ErrorClassParse},
		{"deadline", fmt.Errorf("request failed: %w", context.DeadlineExceeded), ErrorClassTimeout},
		{"other", errors.New("connection reset by peer"), ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyError(tt.err))
		})
	}
}

func TestUpstreamError(t *testing.T) {
	ue := newUpstreamError("brickset", "getSets", fmt.Errorf("wrapped: %w", &StatusError{Code: 502, Body: "bad gateway"}))
	assert.Equal(t, ErrorClassServerError, ue.Class)
	assert.Equal(t, 502, ue.StatusCode)
	assert.Equal(t, "brickset getSets [server_error, status 502]: wrapped: unexpected status 502: bad gateway", ue.Error())

	var se *StatusError
	assert.True(t, errors.As(ue, &se))

	ue = reportUpstreamFailure("rebrickable", "getSet", ErrNotConfigured)
	assert.Equal(t, "rebrickable getSet [not_configured]: upstream: not configured", ue.Error())
	assert.ErrorIs(t, ue, ErrNotConfigured)
}

func TestLooseInt(t *testing.T) {
	tests := []struct {
		input    string
		expected looseInt
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`42.9`, 42},
		{`"n/a"`, 0},
		{`null`, 0},
		{`""`, 0},
		{`true`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var v struct {
				N looseInt `json:"n"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"n":`+tt.input+`}`), &v))
			assert.Equal(t, tt.expected, v.N)
		})
	}
}

func TestLooseFloat(t *testing.T) {
	tests := []struct {
		input    string
		expected looseFloat
	}{
		{`19.99`, 19.99},
		{`"812.5300"`, 812.53},
		{`0`, 0},
		{`null`, 0},
		{`"free"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var v struct {
				F looseFloat `json:"f"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"f":`+tt.input+`}`), &v))
			assert.Equal(t, tt.expected, v.F)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

func TestGetJSONErrorOmitsRequestURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := server.URL
	server.Close()

	u := newUpstream("brickset", time.Second, 100, 1)
	var out map[string]any
	err := u.getJSON(context.Background(), closedURL+"/getSets?apiKey=secret-key", nil, &out)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.Equal(t, ErrorClassNetwork, classifyError(err))

	var urlErr *url.Error
	assert.False(t, errors.As(err, &urlErr))
}

func TestWithoutURLKeepsTimeoutClass(t *testing.T) {
	err := withoutURL(&url.Error{Op: "Get", URL: "https://example.com/?apiKey=secret", Err: context.DeadlineExceeded})
	assert.NotContains(t, err.Error(), "secret")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrorClassTimeout, classifyError(err))

	plain := errors.New("boom")
	assert.Equal(t, plain, withoutURL(plain))
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		w.Write([]byte(`{"echo":"` + in["prompt"] + `"}`))
	}))
	defer srv.Close()

	var out struct {
		Echo string `json:"echo"`
	}
	header := http.Header{"X-Api-Key": []string{"secret"}}
	err := DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, header, map[string]string{"prompt": "hi"}, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Echo)
}

func TestDoJSON_NoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, nil, nil))
}

func TestDoJSON_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		parse  ErrorParser
		want   string
	}{
		{"parsed", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`,
			func(b []byte) string { return "Rate limit reached" }, "Rate limit reached"},
		{"parser declines", http.StatusBadGateway, "upstream down\n",
			func(b []byte) string { return "" }, "upstream down"},
		{"empty body", http.StatusServiceUnavailable, "", nil, "503 Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, nil, tt.parse)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestDoJSON_BadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, &out, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal response")
}

func TestDoJSON_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DoJSON(ctx, http.DefaultClient, http.MethodGet, "http://127.0.0.1:1", nil, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		case "/echo":
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
			w.Write(body)
		case "/broken":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{`))
		default:
			http.Error(w, "nope", http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		ep      endpoint
		wantErr string
	}{
		{"passes", endpoint{path: "/ok", method: "GET", contentType: "application/json", contains: []string{`"ok"`}}, ""},
		{"missing content", endpoint{path: "/ok", method: "GET", contentType: "application/json", contains: []string{"nope"}}, "missing expected content"},
		{"wrong content type", endpoint{path: "/ok", method: "GET", contentType: "text/html"}, "wrong content type"},
		{"invalid json", endpoint{path: "/broken", method: "GET", contentType: "application/json"}, "invalid JSON"},
		{"unexpected status", endpoint{path: "/private", method: "GET", contentType: "text/plain"}, "status 401"},
		{"expected status", endpoint{path: "/private", method: "GET", status: http.StatusUnauthorized, contentType: "text/plain"}, ""},
		{"form body", endpoint{path: "/echo", method: "POST", body: "a=1", contentType: "application/x-www-form-urlencoded", contains: []string{"a=1"}}, ""},
		{"json body", endpoint{path: "/echo", method: "POST", body: `{"a":1}`, contentType: "application/json"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validateEndpoint(srv.Client(), srv.URL, tt.ep)
			if tt.wantErr == "" {
				assert.NoError(t, r.err)
				return
			}
			require.Error(t, r.err)
			assert.Contains(t, r.err.Error(), tt.wantErr)
		})
	}
}

func TestRunCountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var out bytes.Buffer
	failed := run(&out, srv.Client(), srv.URL, false)
	assert.Equal(t, len(endpoints), failed)
	assert.Contains(t, out.String(), "0 passed")
}

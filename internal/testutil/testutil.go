// Package testutil provides end-to-end test helpers for the server.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"realestate/internal/config"
)

// TestServer wraps httptest.Server with convenience methods. Token, when
// set, is sent as a bearer token on every request.
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	Token   string
	t       *testing.T
}

// ProjectRoot returns the root directory of the project.
// It works by finding the go.mod file.
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller info")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TestEnv returns REALESTATE_* settings for an isolated server rooted at dataDir
func TestEnv(dataDir string) map[string]string {
	return map[string]string{
		"REALESTATE_CONFIG":             "",
		"REALESTATE_DATA_DIR":           dataDir,
		"REALESTATE_DEBUG":              "true",
		"REALESTATE_LISTEN_ADDR":        ":0",
		"REALESTATE_STORE_BACKEND":      config.BackendFile,
		"REALESTATE_STORE_PASSWORD":     "",
		"REALESTATE_REDIS_ADDR":         "",
		"REALESTATE_JWT_SECRET":         "test-secret",
		"REALESTATE_LOG_LEVEL":          "warn",
		"REALESTATE_PREDICT_RATE_LIMIT": "100",
	}
}

// TestConfig loads configuration from TestEnv over a fresh temp directory
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	for k, v := range TestEnv(t.TempDir()) {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load test config: %v", err)
	}
	return cfg
}

// NewTestServer creates a new test server using the application's router
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		t:       t,
	}
}

// Do sends a request with the server's token
func (ts *TestServer) Do(method, path, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()

	req, err := http.NewRequest(method, ts.BaseURL+path, body)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodGet, path, "", nil)
}

// GETWithQuery performs a GET request with query parameters
func (ts *TestServer) GETWithQuery(path string, query map[string]string) *http.Response {
	ts.t.Helper()

	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	return ts.GET(path)
}

// POST performs a POST request to the given path
func (ts *TestServer) POST(path string, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodPost, path, contentType, body)
}

// POSTJSON encodes v and posts it
func (ts *TestServer) POSTJSON(path string, v any) *http.Response {
	ts.t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		ts.t.Fatalf("encoding request for %s: %v", path, err)
	}
	return ts.Do(http.MethodPost, path, "application/json", bytes.NewReader(data))
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

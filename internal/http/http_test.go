package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"), "third request in window is rejected")
	assert.True(t, rl.Allow("5.6.7.8"), "clients are limited independently")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"), "bucket refills after the window")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("1.2.3.4"))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/predict", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Price float64 `json:"price"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"price": 100}`, false},
		{"empty", ``, true},
		{"unknown field", `{"price": 1, "bogus": true}`, true},
		{"malformed", `{"price":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 100.0, p.Price)
		})
	}
}

func TestParseFormValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/calculator?price=350000&term=abc", nil)

	price, err := ParseFormFloat(req, "price", 0)
	require.NoError(t, err)
	assert.Equal(t, 350000.0, price)

	rate, err := ParseFormFloat(req, "rate", 6.5)
	require.NoError(t, err)
	assert.Equal(t, 6.5, rate, "missing value yields the default")

	_, err = ParseFormInt(req, "term", 30)
	assert.Error(t, err)

	_, err = ParseRequiredFormFloat(req, "income")
	assert.EqualError(t, err, "missing required field: income")
}

func TestErrorJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorJSON(rec, "listing not found", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"listing not found"}`, rec.Body.String())
}

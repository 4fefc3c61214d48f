package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/internal/observability"
	"realestate/internal/services/estimator"
)

type fakeEstimator struct {
	calls int
	err   error
}

func (f *fakeEstimator) Estimate(ctx context.Context, features estimator.Features) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	area, _ := features["area_sqft"].(float64)
	return area*250.123 + 10000, nil
}

func setup(t *testing.T, e estimator.Estimator, perMinute int) http.Handler {
	t.Helper()
	Initialize(e, perMinute, observability.NewMetrics())
	t.Cleanup(Shutdown)

	r := chi.NewRouter()
	RegisterRoutes(r)
	return r
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPredict(t *testing.T) {
	fake := &fakeEstimator{}
	h := setup(t, fake, 100)

	rec := post(h, `{"area_sqft":1000,"bedrooms":3,"city":"Austin","pool":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 260123.0, resp.Prediction)
	assert.Equal(t, "Austin", resp.Features["city"])
	assert.Equal(t, 1, fake.calls)
}

func TestPredictValidation(t *testing.T) {
	fake := &fakeEstimator{}
	h := setup(t, fake, 100)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"empty object", `{}`},
		{"array", `[1,2]`},
		{"nested value", `{"area_sqft":{"value":1}}`},
		{"null value", `{"area_sqft":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(h, tt.body).Code)
		})
	}
	assert.Zero(t, fake.calls)
}

func TestPredictEstimatorFailure(t *testing.T) {
	h := setup(t, &fakeEstimator{err: fmt.Errorf("%w: exit status 1", estimator.ErrEstimatorFailed)}, 100)

	rec := post(h, `{"area_sqft":1000}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "estimator failed")
}

func TestPredictRateLimit(t *testing.T) {
	h := setup(t, &fakeEstimator{}, 2)

	assert.Equal(t, http.StatusOK, post(h, `{"area_sqft":1}`).Code)
	assert.Equal(t, http.StatusOK, post(h, `{"area_sqft":2}`).Code)

	rec := post(h, `{"area_sqft":3}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

package predict

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apphttp "realestate/internal/http"
	"realestate/internal/money"
	"realestate/internal/observability"
	"realestate/internal/services/estimator"
)

// maxFeatures bounds the number of model inputs per request
const maxFeatures = 64

var (
	model   estimator.Estimator
	limiter *apphttp.RateLimiter
	metrics *observability.Metrics
)

// Initialize sets up the predict package. perMinute is the number of
// predictions allowed per client IP each minute; m may be nil.
func Initialize(e estimator.Estimator, perMinute int, m *observability.Metrics) {
	model = e
	metrics = m
	if limiter != nil {
		limiter.Stop()
	}
	limiter = apphttp.NewRateLimiter(perMinute, time.Minute)
}

// Shutdown stops the rate limiter's cleanup loop
func Shutdown() {
	if limiter != nil {
		limiter.Stop()
		limiter = nil
	}
}

// RegisterRoutes registers the prediction route
func RegisterRoutes(r chi.Router) {
	r.With(apphttp.RateLimit(limiter)).Post("/api/predict", handlePredict)
}

// Response is the prediction returned to clients
type Response struct {
	Prediction float64            `json:"prediction"`
	Features   estimator.Features `json:"features"`
}

// validateFeatures accepts flat objects of numbers, strings and booleans
func validateFeatures(f estimator.Features) error {
	if len(f) == 0 {
		return fmt.Errorf("at least one feature is required")
	}
	if len(f) > maxFeatures {
		return fmt.Errorf("at most %d features are allowed", maxFeatures)
	}
	for k, v := range f {
		switch v.(type) {
		case float64, string, bool:
		default:
			return fmt.Errorf("feature %q must be a number, string or boolean", k)
		}
	}
	return nil
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	var features estimator.Features
	if err := apphttp.DecodeJSON(r, &features); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateFeatures(features); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	prediction, err := model.Estimate(r.Context(), features)
	if metrics != nil {
		metrics.ObserveEstimate(err)
	}
	if err != nil {
		if errors.Is(err, estimator.ErrEstimatorFailed) {
			apphttp.ErrorJSON(w, err.Error(), http.StatusBadGateway)
			return
		}
		apphttp.InternalError(w, "running estimator", err)
		return
	}

	apphttp.WriteJSON(w, http.StatusOK, Response{
		Prediction: money.Round(prediction),
		Features:   features,
	})
}

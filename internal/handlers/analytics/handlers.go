package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"realestate/internal/handlers/listings"
	apphttp "realestate/internal/http"
	"realestate/internal/models"
	"realestate/internal/services/docstore"
	"realestate/internal/services/metrics"
)

var (
	store docstore.Store
	svc   *metrics.Service
)

// Initialize sets up the analytics package with required dependencies
func Initialize(ds docstore.Store, m *metrics.Service) {
	store = ds
	svc = m
}

// RegisterRoutes registers all analytics routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/analytics/market", handleMarket)
	r.Get("/api/analytics/charts/{chartType}", handleChartData)
}

// loadFiltered loads listings narrowed by the city, type and status query values
func loadFiltered(r *http.Request) (*models.ListingSet, error) {
	all, err := listings.Load(r.Context(), store)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	return all.Filter(models.ListingFilter{
		City:         q.Get("city"),
		PropertyType: q.Get("type"),
		Status:       models.ListingStatus(q.Get("status")),
	}), nil
}

func handleMarket(w http.ResponseWriter, r *http.Request) {
	ls, err := loadFiltered(r)
	if err != nil {
		apphttp.InternalError(w, "loading listings", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, svc.CalculateMetrics(ls))
}

func handleChartData(w http.ResponseWriter, r *http.Request) {
	chartType := chi.URLParam(r, "chartType")

	ls, err := loadFiltered(r)
	if err != nil {
		apphttp.InternalError(w, "loading listings", err)
		return
	}

	chart, ok := svc.BuildChart(chartType, ls)
	if !ok {
		apphttp.ErrorJSON(w, "unknown chart type: "+chartType, http.StatusNotFound)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, chart)
}

// Package metrics computes market statistics over listings
package metrics

import (
	"math"
	"sort"

	"realestate/internal/models"
	"realestate/internal/money"
)

// DefaultPriceBands partition listing prices for the price chart
var DefaultPriceBands = []models.PriceBand{
	{Label: "Under $200k", Min: 0, Max: 200_000},
	{Label: "$200k-$400k", Min: 200_000, Max: 400_000},
	{Label: "$400k-$600k", Min: 400_000, Max: 600_000},
	{Label: "$600k-$1M", Min: 600_000, Max: 1_000_000},
	{Label: "$1M+", Min: 1_000_000},
}

// Service provides metric calculation functionality
type Service struct {
	bands []models.PriceBand
}

// New creates a new metrics service
func New() *Service {
	return &Service{bands: DefaultPriceBands}
}

// CalculateMetrics computes market metrics from a listing set
func (s *Service) CalculateMetrics(ls *models.ListingSet) *models.MarketMetrics {
	m := &models.MarketMetrics{
		TotalListings: ls.Len(),
		ByCity:        []models.SegmentSummary{},
		ByType:        []models.SegmentSummary{},
		PriceBands:    s.PriceBands(ls),
	}
	if ls.Len() == 0 {
		return m
	}

	var sqftTotal, paymentTotal float64
	var sqftCount, paymentCount int
	for i := range ls.Listings {
		l := &ls.Listings[i]
		switch l.Status {
		case models.StatusActive:
			m.ActiveListings++
		case models.StatusPending:
			m.PendingListings++
		case models.StatusSold:
			m.SoldListings++
		}
		if pps := l.PricePerSqft(); pps > 0 {
			sqftTotal += pps
			sqftCount++
		}
		if l.EstimatedMonthlyPayment > 0 {
			paymentTotal += l.EstimatedMonthlyPayment
			paymentCount++
		}
	}

	prices := ls.Prices()
	m.AveragePrice = money.Round(mean(prices))
	m.MedianPrice = money.Round(Median(prices))
	m.MinPrice, m.MaxPrice = minMax(prices)
	if sqftCount > 0 {
		m.AveragePricePerSqft = money.Round(sqftTotal / float64(sqftCount))
	}
	if paymentCount > 0 {
		m.AverageMonthlyPayment = money.Round(paymentTotal / float64(paymentCount))
	}

	m.ByCity = s.Segments(ls, func(l *models.Listing) string { return l.City })
	m.ByType = s.Segments(ls, func(l *models.Listing) string { return l.PropertyType })
	return m
}

// Segments summarizes listings grouped by key, largest segment first
func (s *Service) Segments(ls *models.ListingSet, key func(*models.Listing) string) []models.SegmentSummary {
	groups := ls.GroupBy(key)
	total := ls.Len()

	segments := make([]models.SegmentSummary, 0, len(groups))
	for name, group := range groups {
		segments = append(segments, models.SegmentSummary{
			Name:         name,
			Count:        group.Len(),
			AveragePrice: money.Round(mean(group.Prices())),
			Percentage:   s.Percentage(group.Len(), total),
		})
	}
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Count != segments[j].Count {
			return segments[i].Count > segments[j].Count
		}
		return segments[i].Name < segments[j].Name
	})
	return segments
}

// PriceBands counts listings per configured band
func (s *Service) PriceBands(ls *models.ListingSet) []models.PriceBand {
	bands := make([]models.PriceBand, len(s.bands))
	copy(bands, s.bands)
	for _, price := range ls.Prices() {
		for i := range bands {
			if price >= bands[i].Min && (bands[i].Max == 0 || price < bands[i].Max) {
				bands[i].Count++
				break
			}
		}
	}
	return bands
}

// Percentage returns part/whole as a percentage rounded to two places
func (s *Service) Percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

// Median returns the middle value of values, or 0 when empty
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

package metrics

import "realestate/internal/models"

// Chart types served by the analytics endpoints
const (
	ChartCity  = "city"
	ChartType  = "type"
	ChartPrice = "price"
)

// topSegments caps pie slices; the rest are folded into "Other"
const topSegments = 10

// BuildChart returns Plotly data for chartType, or false for an unknown type
func (s *Service) BuildChart(chartType string, ls *models.ListingSet) (*models.ChartResponse, bool) {
	switch chartType {
	case ChartCity:
		return s.cityChart(ls), true
	case ChartType:
		return s.typeChart(ls), true
	case ChartPrice:
		return s.priceChart(ls), true
	default:
		return nil, false
	}
}

// cityChart is a bar chart of listing count and average price per city
func (s *Service) cityChart(ls *models.ListingSet) *models.ChartResponse {
	segments := s.Segments(ls, func(l *models.Listing) string { return l.City })

	names := make([]string, len(segments))
	counts := make([]int, len(segments))
	averages := make([]float64, len(segments))
	for i, seg := range segments {
		names[i] = seg.Name
		counts[i] = seg.Count
		averages[i] = seg.AveragePrice
	}

	return &models.ChartResponse{
		Data: []models.ChartData{
			{Type: "bar", X: names, Y: counts, Name: "Listings"},
			{Type: "bar", X: names, Y: averages, Name: "Average price"},
		},
		Layout: models.ChartLayout{Title: "Listings by city", XAxisTitle: "City"},
	}
}

// typeChart is a pie chart of listing share per property type
func (s *Service) typeChart(ls *models.ListingSet) *models.ChartResponse {
	segments := s.Segments(ls, func(l *models.Listing) string { return l.PropertyType })

	var labels []string
	var values []float64
	other := 0
	for i, seg := range segments {
		if i >= topSegments {
			other += seg.Count
			continue
		}
		labels = append(labels, seg.Name)
		values = append(values, float64(seg.Count))
	}
	if other > 0 {
		labels = append(labels, "Other")
		values = append(values, float64(other))
	}

	return &models.ChartResponse{
		Data:   []models.ChartData{{Type: "pie", Labels: labels, Values: values, Name: "Property types"}},
		Layout: models.ChartLayout{Title: "Listings by property type"},
	}
}

// priceChart is a histogram over the price bands
func (s *Service) priceChart(ls *models.ListingSet) *models.ChartResponse {
	bands := s.PriceBands(ls)
	labels := make([]string, len(bands))
	counts := make([]int, len(bands))
	for i, b := range bands {
		labels[i] = b.Label
		counts[i] = b.Count
	}

	return &models.ChartResponse{
		Data:   []models.ChartData{{Type: "bar", X: labels, Y: counts, Name: "Listings"}},
		Layout: models.ChartLayout{Title: "Price distribution", XAxisTitle: "Price", YAxisTitle: "Listings"},
	}
}

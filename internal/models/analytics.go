package models

// MarketMetrics summarizes the listings on the marketplace
type MarketMetrics struct {
	TotalListings         int              `json:"total_listings"`
	ActiveListings        int              `json:"active_listings"`
	PendingListings       int              `json:"pending_listings"`
	SoldListings          int              `json:"sold_listings"`
	AveragePrice          float64          `json:"average_price"`
	MedianPrice           float64          `json:"median_price"`
	MinPrice              float64          `json:"min_price"`
	MaxPrice              float64          `json:"max_price"`
	AveragePricePerSqft   float64          `json:"average_price_per_sqft"`
	AverageMonthlyPayment float64          `json:"average_monthly_payment"`
	ByCity                []SegmentSummary `json:"by_city"`
	ByType                []SegmentSummary `json:"by_type"`
	PriceBands            []PriceBand      `json:"price_bands"`
}

// SegmentSummary aggregates listings sharing a city or property type
type SegmentSummary struct {
	Name         string  `json:"name"`
	Count        int     `json:"count"`
	AveragePrice float64 `json:"average_price"`
	Percentage   float64 `json:"percentage"`
}

// PriceBand counts listings within [Min, Max). Max 0 means unbounded.
type PriceBand struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// ChartData represents data for a Plotly chart
type ChartData struct {
	Type   string      `json:"type"`             // bar, pie
	X      interface{} `json:"x,omitempty"`      // x-axis values
	Y      interface{} `json:"y,omitempty"`      // y-axis values
	Labels []string    `json:"labels,omitempty"` // for pie charts
	Values []float64   `json:"values,omitempty"` // for pie charts
	Name   string      `json:"name"`
}

// ChartResponse wraps chart data with layout options
type ChartResponse struct {
	Data   []ChartData `json:"data"`
	Layout ChartLayout `json:"layout,omitempty"`
}

// ChartLayout defines Plotly layout options
type ChartLayout struct {
	Title      string `json:"title,omitempty"`
	XAxisTitle string `json:"xaxis_title,omitempty"`
	YAxisTitle string `json:"yaxis_title,omitempty"`
}

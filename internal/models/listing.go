package models

import (
	"sort"
	"strings"
	"time"
)

// ListingStatus is the market state of a listing
type ListingStatus string

const (
	StatusActive  ListingStatus = "active"
	StatusPending ListingStatus = "pending"
	StatusSold    ListingStatus = "sold"
)

// Valid reports whether s is a known status
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusSold:
		return true
	}
	return false
}

// Property types assigned by the classifier
const (
	TypeHouse      = "house"
	TypeCondo      = "condo"
	TypeTownhouse  = "townhouse"
	TypeApartment  = "apartment"
	TypeLand       = "land"
	TypeCommercial = "commercial"
	TypeOther      = "other"
)

// Listing is a property offered on the marketplace
type Listing struct {
	ID                      string        `json:"id"`
	Title                   string        `json:"title"`
	Description             string        `json:"description"`
	Address                 string        `json:"address"`
	City                    string        `json:"city"`
	PropertyType            string        `json:"property_type"`
	Price                   float64       `json:"price"`
	Bedrooms                int           `json:"bedrooms"`
	Bathrooms               float64       `json:"bathrooms"`
	AreaSqft                float64       `json:"area_sqft"`
	YearBuilt               int           `json:"year_built,omitempty"`
	HOAMonthly              float64       `json:"hoa_monthly"`
	PropertyTaxRatePct      float64       `json:"property_tax_rate,omitempty"`
	Status                  ListingStatus `json:"status"`
	AgentID                 string        `json:"agent_id,omitempty"`
	OwnerUID                string        `json:"owner_uid"`
	EstimatedMonthlyPayment float64       `json:"estimated_monthly_payment"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`
}

// PricePerSqft returns price divided by area, or 0 without an area
func (l *Listing) PricePerSqft() float64 {
	if l.AreaSqft <= 0 {
		return 0
	}
	return l.Price / l.AreaSqft
}

// ListingFilter narrows a ListingSet. Zero values are ignored.
type ListingFilter struct {
	City         string
	PropertyType string
	Status       ListingStatus
	MinPrice     float64
	MaxPrice     float64
	MinBedrooms  int
	Search       string
}

// ListingSet wraps a slice with filtering and sorting methods
type ListingSet struct {
	Listings []Listing
}

// NewListingSet creates a new ListingSet from a slice
func NewListingSet(listings []Listing) *ListingSet {
	return &ListingSet{Listings: listings}
}

// Len returns the number of listings
func (ls *ListingSet) Len() int {
	return len(ls.Listings)
}

// Filter returns the listings matching every set field of f
func (ls *ListingSet) Filter(f ListingFilter) *ListingSet {
	result := &ListingSet{Listings: []Listing{}}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	for _, l := range ls.Listings {
		if f.City != "" && !strings.EqualFold(l.City, f.City) {
			continue
		}
		if f.PropertyType != "" && !strings.EqualFold(l.PropertyType, f.PropertyType) {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.MinPrice > 0 && l.Price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && l.Price > f.MaxPrice {
			continue
		}
		if f.MinBedrooms > 0 && l.Bedrooms < f.MinBedrooms {
			continue
		}
		if search != "" && !l.matches(search) {
			continue
		}
		result.Listings = append(result.Listings, l)
	}
	return result
}

func (l *Listing) matches(term string) bool {
	for _, field := range []string{l.Title, l.Description, l.Address, l.City} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Sort returns a sorted copy. key is price, area or created (default);
// desc reverses the order.
func (ls *ListingSet) Sort(key string, desc bool) *ListingSet {
	sorted := make([]Listing, len(ls.Listings))
	copy(sorted, ls.Listings)

	less := func(a, b *Listing) bool {
		switch key {
		case "price":
			return a.Price < b.Price
		case "area":
			return a.AreaSqft < b.AreaSqft
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if desc {
			return less(&sorted[j], &sorted[i])
		}
		return less(&sorted[i], &sorted[j])
	})
	return &ListingSet{Listings: sorted}
}

// Paginate returns a slice of listings for the given page
func (ls *ListingSet) Paginate(page, perPage int) *ListingSet {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	start := (page - 1) * perPage
	if start >= len(ls.Listings) {
		return &ListingSet{Listings: []Listing{}}
	}

	end := start + perPage
	if end > len(ls.Listings) {
		end = len(ls.Listings)
	}

	return &ListingSet{Listings: ls.Listings[start:end]}
}

// TotalPages returns the number of pages for the given page size
func (ls *ListingSet) TotalPages(perPage int) int {
	if perPage < 1 {
		perPage = 20
	}
	return (len(ls.Listings) + perPage - 1) / perPage
}

// GroupBy groups listings by the value key returns. Empty keys become "unknown".
func (ls *ListingSet) GroupBy(key func(*Listing) string) map[string]*ListingSet {
	result := make(map[string]*ListingSet)
	for _, l := range ls.Listings {
		k := key(&l)
		if k == "" {
			k = "unknown"
		}
		if result[k] == nil {
			result[k] = &ListingSet{}
		}
		result[k].Listings = append(result[k].Listings, l)
	}
	return result
}

// Prices returns listing prices in input order
func (ls *ListingSet) Prices() []float64 {
	prices := make([]float64, len(ls.Listings))
	for i, l := range ls.Listings {
		prices[i] = l.Price
	}
	return prices
}

// ListingPage is a paginated listing response
type ListingPage struct {
	Listings   []Listing `json:"listings"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

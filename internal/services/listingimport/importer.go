// Package listingimport reads listings from CSV exports with loosely named columns
package listingimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"realestate/internal/models"
	"realestate/internal/services/classifier"
	"realestate/internal/services/storage"
)

// RowError describes a CSV row that could not be imported
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of one import
type Result struct {
	Listings   []models.Listing `json:"-"`
	Skipped    []RowError       `json:"skipped"`
	Duplicates int              `json:"duplicates"`
}

// columnMappings maps common MLS and spreadsheet column names to our standard names.
// Matching is case-insensitive.
var columnMappings = map[string][]string{
	"Title":       {"title", "headline", "listing title", "name"},
	"Description": {"description", "remarks", "public remarks", "details", "notes"},
	"Address":     {"address", "street address", "street", "property address", "location"},
	"City":        {"city", "town", "municipality"},
	"Type":        {"type", "property type", "property_type", "style", "category"},
	"Price":       {"price", "list price", "listing price", "asking price", "amount"},
	"Bedrooms":    {"bedrooms", "beds", "br", "bed"},
	"Bathrooms":   {"bathrooms", "baths", "ba", "bath"},
	"Area":        {"area", "sqft", "square feet", "sq ft", "living area", "area_sqft", "size"},
	"YearBuilt":   {"year built", "year_built", "built", "year"},
	"HOA":         {"hoa", "hoa monthly", "hoa fee", "hoa_monthly", "association fee"},
	"TaxRate":     {"tax rate", "property tax rate", "property_tax_rate", "tax_rate"},
	"Status":      {"status", "listing status"},
}

// normalizeColumnName maps an export column name to our standard name
func normalizeColumnName(col string) string {
	col = strings.TrimSpace(col)
	lower := strings.ToLower(col)
	for standard, variants := range columnMappings {
		for _, variant := range variants {
			if lower == variant {
				return standard
			}
		}
	}
	return col // Return original if no mapping found
}

// buildColumnIndex creates a normalized column index from CSV headers
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(strings.TrimPrefix(col, "\ufeff"))
		// First match wins
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// Parse reads listings from CSV. Rows missing a price or both title and
// address are skipped and reported; property types are normalized or
// classified from the text.
func Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV")
		}
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	colIndex := buildColumnIndex(header)

	if _, ok := colIndex["Price"]; !ok {
		return nil, fmt.Errorf("missing required column: Price (tried: %v)", columnMappings["Price"])
	}
	_, hasTitle := colIndex["Title"]
	_, hasAddress := colIndex["Address"]
	if !hasTitle && !hasAddress {
		return nil, fmt.Errorf("missing required column: Title or Address")
	}

	result := &Result{}
	seen := make(map[string]bool)
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Line: lineNum, Reason: err.Error()})
			continue
		}

		l, reason := parseRecord(record, colIndex)
		if reason != "" {
			result.Skipped = append(result.Skipped, RowError{Line: lineNum, Reason: reason})
			continue
		}

		key := dedupeKey(&l)
		if seen[key] {
			result.Duplicates++
			continue
		}
		seen[key] = true
		result.Listings = append(result.Listings, l)
	}

	if len(result.Skipped) > 0 || result.Duplicates > 0 {
		slog.Info("listing import finished with skipped rows",
			"imported", len(result.Listings), "skipped", len(result.Skipped), "duplicates", result.Duplicates)
	}
	return result, nil
}

// ParseFile reads a CSV held in storage, decrypting it when the store is encrypted
func ParseFile(store *storage.Storage, name string) (*Result, error) {
	data, err := store.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Parse(strings.NewReader(string(data)))
}

func parseRecord(record []string, colIndex map[string]int) (models.Listing, string) {
	field := func(name string) string {
		if idx, ok := colIndex[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	l := models.Listing{
		Title:       field("Title"),
		Description: field("Description"),
		Address:     field("Address"),
		City:        field("City"),
		Status:      models.StatusActive,
	}
	if l.Title == "" && l.Address == "" {
		return l, "row has neither title nor address"
	}
	if l.Title == "" {
		l.Title = l.Address
	}

	price, ok := parseAmount(field("Price"))
	if !ok || price <= 0 {
		return l, fmt.Sprintf("invalid price %q", field("Price"))
	}
	l.Price = price

	if v, ok := parseAmount(field("Bedrooms")); ok {
		l.Bedrooms = int(v)
	}
	if v, ok := parseAmount(field("Bathrooms")); ok {
		l.Bathrooms = v
	}
	if v, ok := parseAmount(field("Area")); ok {
		l.AreaSqft = v
	}
	if v, ok := parseAmount(field("YearBuilt")); ok {
		l.YearBuilt = int(v)
	}
	if v, ok := parseAmount(field("HOA")); ok {
		l.HOAMonthly = v
	}
	if v, ok := parseAmount(strings.TrimSuffix(field("TaxRate"), "%")); ok {
		l.PropertyTaxRatePct = v
	}
	if s := models.ListingStatus(strings.ToLower(field("Status"))); s.Valid() {
		l.Status = s
	}

	l.PropertyType = classifier.NormalizeType(field("Type"))
	if l.PropertyType == "" {
		l.PropertyType = classifier.Classify(l.Title, l.Description)
	}
	return l, ""
}

// dedupeKey identifies the same property listed twice in one file
func dedupeKey(l *models.Listing) string {
	if l.Address != "" {
		return strings.ToLower(l.Address + "|" + l.City)
	}
	return strings.ToLower(l.Title + "|" + strconv.FormatFloat(l.Price, 'f', 2, 64))
}

// parseAmount parses a number, handling currency symbols and thousands separators
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}
